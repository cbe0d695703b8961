package repo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/domain"
	"recipebox/internal/repo"
	"recipebox/internal/repo/repotest"
	"recipebox/pkg/utils"
)

func newAccount(t *testing.T, r *repo.AccountRepo, email string) *domain.Account {
	t.Helper()
	a := &domain.Account{ID: utils.NewID(), Email: email, Name: "cook", PasswordHash: "x", Roles: []string{domain.RoleUser}}
	require.NoError(t, r.Create(context.Background(), a))
	return a
}

func newRecipe(t *testing.T, r *repo.RecipeRepo, author, title string) *domain.Recipe {
	t.Helper()
	rec := &domain.Recipe{
		ID:       utils.NewID(),
		AuthorID: author,
		RecipeFields: domain.RecipeFields{
			Title:       title,
			Ingredients: []string{"flour", "water"},
			Steps:       []string{"mix", "bake"},
			Category:    "bread",
			CookTime:    30,
			PrepTime:    10,
			Tags:        []string{"easy"},
		},
	}
	require.NoError(t, r.Create(context.Background(), rec))
	return rec
}

func TestAccountRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := repo.NewAccountRepo(repotest.Open(t))
	a := newAccount(t, r, "a@b.com")

	got, err := r.FindByEmail(ctx, " A@B.com ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, []string{domain.RoleUser}, got.Roles)

	_, err = r.FindByID(ctx, utils.NewID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	r := repo.NewAccountRepo(repotest.Open(t))
	newAccount(t, r, "dup@b.com")
	err := r.Create(context.Background(), &domain.Account{ID: utils.NewID(), Email: "dup@b.com", Name: "x", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
}

func TestAccountRepo_ProfileAndRoles(t *testing.T) {
	ctx := context.Background()
	r := repo.NewAccountRepo(repotest.Open(t))
	a := newAccount(t, r, "p@b.com")

	name := "Chef"
	got, err := r.UpdateProfile(ctx, a.ID, domain.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Chef", got.Name)

	got, err = r.SetRoles(ctx, a.ID, []string{domain.RoleUser, domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleUser, domain.RoleAdmin}, got.Roles)

	reloaded, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chef", reloaded.Name)
	assert.Equal(t, []string{domain.RoleUser, domain.RoleAdmin}, reloaded.Roles)

	list, total, err := r.List(ctx, "chef", domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestAccountRepo_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	r := repo.NewAccountRepo(repotest.Open(t))
	a := newAccount(t, r, "r@b.com")

	require.NoError(t, r.AddRefreshToken(ctx, a.ID, "t1"))
	require.NoError(t, r.RotateRefreshToken(ctx, a.ID, "t1", "t2"))
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, a.ID, "t1", "t3"), domain.ErrRefreshRejected)

	require.NoError(t, r.RemoveRefreshToken(ctx, "t2"))
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, a.ID, "t2", "t4"), domain.ErrRefreshRejected)
	// removing an unknown token is not an error
	require.NoError(t, r.RemoveRefreshToken(ctx, "nope"))
}

func TestAccountRepo_SavedRecipes(t *testing.T) {
	ctx := context.Background()
	r := repo.NewAccountRepo(repotest.Open(t))
	a := newAccount(t, r, "s@b.com")
	rid := utils.NewID()

	require.NoError(t, r.SaveRecipe(ctx, a.ID, domain.SavedRecipe{RecipeID: rid, Collection: domain.DefaultCollection}))
	err := r.SaveRecipe(ctx, a.ID, domain.SavedRecipe{RecipeID: rid, Collection: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSave)

	saved, err := r.ListSaved(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.DefaultCollection, saved[0].Collection)

	ok, err := r.UnsaveRecipe(ctx, a.ID, rid)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.UnsaveRecipe(ctx, a.ID, rid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecipeRepo_CommentsKeepRatingInSync(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	rec := newRecipe(t, r, utils.NewID(), "Bread")

	agg, err := r.AddComment(ctx, rec.ID, domain.Comment{ID: utils.NewID(), AuthorID: "a", Text: "ok", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, agg.AverageRating)

	second := utils.NewID()
	agg, err = r.AddComment(ctx, rec.ID, domain.Comment{ID: second, AuthorID: "b", Text: "meh", Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 3.0, agg.AverageRating)
	require.Len(t, agg.Comments, 2)
	assert.Equal(t, "ok", agg.Comments[0].Text)

	agg, err = r.MutateComment(ctx, rec.ID, second, func(c *domain.Comment) (bool, error) {
		c.Rating = 5
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, agg.AverageRating)

	agg, err = r.MutateComment(ctx, rec.ID, second, func(*domain.Comment) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Equal(t, 4.0, agg.AverageRating)
	assert.Len(t, agg.Comments, 1)

	got, err := r.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.AverageRating)
	assert.Equal(t, 1, got.CommentCount)
	assert.Len(t, got.Comments, 1)
}

func TestRecipeRepo_MutateCommentErrors(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	rec := newRecipe(t, r, utils.NewID(), "Soup")
	cid := utils.NewID()
	_, err := r.AddComment(ctx, rec.ID, domain.Comment{ID: cid, AuthorID: "a", Text: "x", Rating: 3})
	require.NoError(t, err)

	_, err = r.MutateComment(ctx, rec.ID, utils.NewID(), func(*domain.Comment) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.MutateComment(ctx, rec.ID, cid, func(*domain.Comment) (bool, error) { return true, domain.ErrForbidden })
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := r.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 1, "a rejected mutation leaves the set untouched")

	_, err = r.AddComment(ctx, utils.NewID(), domain.Comment{ID: utils.NewID(), Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecipeRepo_ConcurrentComments(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	rec := newRecipe(t, r, utils.NewID(), "Stew")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.AddComment(ctx, rec.ID, domain.Comment{ID: utils.NewID(), AuthorID: "a", Text: "x", Rating: i%5 + 1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := r.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 10)
	assert.Equal(t, 10, got.CommentCount)
	assert.Equal(t, domain.AverageRating(got.Comments), got.AverageRating)
}

func TestRecipeRepo_UpdateKeepsRating(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	rec := newRecipe(t, r, utils.NewID(), "Cake")
	_, err := r.AddComment(ctx, rec.ID, domain.Comment{ID: utils.NewID(), AuthorID: "a", Text: "x", Rating: 5})
	require.NoError(t, err)

	f := rec.RecipeFields
	f.Title = "Better Cake"
	f.Tags = []string{}
	require.NoError(t, r.UpdateFields(ctx, rec.ID, f))

	got, err := r.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Better Cake", got.Title)
	assert.Empty(t, got.Tags)
	assert.Equal(t, 5.0, got.AverageRating)
	assert.Equal(t, 1, got.CommentCount)

	assert.ErrorIs(t, r.UpdateFields(ctx, utils.NewID(), f), domain.ErrNotFound)
}

func TestRecipeRepo_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	author := utils.NewID()
	for i := 0; i < 5; i++ {
		newRecipe(t, r, author, fmt.Sprintf("Loaf %d", i))
	}
	newRecipe(t, r, utils.NewID(), "Tomato Soup")

	all, total, err := r.List(ctx, domain.RecipeFilter{}, domain.Page{Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	assert.Len(t, all, 6)

	p1, _, err := r.List(ctx, domain.RecipeFilter{}, domain.Page{Skip: 0, Limit: 3})
	require.NoError(t, err)
	p2, _, err := r.List(ctx, domain.RecipeFilter{}, domain.Page{Skip: 3, Limit: 3})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, rec := range append(p1, p2...) {
		assert.False(t, seen[rec.ID], "pages overlap")
		seen[rec.ID] = true
	}
	assert.Len(t, seen, 6)

	got, total, err := r.List(ctx, domain.RecipeFilter{Query: "SOUP"}, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Tomato Soup", got[0].Title)

	_, total, err = r.List(ctx, domain.RecipeFilter{AuthorID: author, Ingredient: "Flour", Tag: "easy", MaxPrepTime: 10}, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	_, total, err = r.List(ctx, domain.RecipeFilter{MaxPrepTime: 5}, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestRecipeRepo_FilterIgnoresJSONSyntax(t *testing.T) {
	ctx := context.Background()
	r := repo.NewRecipeRepo(repotest.Open(t))
	rec := newRecipe(t, r, utils.NewID(), "Steak")
	f := rec.RecipeFields
	f.Ingredients = []string{"Salt & Pepper", "beef"}
	f.Tags = []string{"grill", "quick dinner"}
	require.NoError(t, r.UpdateFields(ctx, rec.ID, f))

	count := func(f domain.RecipeFilter) int64 {
		t.Helper()
		_, total, err := r.List(ctx, f, domain.Page{})
		require.NoError(t, err)
		return total
	}

	assert.EqualValues(t, 1, count(domain.RecipeFilter{Ingredient: "salt & pepper"}))
	assert.EqualValues(t, 1, count(domain.RecipeFilter{Ingredient: "PEPPER"}))
	for _, junk := range []string{`","`, `"`, `[`, `]`, "salt\nbeef", "pepper\nbeef"} {
		assert.Zero(t, count(domain.RecipeFilter{Ingredient: junk}), "ingredient %q", junk)
	}

	assert.EqualValues(t, 1, count(domain.RecipeFilter{Tag: "quick dinner"}))
	assert.Zero(t, count(domain.RecipeFilter{Tag: "quick"}), "tags match whole entries")
	assert.Zero(t, count(domain.RecipeFilter{Tag: `grill","quick dinner`}))
	assert.Zero(t, count(domain.RecipeFilter{Tag: "easy"}), "old tags are replaced on update")
}

func TestMigrate_BackfillsSearchText(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)
	r := repo.NewRecipeRepo(db)
	rec := newRecipe(t, r, utils.NewID(), "Old Bread")
	require.NoError(t, db.Exec("UPDATE recipes SET ingredients_text = '', tags_text = '' WHERE id = ?", rec.ID).Error)

	_, total, err := r.List(ctx, domain.RecipeFilter{Ingredient: "flour"}, domain.Page{})
	require.NoError(t, err)
	require.Zero(t, total)

	require.NoError(t, repo.Migrate(db))
	_, total, err = r.List(ctx, domain.RecipeFilter{Ingredient: "flour", Tag: "easy"}, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRecipeRepo_FilterWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)
	r := repo.NewRecipeRepo(db)
	newRecipe(t, r, utils.NewID(), "Plain Bread")
	newRecipe(t, r, utils.NewID(), "100% Rye")
	newRecipe(t, r, utils.NewID(), "snake_case stew")

	count := func(f domain.RecipeFilter) int64 {
		t.Helper()
		_, total, err := r.List(ctx, f, domain.Page{})
		require.NoError(t, err)
		return total
	}

	assert.EqualValues(t, 1, count(domain.RecipeFilter{Query: "%"}))
	assert.EqualValues(t, 1, count(domain.RecipeFilter{Query: "_"}))
	assert.EqualValues(t, 1, count(domain.RecipeFilter{Query: "0% r"}))
	assert.Zero(t, count(domain.RecipeFilter{Query: "!"}))
	assert.Zero(t, count(domain.RecipeFilter{Query: "p%n"}), "%% is not a wildcard")
	assert.Zero(t, count(domain.RecipeFilter{Ingredient: "fl_ur"}), "_ is not a wildcard")
	assert.Zero(t, count(domain.RecipeFilter{Tag: "%"}))

	accounts := repo.NewAccountRepo(db)
	newAccount(t, accounts, "ann_lee@example.com")
	newAccount(t, accounts, "annxlee@example.com")
	_, total, err := accounts.List(ctx, "ann_", domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRecipeRepo_LikesAndDelete(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)
	r := repo.NewRecipeRepo(db)
	accounts := repo.NewAccountRepo(db)
	rec := newRecipe(t, r, utils.NewID(), "Pie")

	n, err := r.SetLike(ctx, rec.ID, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = r.SetLike(ctx, rec.ID, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "liking twice counts once")
	n, err = r.SetLike(ctx, rec.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, accounts.SaveRecipe(ctx, "u1", domain.SavedRecipe{RecipeID: rec.ID, Collection: "General"}))
	require.NoError(t, r.Delete(ctx, rec.ID))
	_, err = r.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	saved, err := accounts.ListSaved(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, saved)

	assert.ErrorIs(t, r.Delete(ctx, rec.ID), domain.ErrNotFound)
}
