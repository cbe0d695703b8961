package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipebox/internal/domain"
	"recipebox/internal/feature/account"
	"recipebox/internal/feature/recipe"
)

type RecipeRepo struct{ db *gorm.DB }

func NewRecipeRepo(db *gorm.DB) *RecipeRepo { return &RecipeRepo{db: db} }

var (
	errRecipeNotFound  = domain.ErrNotFound.WithMsg("recipe not found")
	errCommentNotFound = domain.ErrNotFound.WithMsg("comment not found")
)

// fieldColumns are the author-editable columns written by UpdateFields.
var fieldColumns = []string{
	"title", "description", "ingredients", "steps", "category", "cook_time", "prep_time",
	"images", "diet", "cuisine", "difficulty", "nutrition", "tags",
	"ingredients_text", "tags_text", "updated_at",
}

func (r *RecipeRepo) Create(ctx context.Context, rec *domain.Recipe) error {
	m := &recipe.RecipeModel{ID: rec.ID, AuthorID: rec.AuthorID}
	m.SetFields(rec.RecipeFields)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return domain.Internal("create recipe failed", err)
	}
	rec.CreatedAt, rec.UpdatedAt = m.CreatedAt, m.UpdatedAt
	if rec.Comments == nil {
		rec.Comments = []domain.Comment{}
	}
	return nil
}

func (r *RecipeRepo) FindByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var m recipe.RecipeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if notFound(err) {
		return nil, errRecipeNotFound
	}
	if err != nil {
		return nil, domain.Internal("load recipe failed", err)
	}
	comments, err := loadComments(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	out := m.ToDomain()
	out.Comments = comments
	return out, nil
}

func (r *RecipeRepo) AuthorOf(ctx context.Context, id string) (string, error) {
	var authors []string
	err := r.db.WithContext(ctx).Model(&recipe.RecipeModel{}).
		Where("id = ?", id).Limit(1).Pluck("author_id", &authors).Error
	if err != nil {
		return "", domain.Internal("load recipe failed", err)
	}
	if len(authors) == 0 {
		return "", errRecipeNotFound
	}
	return authors[0], nil
}

func (r *RecipeRepo) UpdateFields(ctx context.Context, id string, f domain.RecipeFields) error {
	m := &recipe.RecipeModel{ID: id}
	m.SetFields(f)
	// rating columns are owned by the comment transaction and never written here
	res := r.db.WithContext(ctx).Model(&recipe.RecipeModel{ID: id}).Select(fieldColumns).Updates(m)
	if res.Error != nil {
		return domain.Internal("update recipe failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errRecipeNotFound
	}
	return nil
}

func (r *RecipeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, id); err != nil {
			return err
		}
		for _, dep := range []struct {
			model any
			col   string
		}{
			{&recipe.CommentModel{}, "recipe_id"},
			{&recipe.LikeModel{}, "recipe_id"},
			{&account.SavedRecipeModel{}, "recipe_id"},
		} {
			if err := tx.Where(dep.col+" = ?", id).Delete(dep.model).Error; err != nil {
				return domain.Internal("delete recipe failed", err)
			}
		}
		if err := tx.Where("id = ?", id).Delete(&recipe.RecipeModel{}).Error; err != nil {
			return domain.Internal("delete recipe failed", err)
		}
		return nil
	})
}

func recipeFilter(f domain.RecipeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Query != "" {
			like := likePattern(f.Query)
			db = db.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", like, like)
		}
		if f.Category != "" {
			db = db.Where("LOWER(category) = LOWER(?)", f.Category)
		}
		if f.Ingredient != "" {
			db = db.Where("ingredients_text LIKE ? ESCAPE '!'", likePattern(f.Ingredient))
		}
		if f.Diet != "" {
			db = db.Where("diet = ?", f.Diet)
		}
		if f.Cuisine != "" {
			db = db.Where("LOWER(cuisine) = LOWER(?)", f.Cuisine)
		}
		if f.Difficulty != "" {
			db = db.Where("difficulty = ?", f.Difficulty)
		}
		if f.Tag != "" {
			db = db.Where("tags_text LIKE ? ESCAPE '!'", likeEntry(f.Tag))
		}
		if f.AuthorID != "" {
			db = db.Where("author_id = ?", f.AuthorID)
		}
		if f.MaxPrepTime > 0 {
			db = db.Where("prep_time <= ?", f.MaxPrepTime)
		}
		return db
	}
}

func (r *RecipeRepo) List(ctx context.Context, f domain.RecipeFilter, p domain.Page) ([]domain.Recipe, int64, error) {
	p = p.Normalize()
	scope := recipeFilter(f)

	var total int64
	if err := r.db.WithContext(ctx).Model(&recipe.RecipeModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, domain.Internal("count recipes failed", err)
	}
	var rows []recipe.RecipeModel
	err := r.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").Order("id DESC").
		Offset(p.Skip).Limit(p.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, domain.Internal("list recipes failed", err)
	}
	out := make([]domain.Recipe, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *RecipeRepo) AddComment(ctx context.Context, recipeID string, c domain.Comment) (*domain.Aggregate, error) {
	var agg *domain.Aggregate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		m := &recipe.CommentModel{
			ID:       c.ID,
			RecipeID: recipeID,
			AuthorID: c.AuthorID,
			Text:     c.Text,
			Rating:   c.Rating,
		}
		if err := tx.Create(m).Error; err != nil {
			return domain.Internal("add comment failed", err)
		}
		var err error
		agg, err = rewriteRating(tx, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *RecipeRepo) MutateComment(ctx context.Context, recipeID, commentID string, fn func(c *domain.Comment) (bool, error)) (*domain.Aggregate, error) {
	var agg *domain.Aggregate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		var m recipe.CommentModel
		err := tx.Where("id = ? AND recipe_id = ?", commentID, recipeID).First(&m).Error
		if notFound(err) {
			return errCommentNotFound
		}
		if err != nil {
			return domain.Internal("load comment failed", err)
		}

		c := m.ToDomain()
		remove, err := fn(&c)
		if err != nil {
			return err
		}
		if remove {
			err = tx.Where("seq = ?", m.Seq).Delete(&recipe.CommentModel{}).Error
		} else {
			err = tx.Model(&m).Updates(map[string]any{"text": c.Text, "rating": c.Rating}).Error
		}
		if err != nil {
			return domain.Internal("write comment failed", err)
		}
		agg, err = rewriteRating(tx, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *RecipeRepo) SetLike(ctx context.Context, recipeID, accountID string, liked bool) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecipe(tx, recipeID); err != nil {
			return err
		}
		var err error
		if liked {
			err = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&recipe.LikeModel{RecipeID: recipeID, AccountID: accountID}).Error
		} else {
			err = tx.Where("recipe_id = ? AND account_id = ?", recipeID, accountID).
				Delete(&recipe.LikeModel{}).Error
		}
		if err != nil {
			return domain.Internal("write like failed", err)
		}
		if err := tx.Model(&recipe.LikeModel{}).Where("recipe_id = ?", recipeID).Count(&count).Error; err != nil {
			return domain.Internal("count likes failed", err)
		}
		err = tx.Model(&recipe.RecipeModel{}).Where("id = ?", recipeID).
			UpdateColumn("likes", count).Error
		if err != nil {
			return domain.Internal("write like count failed", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// lockRecipe bumps the recipe version. On postgres and mysql the row stays
// locked until the surrounding transaction ends; sqlite serializes writers.
func lockRecipe(tx *gorm.DB, id string) error {
	res := tx.Model(&recipe.RecipeModel{}).Where("id = ?", id).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return domain.Internal("lock recipe failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errRecipeNotFound
	}
	return nil
}

func loadComments(db *gorm.DB, recipeID string) ([]domain.Comment, error) {
	var rows []recipe.CommentModel
	if err := db.Where("recipe_id = ?", recipeID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, domain.Internal("load comments failed", err)
	}
	out := make([]domain.Comment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// rewriteRating recomputes the rating from the full comment set and stores
// it with the count, so both always describe the same set.
func rewriteRating(tx *gorm.DB, recipeID string) (*domain.Aggregate, error) {
	comments, err := loadComments(tx, recipeID)
	if err != nil {
		return nil, err
	}
	agg := domain.NewAggregate(comments)
	err = tx.Model(&recipe.RecipeModel{}).Where("id = ?", recipeID).
		UpdateColumns(map[string]any{
			"average_rating": agg.AverageRating,
			"comment_count":  len(agg.Comments),
		}).Error
	if err != nil {
		return nil, domain.Internal("write rating failed", err)
	}
	return &agg, nil
}
