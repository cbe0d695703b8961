package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipebox/internal/core/cache"
	"recipebox/internal/domain"
	"recipebox/pkg/utils"
)

type RecipePage struct {
	Items []domain.Recipe `json:"items"`
	Total int64           `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

type RecipeService struct {
	recipes domain.RecipeRepository
	cache   *cache.Cache
	ttl     time.Duration
	log     *zap.Logger
}

// NewRecipeService builds the service; c may be nil to disable the detail cache.
func NewRecipeService(recipes domain.RecipeRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *RecipeService {
	if l == nil {
		l = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RecipeService{recipes: recipes, cache: c, ttl: ttl, log: l}
}

func recipeKey(id string) string { return "recipe:" + id }

func checkID(id, what string) error {
	if !utils.ValidID(id) {
		return domain.Validation("invalid %s id", what)
	}
	return nil
}

func (s *RecipeService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Bump(ctx, recipeKey(id)); err != nil {
		s.log.Warn("recipe cache invalidation failed", zap.String("recipe", id), zap.Error(err))
	}
}

func (s *RecipeService) Create(ctx context.Context, uid string, f domain.RecipeFields) (*domain.Recipe, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r := &domain.Recipe{
		ID:           utils.NewID(),
		AuthorID:     uid,
		RecipeFields: f,
		Comments:     []domain.Comment{},
	}
	if err := s.recipes.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	if err := checkID(id, "recipe"); err != nil {
		return nil, err
	}
	c := s.cache
	key, err := c.Versioned(ctx, recipeKey(id))
	if err != nil {
		s.log.Warn("recipe cache unavailable", zap.String("recipe", id), zap.Error(err))
		c = nil
	}
	r, err := cache.GetOrLoadJSON(c, ctx, key, s.ttl, func(ctx context.Context) (*domain.Recipe, error) {
		return s.recipes.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound.WithMsg("recipe not found")
	}
	if r.Comments == nil {
		r.Comments = []domain.Comment{}
	}
	return r, nil
}

// authorize fails with ErrNotFound for a missing recipe and ErrForbidden when
// uid is not its author.
func (s *RecipeService) authorize(ctx context.Context, uid, id string) error {
	if err := checkID(id, "recipe"); err != nil {
		return err
	}
	author, err := s.recipes.AuthorOf(ctx, id)
	if err != nil {
		return err
	}
	if author != uid {
		return domain.ErrForbidden.WithMsg("only the author can change this recipe")
	}
	return nil
}

func (s *RecipeService) Update(ctx context.Context, uid, id string, f domain.RecipeFields) (*domain.Recipe, error) {
	if err := s.authorize(ctx, uid, id); err != nil {
		return nil, err
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.recipes.UpdateFields(ctx, id, f); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.recipes.FindByID(ctx, id)
}

func (s *RecipeService) Delete(ctx context.Context, uid, id string) error {
	if err := s.authorize(ctx, uid, id); err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *RecipeService) List(ctx context.Context, f domain.RecipeFilter, p domain.Page) (*RecipePage, error) {
	f.Normalize()
	p = p.Normalize()
	items, total, err := s.recipes.List(ctx, f, p)
	if err != nil {
		return nil, err
	}
	return &RecipePage{Items: items, Total: total, Skip: p.Skip, Limit: p.Limit}, nil
}

func (s *RecipeService) AddComment(ctx context.Context, uid, recipeID string, in domain.CommentInput) (*domain.Aggregate, error) {
	if err := checkID(recipeID, "recipe"); err != nil {
		return nil, err
	}
	if _, err := s.recipes.AuthorOf(ctx, recipeID); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	agg, err := s.recipes.AddComment(ctx, recipeID, domain.Comment{
		ID:       utils.NewID(),
		AuthorID: uid,
		Text:     in.Text,
		Rating:   in.Rating,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, recipeID)
	return agg, nil
}

// UpdateComment rewrites text and rating. Only the comment's author may do
// this; owning the recipe grants nothing. The payload is validated after the
// existence and ownership checks.
func (s *RecipeService) UpdateComment(ctx context.Context, uid, recipeID, commentID string, in domain.CommentInput) (*domain.Aggregate, error) {
	if err := checkCommentIDs(recipeID, commentID); err != nil {
		return nil, err
	}
	in.Normalize()
	agg, err := s.recipes.MutateComment(ctx, recipeID, commentID, func(c *domain.Comment) (bool, error) {
		if c.AuthorID != uid {
			return false, domain.ErrForbidden.WithMsg("only the author can edit this comment")
		}
		if err := in.Validate(); err != nil {
			return false, err
		}
		c.Text, c.Rating = in.Text, in.Rating
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, recipeID)
	return agg, nil
}

func (s *RecipeService) DeleteComment(ctx context.Context, uid, recipeID, commentID string) (*domain.Aggregate, error) {
	if err := checkCommentIDs(recipeID, commentID); err != nil {
		return nil, err
	}
	agg, err := s.recipes.MutateComment(ctx, recipeID, commentID, func(c *domain.Comment) (bool, error) {
		if c.AuthorID != uid {
			return false, domain.ErrForbidden.WithMsg("only the author can delete this comment")
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, recipeID)
	return agg, nil
}

func checkCommentIDs(recipeID, commentID string) error {
	if err := checkID(recipeID, "recipe"); err != nil {
		return err
	}
	return checkID(commentID, "comment")
}

// SetLike records or withdraws uid's like and returns the new like count.
func (s *RecipeService) SetLike(ctx context.Context, uid, recipeID string, liked bool) (int, error) {
	if err := checkID(recipeID, "recipe"); err != nil {
		return 0, err
	}
	n, err := s.recipes.SetLike(ctx, recipeID, uid, liked)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, recipeID)
	return n, nil
}
