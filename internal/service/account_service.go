package service

import (
	"context"
	"strings"

	"recipebox/internal/domain"
)

const maxCollectionLen = 64

type AccountPage struct {
	Items []domain.Account `json:"items"`
	Total int64            `json:"total"`
	Skip  int              `json:"skip"`
	Limit int              `json:"limit"`
}

// AccountService covers saved recipes for users and account management for admins.
type AccountService struct {
	accounts domain.AccountRepository
	recipes  domain.RecipeRepository
}

func NewAccountService(accounts domain.AccountRepository, recipes domain.RecipeRepository) *AccountService {
	return &AccountService{accounts: accounts, recipes: recipes}
}

// Save adds recipeID to uid's saved list. A second save of the same recipe
// fails with ErrDuplicateSave whatever the collection.
func (s *AccountService) Save(ctx context.Context, uid, recipeID, collection string) error {
	if err := checkID(recipeID, "recipe"); err != nil {
		return err
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = domain.DefaultCollection
	}
	if len(collection) > maxCollectionLen {
		return domain.Validation("collection must be at most %d characters", maxCollectionLen)
	}
	if _, err := s.recipes.AuthorOf(ctx, recipeID); err != nil {
		return err
	}
	return s.accounts.SaveRecipe(ctx, uid, domain.SavedRecipe{RecipeID: recipeID, Collection: collection})
}

func (s *AccountService) Unsave(ctx context.Context, uid, recipeID string) error {
	if err := checkID(recipeID, "recipe"); err != nil {
		return err
	}
	ok, err := s.accounts.UnsaveRecipe(ctx, uid, recipeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound.WithMsg("recipe not saved")
	}
	return nil
}

func (s *AccountService) ListSaved(ctx context.Context, uid string) ([]domain.SavedRecipe, error) {
	return s.accounts.ListSaved(ctx, uid)
}

func (s *AccountService) List(ctx context.Context, q string, p domain.Page) (*AccountPage, error) {
	p = p.Normalize()
	items, total, err := s.accounts.List(ctx, q, p)
	if err != nil {
		return nil, err
	}
	return &AccountPage{Items: items, Total: total, Skip: p.Skip, Limit: p.Limit}, nil
}

func (s *AccountService) SetRoles(ctx context.Context, id string, roles []string) (*domain.Account, error) {
	if err := checkID(id, "account"); err != nil {
		return nil, err
	}
	roles, err := domain.NormalizeRoles(roles)
	if err != nil {
		return nil, err
	}
	return s.accounts.SetRoles(ctx, id, roles)
}
