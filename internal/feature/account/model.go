package account

import (
	"time"

	"recipebox/internal/domain"
)

type AccountModel struct {
	ID           string   `gorm:"primaryKey;type:varchar(32)"`
	Email        string   `gorm:"uniqueIndex;size:191;not null"`
	Name         string   `gorm:"size:64;not null"`
	PasswordHash string   `gorm:"size:100;not null"`
	AvatarURL    string   `gorm:"size:512"`
	Roles        []string `gorm:"serializer:json;type:text;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string { return "accounts" }

func (m *AccountModel) ToDomain() *domain.Account {
	roles := append([]string(nil), m.Roles...)
	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}
	return &domain.Account{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		AvatarURL:    m.AvatarURL,
		Roles:        roles,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func FromDomain(a *domain.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		PasswordHash: a.PasswordHash,
		AvatarURL:    a.AvatarURL,
		Roles:        a.Roles,
	}
}

// RefreshTokenModel is one member of an account's refresh-token set. Only the
// sha256 of the token is stored.
type RefreshTokenModel struct {
	TokenHash string    `gorm:"primaryKey;type:varchar(64)"`
	AccountID string    `gorm:"index;type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RefreshTokenModel) TableName() string { return "refresh_tokens" }

type SavedRecipeModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	AccountID  string    `gorm:"uniqueIndex:idx_saved_account_recipe;type:varchar(32);not null"`
	RecipeID   string    `gorm:"uniqueIndex:idx_saved_account_recipe;index;type:varchar(32);not null"`
	Collection string    `gorm:"size:64;not null;default:General"`
	SavedAt    time.Time `gorm:"autoCreateTime"`
}

func (SavedRecipeModel) TableName() string { return "saved_recipes" }

func (m *SavedRecipeModel) ToDomain() domain.SavedRecipe {
	return domain.SavedRecipe{RecipeID: m.RecipeID, Collection: m.Collection, SavedAt: m.SavedAt}
}
