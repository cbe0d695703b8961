package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultCollection = "General"
	MinPasswordLen    = 6
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	knownRoles   = map[string]bool{RoleUser: true, RoleAdmin: true}
)

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type SavedRecipe struct {
	RecipeID   string    `json:"recipeId"`
	Collection string    `json:"collection"`
	SavedAt    time.Time `json:"savedAt"`
}

type Registration struct {
	Name     string `json:"name"     validate:"required,min=1,max=64"`
	Email    string `json:"email"    validate:"required,max=191"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *Registration) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r *Registration) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if !ValidEmail(r.Email) {
		return Validation("invalid email")
	}
	if len(r.Password) < MinPasswordLen {
		return Validation("password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

type ProfileUpdate struct {
	Name      *string `json:"name"      validate:"omitempty,min=1,max=64"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=512"`
}

func (p *ProfileUpdate) Normalize() {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		p.Name = &n
	}
	if p.AvatarURL != nil {
		u := strings.TrimSpace(*p.AvatarURL)
		p.AvatarURL = &u
	}
}

func (p *ProfileUpdate) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return Validation("name must not be empty")
	}
	return validateStruct(p)
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// NormalizeRoles dedupes roles, rejects unknown tags and never returns an empty set.
func NormalizeRoles(roles []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		if !knownRoles[r] {
			return nil, Validation("unknown role %q", r)
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) == 0 {
		out = append(out, RoleUser)
	}
	return out, nil
}

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*Account, error)
	SetRoles(ctx context.Context, id string, roles []string) (*Account, error)
	List(ctx context.Context, q string, p Page) ([]Account, int64, error)

	AddRefreshToken(ctx context.Context, accountID, token string) error
	// RotateRefreshToken swaps oldToken for newToken in one step and fails
	// with ErrRefreshRejected when oldToken is no longer in the account's set.
	RotateRefreshToken(ctx context.Context, accountID, oldToken, newToken string) error
	RemoveRefreshToken(ctx context.Context, token string) error

	SaveRecipe(ctx context.Context, accountID string, s SavedRecipe) error
	UnsaveRecipe(ctx context.Context, accountID, recipeID string) (bool, error)
	ListSaved(ctx context.Context, accountID string) ([]SavedRecipe, error)
}
