package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"recipebox/internal/domain"
	"recipebox/internal/feature/account"
)

type AccountRepo struct{ db *gorm.DB }

func NewAccountRepo(db *gorm.DB) *AccountRepo { return &AccountRepo{db: db} }

var errAccountNotFound = domain.ErrNotFound.WithMsg("account not found")

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	m := account.FromDomain(a)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicateAccount
		}
		return domain.Internal("create account failed", err)
	}
	a.CreatedAt, a.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *AccountRepo) find(ctx context.Context, col, val string) (*account.AccountModel, error) {
	var m account.AccountModel
	err := r.db.WithContext(ctx).Where(col+" = ?", val).First(&m).Error
	if notFound(err) {
		return nil, errAccountNotFound
	}
	if err != nil {
		return nil, domain.Internal("load account failed", err)
	}
	return &m, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	m, err := r.find(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m, err := r.find(ctx, "email", domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.Account, error) {
	m, err := r.find(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, 3)
	if p.Name != nil {
		m.Name = *p.Name
		cols = append(cols, "name")
	}
	if p.AvatarURL != nil {
		m.AvatarURL = *p.AvatarURL
		cols = append(cols, "avatar_url")
	}
	if len(cols) == 0 {
		return m.ToDomain(), nil
	}
	cols = append(cols, "updated_at")
	if err := r.db.WithContext(ctx).Model(m).Select(cols).Updates(m).Error; err != nil {
		return nil, domain.Internal("update account failed", err)
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) SetRoles(ctx context.Context, id string, roles []string) (*domain.Account, error) {
	m, err := r.find(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	m.Roles = roles
	if err := r.db.WithContext(ctx).Model(m).Select("roles", "updated_at").Updates(m).Error; err != nil {
		return nil, domain.Internal("update roles failed", err)
	}
	return m.ToDomain(), nil
}

func (r *AccountRepo) List(ctx context.Context, q string, p domain.Page) ([]domain.Account, int64, error) {
	p = p.Normalize()
	filter := func(db *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(q); s != "" {
			like := likePattern(s)
			db = db.Where("LOWER(email) LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!'", like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&account.AccountModel{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, domain.Internal("count accounts failed", err)
	}
	var rows []account.AccountModel
	err := r.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").Order("id DESC").
		Offset(p.Skip).Limit(p.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, domain.Internal("list accounts failed", err)
	}
	out := make([]domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *AccountRepo) AddRefreshToken(ctx context.Context, accountID, token string) error {
	m := &account.RefreshTokenModel{TokenHash: hashToken(token), AccountID: accountID}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return domain.Internal("store refresh token failed", err)
	}
	return nil
}

func (r *AccountRepo) RotateRefreshToken(ctx context.Context, accountID, oldToken, newToken string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the delete is the membership check: a token removed by a concurrent
		// logout or rotation matches zero rows here
		res := tx.Where("token_hash = ? AND account_id = ?", hashToken(oldToken), accountID).
			Delete(&account.RefreshTokenModel{})
		if res.Error != nil {
			return domain.Internal("revoke refresh token failed", res.Error)
		}
		if res.RowsAffected != 1 {
			return domain.ErrRefreshRejected
		}
		m := &account.RefreshTokenModel{TokenHash: hashToken(newToken), AccountID: accountID}
		if err := tx.Create(m).Error; err != nil {
			return domain.Internal("store refresh token failed", err)
		}
		return nil
	})
}

func (r *AccountRepo) RemoveRefreshToken(ctx context.Context, token string) error {
	err := r.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).
		Delete(&account.RefreshTokenModel{}).Error
	if err != nil {
		return domain.Internal("revoke refresh token failed", err)
	}
	return nil
}

func (r *AccountRepo) SaveRecipe(ctx context.Context, accountID string, s domain.SavedRecipe) error {
	m := &account.SavedRecipeModel{AccountID: accountID, RecipeID: s.RecipeID, Collection: s.Collection}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicateSave
		}
		return domain.Internal("save recipe failed", err)
	}
	return nil
}

func (r *AccountRepo) UnsaveRecipe(ctx context.Context, accountID, recipeID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("account_id = ? AND recipe_id = ?", accountID, recipeID).
		Delete(&account.SavedRecipeModel{})
	if res.Error != nil {
		return false, domain.Internal("unsave recipe failed", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *AccountRepo) ListSaved(ctx context.Context, accountID string) ([]domain.SavedRecipe, error) {
	var rows []account.SavedRecipeModel
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).
		Order("saved_at DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, domain.Internal("list saved recipes failed", err)
	}
	out := make([]domain.SavedRecipe, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}
