package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"recipebox/internal/core/auth"
	"recipebox/internal/domain"
	"recipebox/pkg/utils"
)

// Session is what a successful register/login/refresh hands back to the client.
type Session struct {
	Account      *domain.Account `json:"-"`
	AccessToken  string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

type AuthService struct {
	accounts domain.AccountRepository
	access   *auth.JWTer
	refresh  *auth.JWTer
	log      *zap.Logger
}

func NewAuthService(accounts domain.AccountRepository, access, refresh *auth.JWTer, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{accounts: accounts, access: access, refresh: refresh, log: l}
}

// dummyHash is compared against when the email is unknown so both login
// failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := utils.HashPassword("recipebox-dummy-password")
	return h
})

func (s *AuthService) Register(ctx context.Context, in domain.Registration) (sess *Session, err error) {
	defer func() { countAuth("register", err) }()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("hash password failed", err)
	}
	a := &domain.Account{
		ID:           utils.NewID(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Roles:        []string{domain.RoleUser},
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	tok, err := s.access.Issue(a.ID, a.Roles)
	if err != nil {
		return nil, domain.Internal("issue token failed", err)
	}
	s.log.Info("account registered", zap.String("uid", a.ID))
	return &Session{Account: a, AccessToken: tok}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { countAuth("login", err) }()

	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return nil, domain.Validation("invalid email")
	}
	a, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		utils.CheckPassword(password, dummyHash())
		s.log.Debug("login unknown email")
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !utils.CheckPassword(password, a.PasswordHash) {
		s.log.Debug("login wrong password", zap.String("uid", a.ID))
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.access.Issue(a.ID, a.Roles)
	if err != nil {
		return nil, domain.Internal("issue token failed", err)
	}
	refresh, err := s.refresh.Issue(a.ID, nil)
	if err != nil {
		return nil, domain.Internal("issue refresh token failed", err)
	}
	if err := s.accounts.AddRefreshToken(ctx, a.ID, refresh); err != nil {
		return nil, err
	}
	return &Session{Account: a, AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks signature and expiry of an access token.
func (s *AuthService) VerifyAccess(token string) (*auth.Claims, error) {
	c, err := s.access.Parse(token)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	default:
		return nil, domain.ErrTokenInvalid
	}
}

// Refresh re-issues an access token from one that is still valid. Roles are
// reloaded so a role change takes effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, accessToken string) (tok string, err error) {
	defer func() { countAuth("refresh", err) }()

	if accessToken == "" {
		return "", domain.ErrTokenInvalid.WithMsg("missing token")
	}
	c, err := s.VerifyAccess(accessToken)
	if err != nil {
		return "", err
	}
	a, err := s.accounts.FindByID(ctx, c.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	tok, err = s.access.Issue(a.ID, a.Roles)
	if err != nil {
		return "", domain.Internal("issue token failed", err)
	}
	return tok, nil
}

// RefreshWithToken exchanges a stored refresh token for a new access token and
// a rotated refresh token. Every failure is ErrRefreshRejected.
func (s *AuthService) RefreshWithToken(ctx context.Context, refreshToken string) (sess *Session, err error) {
	defer func() { countAuth("refresh_token", err) }()

	if refreshToken == "" {
		return nil, domain.ErrMissingRefreshToken
	}
	c, err := s.refresh.Parse(refreshToken)
	if err != nil {
		s.log.Debug("refresh token rejected", zap.Error(err))
		return nil, domain.ErrRefreshRejected
	}
	a, err := s.accounts.FindByID(ctx, c.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrRefreshRejected
	}
	if err != nil {
		return nil, err
	}

	next, err := s.refresh.Issue(a.ID, nil)
	if err != nil {
		return nil, domain.Internal("issue refresh token failed", err)
	}
	if err := s.accounts.RotateRefreshToken(ctx, a.ID, refreshToken, next); err != nil {
		return nil, err
	}
	access, err := s.access.Issue(a.ID, a.Roles)
	if err != nil {
		return nil, domain.Internal("issue token failed", err)
	}
	return &Session{Account: a, AccessToken: access, RefreshToken: next}, nil
}

// Logout drops the refresh token from its account's set. Unknown tokens are
// not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { countAuth("logout", err) }()

	if refreshToken == "" {
		return domain.ErrMissingRefreshToken
	}
	return s.accounts.RemoveRefreshToken(ctx, refreshToken)
}

func (s *AuthService) Me(ctx context.Context, uid string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, uid)
}

func (s *AuthService) UpdateProfile(ctx context.Context, uid string, p domain.ProfileUpdate) (*domain.Account, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.accounts.UpdateProfile(ctx, uid, p)
}
