package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

type Claims struct {
	UID   string   `json:"uid"`
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"typ"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token was issued with role r.
func (c *Claims) HasRole(r string) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// JWTer signs and verifies one kind of token. Access and refresh tokens use
// separate JWTers with separate secrets.
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Type   string // TypeAccess when empty
}

func (j *JWTer) tokenType() string {
	if j.Type == "" {
		return TypeAccess
	}
	return j.Type
}

func (j *JWTer) Issue(uid string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:   uid,
		Roles: roles,
		Type:  j.tokenType(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Parse returns ErrTokenExpired for a well-signed token past its expiry and
// ErrTokenInvalid (wrapped) for everything else.
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithLeeway(j.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrTokenInvalid
	}
	if c.Type != j.tokenType() || c.UID == "" {
		return nil, fmt.Errorf("%w: wrong token type", ErrTokenInvalid)
	}
	return c, nil
}
