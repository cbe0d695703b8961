package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/ez"
	mdw "recipebox/internal/transport/http/middleware"
)

type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	svc      *service.AuthService
	cookie   CookieOptions
	login    gin.HandlerFunc
	register gin.HandlerFunc
}

// NewAuthHandler wires the auth endpoints; login and register are the
// per-IP limiters for those routes and may be nil.
func NewAuthHandler(svc *service.AuthService, cookie CookieOptions, login, register gin.HandlerFunc) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{svc: svc, cookie: cookie, login: login, register: register}
}

func (h *AuthHandler) Priority() int { return 10 }

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshIn struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenOut struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (h *AuthHandler) setCookie(c *gin.Context, tok string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, tok, int(h.cookie.MaxAge/time.Second), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) MountAPI(r ez.Routes) {
	pub := ez.New(r.Public, r.Log)
	authed := ez.New(r.Authed, r.Log)

	ez.Register(pub, ez.Action[domain.Registration, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Use:    chain(h.register),
		Handler: func(c *gin.Context, in *domain.Registration) (tokenOut, error) {
			s, err := h.svc.Register(c.Request.Context(), *in)
			if err != nil {
				return tokenOut{}, err
			}
			h.setCookie(c, s.AccessToken)
			return tokenOut{Token: s.AccessToken}, nil
		},
	})

	ez.Register(pub, ez.Action[loginIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Use:    chain(h.login),
		Handler: func(c *gin.Context, in *loginIn) (tokenOut, error) {
			s, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return tokenOut{}, err
			}
			h.setCookie(c, s.AccessToken)
			return tokenOut{Token: s.AccessToken, RefreshToken: s.RefreshToken}, nil
		},
	})

	// cookie flow: a still-valid access token buys a fresh one
	ez.Register(pub, ez.Action[struct{}, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (tokenOut, error) {
			tok, err := h.svc.Refresh(c.Request.Context(), mdw.AccessToken(c, h.cookie.Name))
			if err != nil {
				return tokenOut{}, err
			}
			h.setCookie(c, tok)
			return tokenOut{Token: tok}, nil
		},
	})

	// header flow: a stored refresh token is rotated
	ez.Register(pub, ez.Action[refreshIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/refresh-token",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, in *refreshIn) (tokenOut, error) {
			if err := bindOptionalJSON(c, in); err != nil {
				return tokenOut{}, err
			}
			s, err := h.svc.RefreshWithToken(c.Request.Context(), in.RefreshToken)
			if err != nil {
				return tokenOut{}, err
			}
			return tokenOut{Token: s.AccessToken, RefreshToken: s.RefreshToken}, nil
		},
	})

	ez.Register(pub, ez.Action[refreshIn, message]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, in *refreshIn) (message, error) {
			if err := bindOptionalJSON(c, in); err != nil {
				return message{}, err
			}
			if err := h.svc.Logout(c.Request.Context(), in.RefreshToken); err != nil {
				return message{}, err
			}
			h.clearCookie(c)
			return message{Message: "logged out"}, nil
		},
	})

	ez.Register(authed, ez.Action[struct{}, *domain.Account]{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Account, error) {
			return h.svc.Me(c.Request.Context(), ez.UserID(c))
		},
	})
}
