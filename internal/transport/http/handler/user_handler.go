package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/ez"
)

type UserHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
	write    gin.HandlerFunc
}

func NewUserHandler(auth *service.AuthService, accounts *service.AccountService, write gin.HandlerFunc) *UserHandler {
	return &UserHandler{auth: auth, accounts: accounts, write: write}
}

func (h *UserHandler) Priority() int { return 30 }

type saveIn struct {
	Collection string `json:"collection"`
}

type savedOut struct {
	Saved bool `json:"saved"`
}

func (h *UserHandler) MountAPI(r ez.Routes) {
	authed := ez.New(r.Authed, r.Log)

	ez.Register(authed, ez.Action[domain.ProfileUpdate, *domain.Account]{
		Method: http.MethodPut,
		Path:   "/user/profile",
		Binder: ez.BindJSON,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *domain.ProfileUpdate) (*domain.Account, error) {
			return h.auth.UpdateProfile(c.Request.Context(), ez.UserID(c), *in)
		},
	})

	ez.Register(authed, ez.Action[struct{}, []domain.SavedRecipe]{
		Method: http.MethodGet,
		Path:   "/user/saved",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.SavedRecipe, error) {
			return h.accounts.ListSaved(c.Request.Context(), ez.UserID(c))
		},
	})

	ez.Register(authed, ez.Action[saveIn, savedOut]{
		Method: http.MethodPost,
		Path:   "/user/save/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *saveIn) (savedOut, error) {
			if err := bindOptionalJSON(c, in); err != nil {
				return savedOut{}, err
			}
			if err := h.accounts.Save(c.Request.Context(), ez.UserID(c), c.Param("id"), in.Collection); err != nil {
				return savedOut{}, err
			}
			return savedOut{Saved: true}, nil
		},
	})

	ez.Register(authed, ez.Action[struct{}, savedOut]{
		Method: http.MethodPost,
		Path:   "/user/unsave/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, _ *struct{}) (savedOut, error) {
			if err := h.accounts.Unsave(c.Request.Context(), ez.UserID(c), c.Param("id")); err != nil {
				return savedOut{}, err
			}
			return savedOut{Saved: false}, nil
		},
	})
}
