package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/ez"
)

// AdminHandler is mounted on the admin engine, whose group already requires
// the admin role.
type AdminHandler struct {
	accounts *service.AccountService
	recipes  *service.RecipeService
}

func NewAdminHandler(accounts *service.AccountService, recipes *service.RecipeService) *AdminHandler {
	return &AdminHandler{accounts: accounts, recipes: recipes}
}

type listAccountsQ struct {
	Q string `form:"q"`
	domain.Page
}

type rolesIn struct {
	Roles []string `json:"roles" binding:"required"`
}

func (h *AdminHandler) MountAdmin(r ez.Routes) {
	admin := ez.New(r.Authed, r.Log)
	roles := []string{domain.RoleAdmin}

	ez.Register(admin, ez.Action[listAccountsQ, *service.AccountPage]{
		Method: http.MethodGet,
		Path:   "/accounts",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *listAccountsQ) (*service.AccountPage, error) {
			return h.accounts.List(c.Request.Context(), in.Q, in.Page)
		},
	})

	ez.Register(admin, ez.Action[rolesIn, *domain.Account]{
		Method: http.MethodPut,
		Path:   "/accounts/:id/roles",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *rolesIn) (*domain.Account, error) {
			return h.accounts.SetRoles(c.Request.Context(), c.Param("id"), in.Roles)
		},
	})

	ez.Register(admin, ez.Action[listRecipesQ, *service.RecipePage]{
		Method: http.MethodGet,
		Path:   "/recipes",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *listRecipesQ) (*service.RecipePage, error) {
			return h.recipes.List(c.Request.Context(), in.RecipeFilter, in.Page)
		},
	})
}
