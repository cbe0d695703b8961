package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/ez"
)

type RecipeHandler struct {
	svc   *service.RecipeService
	write gin.HandlerFunc
}

// NewRecipeHandler mounts the recipe and comment endpoints; write limits
// every mutating route and may be nil.
func NewRecipeHandler(svc *service.RecipeService, write gin.HandlerFunc) *RecipeHandler {
	return &RecipeHandler{svc: svc, write: write}
}

func (h *RecipeHandler) Priority() int { return 20 }

type listRecipesQ struct {
	domain.RecipeFilter
	domain.Page
}

type likesOut struct {
	Likes int `json:"likes"`
}

func (h *RecipeHandler) MountAPI(r ez.Routes) {
	pub := ez.New(r.Public, r.Log)
	authed := ez.New(r.Authed, r.Log)

	ez.Register(pub, ez.Action[listRecipesQ, *service.RecipePage]{
		Method: http.MethodGet,
		Path:   "/recipes",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listRecipesQ) (*service.RecipePage, error) {
			return h.svc.List(c.Request.Context(), in.RecipeFilter, in.Page)
		},
	})

	ez.Register(pub, ez.Action[struct{}, *domain.Recipe]{
		Method: http.MethodGet,
		Path:   "/recipes/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Recipe, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.Register(authed, ez.Action[domain.RecipeFields, *domain.Recipe]{
		Method: http.MethodPost,
		Path:   "/recipes",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *domain.RecipeFields) (*domain.Recipe, error) {
			return h.svc.Create(c.Request.Context(), ez.UserID(c), *in)
		},
	})

	ez.Register(authed, ez.Action[domain.RecipeFields, *domain.Recipe]{
		Method: http.MethodPut,
		Path:   "/recipes/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *domain.RecipeFields) (*domain.Recipe, error) {
			return h.svc.Update(c.Request.Context(), ez.UserID(c), c.Param("id"), *in)
		},
	})

	ez.Register(authed, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/recipes/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.svc.Delete(c.Request.Context(), ez.UserID(c), c.Param("id")); err != nil {
				return nil, err
			}
			return gin.H{"msg": "recipe deleted"}, nil
		},
	})

	ez.Register(authed, ez.Action[domain.CommentInput, *domain.Aggregate]{
		Method: http.MethodPost,
		Path:   "/recipes/:id/comments",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *domain.CommentInput) (*domain.Aggregate, error) {
			return h.svc.AddComment(c.Request.Context(), ez.UserID(c), c.Param("id"), *in)
		},
	})

	ez.Register(authed, ez.Action[domain.CommentInput, *domain.Aggregate]{
		Method: http.MethodPut,
		Path:   "/recipes/:id/comments/:cid",
		Binder: ez.BindJSON,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *domain.CommentInput) (*domain.Aggregate, error) {
			return h.svc.UpdateComment(c.Request.Context(), ez.UserID(c), c.Param("id"), c.Param("cid"), *in)
		},
	})

	ez.Register(authed, ez.Action[struct{}, *domain.Aggregate]{
		Method: http.MethodDelete,
		Path:   "/recipes/:id/comments/:cid",
		Binder: ez.BindNone,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Aggregate, error) {
			return h.svc.DeleteComment(c.Request.Context(), ez.UserID(c), c.Param("id"), c.Param("cid"))
		},
	})

	for _, like := range []struct {
		method string
		liked  bool
	}{{http.MethodPost, true}, {http.MethodDelete, false}} {
		liked := like.liked
		ez.Register(authed, ez.Action[struct{}, likesOut]{
			Method: like.method,
			Path:   "/recipes/:id/like",
			Binder: ez.BindNone,
			Auth:   true,
			Use:    chain(h.write),
			Handler: func(c *gin.Context, _ *struct{}) (likesOut, error) {
				n, err := h.svc.SetLike(c.Request.Context(), ez.UserID(c), c.Param("id"), liked)
				return likesOut{Likes: n}, err
			},
		})
	}
}
