package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipebox/internal/core/auth"
	"recipebox/internal/core/ratelimit"
	"recipebox/internal/repo"
	"recipebox/internal/repo/repotest"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/handler"
	mdw "recipebox/internal/transport/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type stack struct {
	api      http.Handler
	admin    http.Handler
	accounts *service.AccountService
}

func newStack(t *testing.T, loginPerMin int) *stack {
	t.Helper()
	db := repotest.Open(t)
	accountRepo := repo.NewAccountRepo(db)
	recipeRepo := repo.NewRecipeRepo(db)
	access := &auth.JWTer{Secret: []byte("a-secret"), Issuer: "recipebox", TTL: 30 * time.Minute}
	refresh := &auth.JWTer{Secret: []byte("r-secret"), Issuer: "recipebox", TTL: time.Hour, Type: auth.TypeRefresh}

	authSvc := service.NewAuthService(accountRepo, access, refresh, nil)
	recipeSvc := service.NewRecipeService(recipeRepo, nil, time.Minute, nil)
	accountSvc := service.NewAccountService(accountRepo, recipeRepo)

	loginLim := ratelimit.NewMemory(loginPerMin, time.Minute)
	t.Cleanup(func() { _ = loginLim.Close() })
	l := zap.NewNop()

	reg := (&Registry{}).Register(
		handler.NewAuthHandler(authSvc, handler.CookieOptions{Name: "token", MaxAge: 30 * time.Minute},
			mdw.RateLimitPerIP(loginLim, "login", l), nil),
		handler.NewRecipeHandler(recipeSvc, nil),
		handler.NewUserHandler(authSvc, accountSvc, nil),
		handler.NewAdminHandler(accountSvc, recipeSvc),
	)
	opts := Options{Log: l, Verifier: authSvc, CookieName: "token"}
	return &stack{api: NewAPIEngine(opts, reg), admin: NewAdminEngine(opts, reg), accounts: accountSvc}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func registerAndLogin(t *testing.T, s *stack, name, email string) tokens {
	t.Helper()
	w, _ := call(t, s.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": name, "email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, env := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return data[tokens](t, env)
}

func recipeBody() gin.H {
	return gin.H{
		"title":       "Shakshuka",
		"ingredients": []string{"eggs", "tomatoes"},
		"steps":       []string{"simmer", "crack eggs"},
		"category":    "breakfast",
		"cookTime":    20,
	}
}

func TestAPI_Health(t *testing.T) {
	s := newStack(t, 5)
	w, _ := call(t, s.api, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, s.api, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_AuthFlow(t *testing.T) {
	s := newStack(t, 50)
	tk := registerAndLogin(t, s, "A", "a@x.com")
	assert.NotEmpty(t, tk.Token)
	assert.NotEmpty(t, tk.RefreshToken)

	w, env := call(t, s.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "A", "email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email already registered", env.Msg)

	_, envUnknown := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "zz@x.com", "password": "secret1"})
	w, envWrong := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@x.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, envUnknown, envWrong)

	w, env = call(t, s.api, http.MethodGet, "/api/v1/auth/me", tk.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", data[map[string]any](t, env)["email"])

	w, _ = call(t, s.api, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh", tk.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, data[tokens](t, env).Token)
	w, _ = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh-token", "", gin.H{"refreshToken": tk.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := data[tokens](t, env)
	assert.NotEqual(t, tk.RefreshToken, rotated.RefreshToken)

	w, _ = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh-token", "", gin.H{"refreshToken": tk.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(t, s.api, http.MethodPost, "/api/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = call(t, s.api, http.MethodPost, "/api/v1/auth/logout", "", gin.H{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh-token", "", gin.H{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_LoginSetsHTTPOnlyCookie(t *testing.T) {
	s := newStack(t, 5)
	registerAndLogin(t, s, "A", "a@x.com")

	w, _ := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_LoginRateLimited(t *testing.T) {
	s := newStack(t, 2)
	body := gin.H{"email": "x@x.com", "password": "whatever"}
	codes := []int{}
	for i := 0; i < 3; i++ {
		w, _ := call(t, s.api, http.MethodPost, "/api/v1/auth/login", "", body)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{400, 400, 429}, codes)
}

func TestAPI_RecipeAndComments(t *testing.T) {
	s := newStack(t, 50)
	a := registerAndLogin(t, s, "A", "a@x.com")
	b := registerAndLogin(t, s, "B", "b@x.com")

	w, _ := call(t, s.api, http.MethodPost, "/api/v1/recipes", "", recipeBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := recipeBody()
	bad["title"] = "x"
	w, env := call(t, s.api, http.MethodPost, "/api/v1/recipes", a.Token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Msg, "title")

	w, env = call(t, s.api, http.MethodPost, "/api/v1/recipes", a.Token, recipeBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := data[map[string]any](t, env)["id"].(string)

	w, _ = call(t, s.api, http.MethodPut, "/api/v1/recipes/"+id, b.Token, recipeBody())
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = call(t, s.api, http.MethodGet, "/api/v1/recipes/bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	type agg struct {
		Comments []struct {
			ID string `json:"id"`
		} `json:"comments"`
		AverageRating float64 `json:"averageRating"`
	}
	w, env = call(t, s.api, http.MethodPost, "/api/v1/recipes/"+id+"/comments", a.Token, gin.H{"text": "Great", "rating": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := data[agg](t, env).Comments[0].ID
	_, env = call(t, s.api, http.MethodPost, "/api/v1/recipes/"+id+"/comments", b.Token, gin.H{"text": "Meh", "rating": 3})
	assert.Equal(t, 4.0, data[agg](t, env).AverageRating)

	w, _ = call(t, s.api, http.MethodDelete, "/api/v1/recipes/"+id+"/comments/"+first, b.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = call(t, s.api, http.MethodDelete, "/api/v1/recipes/"+id+"/comments/"+first, a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, data[agg](t, env).AverageRating)

	w, env = call(t, s.api, http.MethodGet, "/api/v1/recipes/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, data[map[string]any](t, env)["commentCount"])

	w, env = call(t, s.api, http.MethodPost, "/api/v1/recipes/"+id+"/like", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, data[map[string]any](t, env)["likes"])

	w, env = call(t, s.api, http.MethodGet, "/api/v1/recipes?q=shak&limit=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := data[map[string]any](t, env)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 100, page["limit"])

	w, _ = call(t, s.api, http.MethodDelete, "/api/v1/recipes/"+id, b.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = call(t, s.api, http.MethodDelete, "/api/v1/recipes/"+id, a.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, s.api, http.MethodGet, "/api/v1/recipes/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_SaveAndUnsave(t *testing.T) {
	s := newStack(t, 50)
	a := registerAndLogin(t, s, "A", "a@x.com")
	_, env := call(t, s.api, http.MethodPost, "/api/v1/recipes", a.Token, recipeBody())
	id := data[map[string]any](t, env)["id"].(string)

	w, env := call(t, s.api, http.MethodPost, "/api/v1/user/save/"+id, a.Token, gin.H{"collection": "General"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, data[map[string]any](t, env)["saved"])

	w, env = call(t, s.api, http.MethodPost, "/api/v1/user/save/"+id, a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "recipe already saved", env.Msg)

	w, env = call(t, s.api, http.MethodGet, "/api/v1/user/saved", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data[[]map[string]any](t, env), 1)

	w, _ = call(t, s.api, http.MethodPost, "/api/v1/user/unsave/"+id, a.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, s.api, http.MethodPost, "/api/v1/user/unsave/"+id, a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_RequiresRole(t *testing.T) {
	s := newStack(t, 50)
	a := registerAndLogin(t, s, "A", "a@x.com")

	w, _ := call(t, s.admin, http.MethodGet, "/admin/v1/accounts", a.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, env := call(t, s.api, http.MethodGet, "/api/v1/auth/me", a.Token, nil)
	uid := data[map[string]any](t, env)["id"].(string)
	_, err := s.accounts.SetRoles(t.Context(), uid, []string{"user", "admin"})
	require.NoError(t, err)

	// roles live in the token, so a fresh one is needed
	_, env = call(t, s.api, http.MethodPost, "/api/v1/auth/refresh", a.Token, nil)
	admin := data[tokens](t, env).Token

	w, env = call(t, s.admin, http.MethodGet, "/admin/v1/accounts?q=a@x", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, data[map[string]any](t, env)["total"])

	w, _ = call(t, s.admin, http.MethodPut, "/admin/v1/accounts/"+uid+"/roles", admin, gin.H{"roles": []string{"root"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = call(t, s.admin, http.MethodGet, "/admin/v1/recipes", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
