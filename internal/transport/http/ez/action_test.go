package ez

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"recipebox/internal/domain"
	mdw "recipebox/internal/transport/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type echoIn struct {
	Name string `json:"name" form:"name"`
}

func newEngine(act Action[echoIn, string], uid string, roles ...string) *gin.Engine {
	r := gin.New()
	g := r.Group("")
	if uid != "" {
		g.Use(func(c *gin.Context) {
			c.Set(mdw.CtxUserID, uid)
			c.Set(mdw.CtxRoles, roles)
		})
	}
	Register(New(g, nil), act)
	return r
}

func TestRegister_BindsJSON(t *testing.T) {
	r := newEngine(Action[echoIn, string]{
		Method: http.MethodPost, Path: "/echo", Binder: BindJSON, Status: http.StatusCreated,
		Handler: func(_ *gin.Context, in *echoIn) (string, error) { return "hi " + in.Name, nil },
	}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"bo"}`)))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"code":0,"msg":"OK","data":"hi bo"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{bad`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_AuthAndRoles(t *testing.T) {
	act := Action[echoIn, string]{
		Method: http.MethodGet, Path: "/x", Binder: BindQuery, Auth: true, Roles: []string{"admin"},
		Handler: func(*gin.Context, *echoIn) (string, error) { return "ok", nil },
	}
	cases := []struct {
		uid   string
		roles []string
		want  int
	}{
		{"", nil, http.StatusUnauthorized},
		{"u1", []string{"user"}, http.StatusForbidden},
		{"u1", []string{"user", "admin"}, http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newEngine(act, tc.uid, tc.roles...).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, tc.want, w.Code, "uid=%q roles=%v", tc.uid, tc.roles)
	}
}

func TestFail_MapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.Validation("title is required"), 400, "title is required"},
		{domain.ErrDuplicateSave, 400, "recipe already saved"},
		{domain.ErrTokenExpired, 401, "token expired"},
		{domain.ErrForbidden, 403, "forbidden"},
		{domain.ErrNotFound.WithMsg("recipe not found"), 404, "recipe not found"},
		{domain.ErrRateLimited, 429, "too many requests"},
		{errors.New("pq: connection refused"), 500, "internal error"},
	}
	for _, tc := range cases {
		r := newEngine(Action[echoIn, string]{
			Method: http.MethodGet, Path: "/f", Binder: BindNone,
			Handler: func(*gin.Context, *echoIn) (string, error) { return "", tc.err },
		}, "")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/f", nil))
		assert.Equal(t, tc.code, w.Code)
		assert.Contains(t, w.Body.String(), tc.msg)
	}
}

func TestFail_DeadlineIsTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(mdw.Timeout(10*time.Millisecond, zap.NewNop()))
	Register(New(r.Group(""), zap.New(core)), Action[echoIn, string]{
		Method: http.MethodGet, Path: "/slow", Binder: BindNone,
		Handler: func(c *gin.Context, _ *echoIn) (string, error) {
			ctx := c.Request.Context()
			<-ctx.Done()
			return "", domain.Internal("list recipes failed", ctx.Err())
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
	assert.NotContains(t, w.Body.String(), "internal error")
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len(), "a timeout is not a server fault")

	w = httptest.NewRecorder()
	r2 := newEngine(Action[echoIn, string]{
		Method: http.MethodGet, Path: "/f", Binder: BindNone,
		Handler: func(*gin.Context, *echoIn) (string, error) {
			return "", fmt.Errorf("query: %w", context.DeadlineExceeded)
		},
	}, "")
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/f", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
