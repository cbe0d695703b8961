// Package ez registers typed request handlers ("actions") on gin groups: bind
// the input, check auth, run the handler, map its error to an envelope.
package ez

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipebox/internal/domain"
	mdw "recipebox/internal/transport/http/middleware"
	resp "recipebox/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"  // request body
	BindQuery Binder = "query" // ?a=b
	BindNone  Binder = "none"  // handler reads c.Param itself
)

// Routes is what a module gets to mount itself on.
type Routes struct {
	Public *gin.RouterGroup // no token required
	Authed *gin.RouterGroup // behind AuthJWT
	Log    *zap.Logger
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// Action describes one endpoint. I is the bound input, O the data payload.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool     // require userId from AuthJWT
	Roles   []string // any one of these roles
	Status  int      // success status, 200 when zero
	Use     []gin.HandlerFunc
	Handler func(c *gin.Context, in *I) (O, error)
}

func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth && UserID(c) == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}
		if len(a.Roles) > 0 && !hasAnyRole(c, a.Roles) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		switch {
		case bindErr == nil:
		case mdw.TooLarge(bindErr):
			resp.Abort(c, resp.CodeTooLarge, "request body too large")
			return
		default:
			resp.Abort(c, resp.CodeBadRequest, "invalid request: "+bindErr.Error())
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, e.log, err)
			return
		}
		resp.Send(c, a.Status, out)
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Use...), h)
	e.g.Handle(strings.ToUpper(a.Method), a.Path, handlers...)
}

// Fail writes err as an envelope. Internal errors are logged and replaced by
// a generic message. Work cut short by the request deadline answers 504
// whatever layer wrapped it.
func Fail(c *gin.Context, l *zap.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		l.Warn("request timed out",
			zap.String("rid", c.GetString(mdw.CtxRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		resp.Abort(c, resp.CodeTimeout, "timeout")
		return
	}
	kind := domain.KindOf(err)
	code := CodeOf(kind)
	msg := err.Error()
	if kind == domain.KindInternal {
		l.Error("request failed",
			zap.String("rid", c.GetString(mdw.CtxRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal error"
	}
	resp.Abort(c, code, msg)
}

// CodeOf maps an error kind to its response code. Conflicts answer 400, the
// status clients already handle for duplicate accounts and saves.
func CodeOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindConflict:
		return resp.CodeBadRequest
	case domain.KindAuthentication:
		return resp.CodeUnauthorized
	case domain.KindAuthorization:
		return resp.CodeForbidden
	case domain.KindNotFound:
		return resp.CodeNotFound
	case domain.KindRateLimit:
		return resp.CodeTooManyRequests
	default:
		return resp.CodeServerError
	}
}

func UserID(c *gin.Context) string { return c.GetString(mdw.CtxUserID) }

func hasAnyRole(c *gin.Context, want []string) bool {
	have := c.GetStringSlice(mdw.CtxRoles)
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
