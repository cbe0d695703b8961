package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "recipebox/internal/transport/http/response"
)

// Timeout puts a deadline on the request context, which repositories pass to
// the database. A handler that ran out of time without answering gets a 504.
func Timeout(d time.Duration, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		l.Warn("request deadline exceeded",
			zap.String("rid", c.GetString(CtxRequestID)),
			zap.String("path", c.FullPath()),
			zap.Duration("limit", d),
			zap.Bool("answered", c.Writer.Written()),
		)
		if !c.Writer.Written() {
			resp.Abort(c, resp.CodeTimeout, "timeout")
		}
	}
}
