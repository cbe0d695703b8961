package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "recipebox/internal/transport/http/response"
)

// ConcurrencyLimit lets at most max requests run at once. A request waits up
// to wait for a slot and is answered 503 after that.
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				resp.Abort(c, resp.CodeUnavailable, "server busy")
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
