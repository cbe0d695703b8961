package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipebox/internal/core/ratelimit"
	resp "recipebox/internal/transport/http/response"
)

// RateLimit is a process-wide token bucket in front of everything else.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.CodeTooManyRequests, "too many requests")
	}
}

// RateLimitPerIP applies l to each client IP under scope. A limiter backend
// failure lets the request through.
func RateLimitPerIP(l ratelimit.Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			resp.Abort(c, resp.CodeTooManyRequests, "too many requests, try again later")
			return
		}
		c.Next()
	}
}
