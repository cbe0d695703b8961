package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// query keys whose values never reach the log
var sensitiveQuery = map[string]bool{
	"password": true, "pwd": true, "token": true, "authorization": true,
	"refreshtoken": true, "refresh_token": true, "access_token": true,
	"secret": true, "client_secret": true,
}

// quietPaths are polled constantly by health checks and logged only when they fail.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

func maskQuery(kv map[string][]string) map[string][]string {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string][]string, len(kv))
	for k, v := range kv {
		if sensitiveQuery[strings.ToLower(k)] {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// AccessLog writes one line per request after the handler chain has run.
// Must sit after RequestID; the user id is present once AuthJWT has run.
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if quietPaths[path] && status < 400 {
			return
		}

		fields := []zap.Field{
			zap.String("rid", c.GetString(CtxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
		}
		if uid := c.GetString(CtxUserID); uid != "" {
			fields = append(fields, zap.String("uid", uid))
		}
		if q := maskQuery(c.Request.URL.Query()); q != nil {
			fields = append(fields, zap.Any("query", q))
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("ua", ua))
		}
		if ce := l.Check(accessLevel(status), "http request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
