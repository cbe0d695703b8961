package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipebox/internal/core/server"
	"recipebox/internal/transport/http/ez"
	mdw "recipebox/internal/transport/http/middleware"
)

type Options struct {
	Log         *zap.Logger
	Verifier    mdw.TokenVerifier
	CookieName  string
	CORSOrigins []string
	GlobalRPS   float64
	GlobalBurst int
	MaxInFlight int64
	QueueWait   time.Duration
	MaxBody     int64
	Timeout     time.Duration
}

func (o *Options) defaults() {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.GlobalRPS <= 0 {
		o.GlobalRPS = 200
	}
	if o.GlobalBurst <= 0 {
		o.GlobalBurst = 400
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	if o.QueueWait <= 0 {
		o.QueueWait = 2 * time.Second
	}
	if o.MaxBody <= 0 {
		o.MaxBody = 1 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
}

// newEngine builds the shared middleware chain plus /health and /metrics.
func newEngine(o Options) *gin.Engine {
	r := server.NewRouter(o.Log, o.CORSOrigins)
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(o.Log),
		mdw.RateLimit(rate.Limit(o.GlobalRPS), o.GlobalBurst),
		mdw.ConcurrencyLimit(o.MaxInFlight, o.QueueWait),
		mdw.MaxBodyBytes(o.MaxBody),
		mdw.Timeout(o.Timeout, o.Log),
		mdw.Metrics(),
		mdw.AccessLog(o.Log),
	)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func NewAPIEngine(o Options, reg *Registry) *gin.Engine {
	o.defaults()
	r := newEngine(o)

	api := r.Group("/api/v1")
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(o.Verifier, o.CookieName, ""))

	reg.MountAPI(ez.Routes{Public: api, Authed: authed, Log: o.Log})
	return r
}
