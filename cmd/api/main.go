package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"recipebox/internal/app"
	"recipebox/internal/core/config"
	"recipebox/internal/core/logger"
	"recipebox/internal/core/server"
	"recipebox/internal/transport/http/handler"
	mdw "recipebox/internal/transport/http/middleware"
	"recipebox/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Production(),
		Rotate:      logger.FileRotate(cfg.Log.File),
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	rl := cfg.RateLimit
	named := log.Named("ratelimit")
	login := mdw.RateLimitPerIP(a.Limiter("login", rl.LoginPerMin, time.Minute), "login", named)
	register := mdw.RateLimitPerIP(a.Limiter("register", rl.RegisterPerMin, time.Minute), "register", named)
	write := mdw.RateLimitPerIP(a.Limiter("write", rl.WritePerWindow, rl.Window()), "write", named)

	reg := &router.Registry{}
	reg.Register(
		handler.NewAuthHandler(a.Auth, handler.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Production(),
			MaxAge: cfg.Auth.AccessTTL(),
		}, login, register),
		handler.NewRecipeHandler(a.Recipes, write),
		handler.NewUserHandler(a.Auth, a.Accounts, write),
	)
	if a.Uploads != nil {
		reg.Register(handler.NewUploadHandler(a.Uploads, write))
	}
	r := router.NewAPIEngine(a.RouterOptions(), reg)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("env", cfg.App.Env),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.Bool("uploads", a.Uploads != nil),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("user api start failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("user api shutdown", zap.Error(err))
	}
	log.Info("user api stopped gracefully")
}
