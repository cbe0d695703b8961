// Package app builds the process-wide dependencies both binaries share and
// owns their teardown.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"recipebox/internal/core/auth"
	"recipebox/internal/core/cache"
	"recipebox/internal/core/config"
	"recipebox/internal/core/database"
	"recipebox/internal/core/logger"
	"recipebox/internal/core/ratelimit"
	"recipebox/internal/core/storage"
	"recipebox/internal/repo"
	"recipebox/internal/service"
	"recipebox/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // nil when redis is disabled

	Auth     *service.AuthService
	Recipes  *service.RecipeService
	Accounts *service.AccountService
	Uploads  *service.UploadService // nil when s3 is not configured

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.onClose(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	l.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	if cfg.Redis.Enable {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.onClose(a.Cache.Close)
		if err := a.Cache.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	access := &auth.JWTer{
		Secret: []byte(cfg.Auth.AccessSecret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTTL(),
		Leeway: cfg.Auth.Leeway(),
		Type:   auth.TypeAccess,
	}
	refresh := &auth.JWTer{
		Secret: []byte(cfg.Auth.RefreshSecret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.RefreshTTL(),
		Leeway: cfg.Auth.Leeway(),
		Type:   auth.TypeRefresh,
	}

	accounts := repo.NewAccountRepo(db)
	recipes := repo.NewRecipeRepo(db)
	a.Auth = service.NewAuthService(accounts, access, refresh, l.Named("auth"))
	a.Recipes = service.NewRecipeService(recipes, a.Cache, cfg.Cache.RecipeTTL(), l.Named("recipe"))
	a.Accounts = service.NewAccountService(accounts, recipes)

	if cfg.S3.Enabled() {
		store, err := storage.NewS3(ctx, storage.Options{
			Bucket:        cfg.S3.Bucket,
			Region:        cfg.S3.Region,
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			PresignTTL:    time.Duration(cfg.S3.PresignTTLMin) * time.Minute,
			UsePathStyle:  cfg.S3.UsePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Uploads = service.NewUploadService(store, l.Named("upload"))
		l.Info("image uploads enabled", zap.String("bucket", cfg.S3.Bucket))
	}
	return a, nil
}

func (a *App) onClose(f func() error) { a.closers = append(a.closers, f) }

// Limiter builds a limiter on the configured backend. Memory limiters are
// stopped by Close.
func (a *App) Limiter(scope string, limit int, window time.Duration) ratelimit.Limiter {
	if a.Cfg.RateLimit.Backend == "redis" && a.Cache != nil {
		return ratelimit.NewRedis(a.Cache.RDB, scope, limit, window)
	}
	m := ratelimit.NewMemory(limit, window)
	a.onClose(m.Close)
	return m
}

func (a *App) RouterOptions() router.Options {
	return router.Options{
		Log:         a.Log,
		Verifier:    a.Auth,
		CookieName:  a.Cfg.Auth.CookieName,
		CORSOrigins: a.Cfg.App.HTTP.CORSOrigins,
		GlobalRPS:   a.Cfg.RateLimit.GlobalRPS,
		GlobalBurst: a.Cfg.RateLimit.GlobalBurst,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
