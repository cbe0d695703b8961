package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	CORSOrigins     []string `mapstructure:"corsOrigins"`
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Auth struct {
	AccessSecret         string
	RefreshSecret        string
	Issuer               string
	AccessTokenTTLMin    int
	RefreshTokenTTLHours int
	LeewaySec            int
	CookieName           string
}

func (a Auth) AccessTTL() time.Duration  { return time.Duration(a.AccessTokenTTLMin) * time.Minute }
func (a Auth) RefreshTTL() time.Duration { return time.Duration(a.RefreshTokenTTLHours) * time.Hour }
func (a Auth) Leeway() time.Duration     { return time.Duration(a.LeewaySec) * time.Second }

type Redis struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type RateLimit struct {
	Backend        string // memory | redis
	LoginPerMin    int
	RegisterPerMin int
	WritePerWindow int
	WindowSec      int
	GlobalRPS      float64 `mapstructure:"globalRPS"`
	GlobalBurst    int
}

func (r RateLimit) Window() time.Duration { return time.Duration(r.WindowSec) * time.Second }

type Cache struct {
	RecipeTTLSec int
}

func (c Cache) RecipeTTL() time.Duration { return time.Duration(c.RecipeTTLSec) * time.Second }

type S3 struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string `mapstructure:"publicBaseURL"`
	PresignTTLMin int
	UsePathStyle  bool
}

func (s S3) Enabled() bool { return s.Bucket != "" }

type Config struct {
	App       App
	Log       Log
	Auth      Auth
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	RateLimit RateLimit
	Cache     Cache
	S3        S3 `mapstructure:"s3"`
}

// Production drives the Secure flag of auth cookies.
func (c *Config) Production() bool { return strings.EqualFold(c.App.Env, "production") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recipebox")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.corsOrigins", []string{"http://localhost:5173"})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/recipebox.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 5)
	v.SetDefault("log.file.maxAgeDays", 14)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("auth.accessSecret", "")
	v.SetDefault("auth.refreshSecret", "")
	v.SetDefault("auth.issuer", "recipebox")
	v.SetDefault("auth.accessTokenTTLMin", 30)
	v.SetDefault("auth.refreshTokenTTLHours", 168)
	v.SetDefault("auth.leewaySec", 0)
	v.SetDefault("auth.cookieName", "token")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:recipebox.db?_pragma=foreign_keys(1)")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.loginPerMin", 5)
	v.SetDefault("rateLimit.registerPerMin", 5)
	v.SetDefault("rateLimit.writePerWindow", 30)
	v.SetDefault("rateLimit.windowSec", 60)
	v.SetDefault("rateLimit.globalRPS", 200)
	v.SetDefault("rateLimit.globalBurst", 400)

	v.SetDefault("cache.recipeTTLSec", 60)

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.accessKey", "")
	v.SetDefault("s3.secretKey", "")
	v.SetDefault("s3.publicBaseURL", "")
	v.SetDefault("s3.presignTTLMin", 15)
	v.SetDefault("s3.usePathStyle", true)
}

// Load reads the YAML file at path (CONFIG_PATH or the local default when
// empty) and applies APP_* environment overrides, e.g. APP_AUTH_ACCESSSECRET.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := true
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path, explicit = defaultPath, false
		}
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("auth.accessSecret is required"))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("auth.refreshSecret is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("auth.refreshSecret must differ from auth.accessSecret"))
	}
	if c.Auth.AccessTokenTTLMin <= 0 {
		errs = append(errs, errors.New("auth.accessTokenTTLMin must be positive"))
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enable {
			errs = append(errs, errors.New("rateLimit.backend=redis needs redis.enable"))
		}
	default:
		errs = append(errs, fmt.Errorf("rateLimit.backend %q unknown", c.RateLimit.Backend))
	}
	return errors.Join(errs...)
}
