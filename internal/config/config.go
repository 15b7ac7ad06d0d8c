package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	env "github.com/Skotchmaster/restaurant_admin/pkg/config"
)

var ErrConfig = errors.New("invalid config")

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	AuthSecret []byte
	BackendURL string

	BackendTimeout time.Duration

	SessionMaxAge     time.Duration
	SessionCookieName string
	CookieSecure      bool
	LoginPath         string

	RevocationStore string
	DatabaseURL     string
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string

	KafkaBrokers []string
	KafkaTopic   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Load reads .env (when present) and the process environment.
// AUTH_SECRET and BACKEND_URL are required.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr: env.EnvDefault("LISTEN_ADDR", ":3000"),
		LogLevel:   env.EnvDefault("LOG_LEVEL", "info"),

		AuthSecret: []byte(os.Getenv("AUTH_SECRET")),
		BackendURL: strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),

		BackendTimeout: env.EnvDurationDefault("BACKEND_TIMEOUT", 10*time.Second),

		SessionMaxAge:     env.EnvDurationDefault("SESSION_MAX_AGE", 30*24*time.Hour),
		SessionCookieName: env.EnvDefault("SESSION_COOKIE_NAME", "session-token"),
		CookieSecure:      env.EnvBoolDefault("COOKIE_SECURE", true),
		LoginPath:         env.EnvDefault("LOGIN_PATH", "/login"),

		RevocationStore: strings.ToLower(env.EnvDefault("REVOCATION_STORE", StoreSQLite)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      env.EnvDefault("SQLITE_PATH", "restaurant_admin.db"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: env.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   env.EnvDefault("KAFKA_TOPIC", "session_events"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := env.NonEmptyBytes(c.AuthSecret, "AUTH_SECRET"); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := env.NonEmpty(c.BackendURL, "BACKEND_URL"); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute url: %w", ErrConfig)
	}

	switch c.RevocationStore {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is empty: %w", ErrConfig)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REVOCATION_STORE=postgres requires DATABASE_URL: %w", ErrConfig)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REVOCATION_STORE=redis requires REDIS_ADDR: %w", ErrConfig)
		}
	default:
		return fmt.Errorf("unknown REVOCATION_STORE %q: %w", c.RevocationStore, ErrConfig)
	}
	return nil
}

// GoogleEnabled reports whether all three Google OAuth settings are present.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}
