package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	PresenceRedis   = "redis"
)

type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	StorageDriver string
	PresenceStore string
	RedisURL      string

	JWTSecret     string
	PublicBaseURL string
	LoginURL      string

	PresenceTokenTTL    time.Duration
	RequestTimeout      time.Duration
	CredentialRetention time.Duration

	LogLevel slog.Level

	// Args holds the positional arguments left after the flags.
	Args []string
}

// LoadDotEnv reads .env when it exists. A missing file is not an error.
func LoadDotEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}
}

// Parse reads flags from args, falling back to the environment and then
// to defaults.
func Parse(name string, args []string) (Config, error) {
	var cfg Config
	var ttl, timeout, retention, level string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", envOr("HTTP_ADDR", "0.0.0.0:8080"), "HTTP listen address")
	fs.StringVar(&cfg.DBHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	fs.StringVar(&cfg.DBPort, "db-port", envOr("POSTGRES_PORT", "5432"), "Database port")
	fs.StringVar(&cfg.DBUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	fs.StringVar(&cfg.DBPassword, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	fs.StringVar(&cfg.DBName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	fs.StringVar(&cfg.StorageDriver, "storage", envOr("STORAGE_DRIVER", StoragePostgres), "Storage driver (postgres or memory)")
	fs.StringVar(&cfg.PresenceStore, "presence-store", envOr("PRESENCE_STORE", StoragePostgres), "Presence credential store (postgres or redis)")
	fs.StringVar(&cfg.RedisURL, "redis-url", envOr("REDIS_URL", "redis://localhost:6379/0"), "Redis URL")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT signing secret (prefer env)")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", envOr("PUBLIC_BASE_URL", "http://localhost:8080"), "Public base URL used in verification links")
	fs.StringVar(&cfg.LoginURL, "login-url", envOr("LOGIN_URL", "/login"), "Login page for unauthenticated scans")
	fs.StringVar(&ttl, "token-ttl", envOr("PRESENCE_TOKEN_TTL", "30s"), "Presence token lifetime")
	fs.StringVar(&timeout, "request-timeout", envOr("REQUEST_TIMEOUT", "10s"), "Per request deadline")
	fs.StringVar(&retention, "credential-retention", envOr("CREDENTIAL_RETENTION", "24h"), "How long expired credentials are kept")
	fs.StringVar(&level, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()

	var err error
	if cfg.PresenceTokenTTL, err = parsePositive("PRESENCE_TOKEN_TTL", ttl); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parsePositive("REQUEST_TIMEOUT", timeout); err != nil {
		return Config{}, err
	}
	if cfg.CredentialRetention, err = parsePositive("CREDENTIAL_RETENTION", retention); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL %q", level)
	}

	switch cfg.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	switch cfg.PresenceStore {
	case StoragePostgres, PresenceRedis:
	default:
		return Config{}, fmt.Errorf("unknown PRESENCE_STORE %q", cfg.PresenceStore)
	}

	return cfg, nil
}

// RequireJWTSecret fails when the server would accept unsigned sessions.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET required (use -jwt-secret or JWT_SECRET env)")
	}
	return nil
}

func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// VerificationURL is the link encoded in a presence QR code.
func (c Config) VerificationURL(token string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/presence/scan/" + token
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositive(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}
