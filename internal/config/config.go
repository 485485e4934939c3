package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	// RedisAddr selects the Redis session store; empty keeps sessions in memory.
	RedisAddr     string
	RedisPassword string

	SessionTTL     time.Duration
	CookieSecure   bool
	CookieSameSite http.SameSite

	BcryptCost int
	GinMode    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Config{
		AppPort: getenv("APP_PORT", "8080"),

		DatabaseDriver: getenv("DATABASE_DRIVER", "sqlite3"),
		DatabaseDSN:    getenv("DATABASE_DSN", "library.db"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GinMode: getenv("GIN_MODE", "release"),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getenv("SESSION_TTL", "24h")); err != nil || cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("config: invalid SESSION_TTL %q", os.Getenv("SESSION_TTL"))
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getenv("COOKIE_SECURE", "false")); err != nil {
		return Config{}, fmt.Errorf("config: invalid COOKIE_SECURE: %w", err)
	}
	if cfg.CookieSameSite, err = parseSameSite(getenv("COOKIE_SAMESITE", "lax")); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = strconv.Atoi(getenv("BCRYPT_COST", "12")); err != nil {
		return Config{}, fmt.Errorf("config: invalid BCRYPT_COST: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: invalid COOKIE_SAMESITE %q", s)
	}
}
