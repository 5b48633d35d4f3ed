// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env            string         // APP_ENV: dev, test or prod
	Port           string         // APP_PORT: HTTP port to listen on
	DBUser         string         // DB_USER
	DBPass         string         // DB_PASS (optional)
	DBHost         string         // DB_HOST
	DBPort         string         // DB_PORT
	DBName         string         // DB_NAME
	DBMaxConns     int            // DB_MAX_CONNS
	JWTSecret      string         // JWT_SECRET: secret used to sign access tokens
	AccessTTLMin   int            // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int            // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int            // BCRYPT_COST
	Location       *time.Location // APP_TZ: zone that defines "today"
	LogLevel       string         // LOG_LEVEL
	AutoMigrate    bool           // DB_AUTO_MIGRATE: create missing tables on start
	CORSOrigins    []string       // APP_CORS_ORIGINS: comma separated browser origins

	Notify    NotifyConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// Load reads the configuration.  A .env file in the working directory is
// loaded first when present; variables already set in the environment
// win.  Every missing required variable is reported in one error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxConns:     envInt("DB_MAX_CONNS", 25),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
		CORSOrigins:    envList("APP_CORS_ORIGINS", "http://localhost:3000"),
		Notify:         LoadNotifyConfig(),
		Cache:          LoadCacheConfig(),
		RateLimit:      LoadRateLimitConfig(),
		Redis:          LoadRedisConfig(),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	loc, err := time.LoadLocation(envStr("APP_TZ", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid APP_TZ: %w", err)
	}
	cfg.Location = loc

	if cfg.AccessTTLMin < 1 || cfg.RefreshTTLDays < 1 {
		return Config{}, errors.New("token TTLs must be positive")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
	}
	return cfg, nil
}

// AccessTTL is the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// IsProduction reports whether APP_ENV is prod.
func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "prod") }

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

// envList splits a comma separated value, dropping empty entries.
func envList(k, d string) []string {
	out := []string{}
	for _, v := range strings.Split(envStr(k, d), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
