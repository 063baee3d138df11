// Package config loads process settings from the environment.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"distro/internal/infrastructure/lock"
	"distro/internal/infrastructure/storage/postgres"
)

// Config holds every setting of the worker process.
type Config struct {
	Env      string
	LogLevel string

	Database postgres.PoolConfig

	// RedisAddr enables the Redis locker; empty keeps locks in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Lock          lock.Config

	// ReconcileInterval is the period of the status re-derivation sweep.
	ReconcileInterval time.Duration
	// ReconcileBatch is the page size of the sweep.
	ReconcileBatch int
	// AgingInterval is the period of the aging summary; zero disables it.
	AgingInterval time.Duration
}

// Development reports whether the process runs in development mode.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads the configuration.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (Config, error) {
	dsn := getEnv("DATABASE_URL", "")
	if dsn == "" {
		return Config{}, fmt.Errorf("required environment variable DATABASE_URL not set")
	}

	db := postgres.DefaultPoolConfig(dsn)
	db.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(db.MaxConns)))
	db.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(db.MinConns)))
	db.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", db.MaxConnLifetime)
	db.MaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", db.MaxConnIdleTime)
	db.ApplicationName = getEnv("DB_APPLICATION_NAME", db.ApplicationName)

	lk := lock.DefaultConfig()
	lk.TTL = getEnvDuration("LOCK_TTL", lk.TTL)
	lk.Wait = getEnvDuration("LOCK_WAIT", lk.Wait)
	lk.RetryInterval = getEnvDuration("LOCK_RETRY_INTERVAL", lk.RetryInterval)

	cfg := Config{
		Env:               getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Database:          db,
		RedisAddr:         getEnv("REDIS_ADDRESS", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		Lock:              lk,
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 10*time.Minute),
		ReconcileBatch:    getEnvInt("RECONCILE_BATCH", 500),
		AgingInterval:     getEnvDuration("AGING_INTERVAL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would make the worker misbehave.
func (c Config) Validate() error {
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	if c.ReconcileBatch <= 0 {
		return fmt.Errorf("RECONCILE_BATCH must be positive")
	}
	if c.AgingInterval < 0 {
		return fmt.Errorf("AGING_INTERVAL cannot be negative")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
