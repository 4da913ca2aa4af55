// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Import   ImportConfig
	Staging  StagingConfig
}

type AppConfig struct {
	Env      string `env:"APP_ENV" default:"development"`
	Port     string `env:"PORT" default:"3000"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`
}

// DatabaseConfig uses DATABASE_URL when set, otherwise the DB_* parts.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" default:"localhost"`
	User     string `env:"DB_USER" default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" default:"catalog"`
	Port     string `env:"DB_PORT" default:"5432"`
	TimeZone string `env:"DB_TIMEZONE" default:"UTC"`
	LogLevel string `env:"DB_LOG_LEVEL" default:"warn"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type ImportConfig struct {
	// BatchTTL is how long a previewed batch stays confirmable
	BatchTTL     time.Duration `env:"IMPORT_BATCH_TTL" default:"30m"`
	MaxFileBytes int64         `env:"IMPORT_MAX_FILE_BYTES" default:"10485760"`
}

// StagingConfig picks where previewed batches wait for confirmation.
type StagingConfig struct {
	Backend    string `env:"STAGING_BACKEND" default:"memory"`
	RedisURL   string `env:"REDIS_URL" envAlt:"REDIS_ADDR"`
	BadgerPath string `env:"BADGER_PATH" default:"./data/staging"`
}

const (
	StagingMemory = "memory"
	StagingRedis  = "redis"
	StagingBadger = "badger"
)

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.TimeZone,
	)
}

func (c *Config) IsProduction() bool { return c.App.Env == "production" }

func (c *Config) Validate() error {
	var errs []error

	if c.Import.BatchTTL <= 0 {
		errs = append(errs, errors.New("IMPORT_BATCH_TTL must be positive"))
	}
	if c.Import.MaxFileBytes <= 0 {
		errs = append(errs, errors.New("IMPORT_MAX_FILE_BYTES must be positive"))
	}

	switch c.Staging.Backend {
	case StagingMemory, StagingBadger:
	case StagingRedis:
		if c.Staging.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when STAGING_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("STAGING_BACKEND must be memory, redis or badger, got %q", c.Staging.Backend))
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	return errors.Join(errs...)
}
