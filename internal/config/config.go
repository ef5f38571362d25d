package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	appvalidator "github.com/fairyhunter13/love-coupon-system/internal/validator"
)

// Day window policies accepted by DAY_WINDOW_POLICY.
const (
	WindowCalendar = "calendar"
	WindowRolling  = "rolling"
)

// Keyed store backends accepted by KV_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Log        LogConfig
	Engine     EngineConfig
	Store      StoreConfig
	SoftDelete SoftDeleteConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name        string `envconfig:"DB_NAME" default:"love_coupons"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// EngineConfig holds the redemption rule tunables.
type EngineConfig struct {
	CreationQuota        int    `envconfig:"CREATION_QUOTA" default:"4" validate:"min=0"`
	ImageVisibilityHours int    `envconfig:"IMAGE_VISIBILITY_HOURS" default:"12" validate:"gt=0"`
	DayWindowPolicy      string `envconfig:"DAY_WINDOW_POLICY" default:"calendar" validate:"oneof=calendar rolling"`
	Timezone             string `envconfig:"TIMEZONE" default:"UTC" validate:"timezone"`
}

// Location resolves Timezone into a *time.Location.
func (c EngineConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ImageVisibility returns the image viewing window as a duration.
func (c EngineConfig) ImageVisibility() time.Duration {
	return time.Duration(c.ImageVisibilityHours) * time.Hour
}

// Validate rejects values the rule engine cannot work with.
func (c EngineConfig) Validate() error {
	return check(c)
}

// StoreConfig selects and configures the keyed store used for favorites,
// achievements, reminders and pending deletes.
type StoreConfig struct {
	Backend       string `envconfig:"KV_BACKEND" default:"memory" validate:"oneof=memory redis"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SoftDeleteConfig holds the undo window for coupon deletion.
type SoftDeleteConfig struct {
	Timeout       time.Duration `envconfig:"SOFT_DELETE_TIMEOUT" default:"30s" validate:"gt=0"`
	SweepInterval time.Duration `envconfig:"SOFT_DELETE_SWEEP_INTERVAL" default:"1s" validate:"gt=0"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := check(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check runs the validate tags and reports the first failure by its variable name.
func check(v any) error {
	err := appvalidator.New().Struct(v)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		if fe.Param() != "" {
			return fmt.Errorf("invalid configuration: %s=%v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid configuration: %s=%v fails %s", fe.Field(), fe.Value(), fe.Tag())
	}
	return err
}
