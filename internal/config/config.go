// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAccessSecret  = "dev-access-secret-change-me"
	defaultRefreshSecret = "dev-refresh-secret-change-me"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	// Allows DB_SCHEMA_MODE=auto in production-like environments.
	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL     string `mapstructure:"REDIS_URL"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	JWTAccessSecret        string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret       string `mapstructure:"JWT_REFRESH_SECRET"`
	AccessTokenTTLSeconds  int    `mapstructure:"ACCESS_TOKEN_TTL_SECONDS"`
	RefreshTokenTTLSeconds int    `mapstructure:"REFRESH_TOKEN_TTL_SECONDS"`
	BcryptCost             int    `mapstructure:"BCRYPT_COST"`

	BodyLimitKB              int    `mapstructure:"BODY_LIMIT_KB"`
	GlobalRateLimitPerMinute int    `mapstructure:"GLOBAL_RATE_LIMIT_PER_MINUTE"`
	FeatureFlags             string `mapstructure:"FEATURE_FLAGS"`
	ReconcileSchedule        string `mapstructure:"RECONCILE_SCHEDULE"`

	// Seeds this preset into an empty development database at startup.
	DevSeedPreset string `mapstructure:"DEV_SEED_PRESET"`

	TracingEnabled    bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter   string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracingSampleRate float64 `mapstructure:"TRACING_SAMPLE_RATE"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(viper.GetString("APP_ENV")))
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "4000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "campusqa")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "campusqa")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("CLIENT_ORIGIN", "http://localhost:5173")
	viper.SetDefault("JWT_ACCESS_SECRET", defaultAccessSecret)
	viper.SetDefault("JWT_REFRESH_SECRET", defaultRefreshSecret)
	viper.SetDefault("ACCESS_TOKEN_TTL_SECONDS", 900)
	viper.SetDefault("REFRESH_TOKEN_TTL_SECONDS", 604800)
	viper.SetDefault("BCRYPT_COST", 12)
	viper.SetDefault("BODY_LIMIT_KB", 200)
	viper.SetDefault("GLOBAL_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("FEATURE_FLAGS", "messages=on,reputation_reconcile=on,contributors_cache=on")
	viper.SetDefault("RECONCILE_SCHEDULE", "0 30 3 * * *")
	viper.SetDefault("DEV_SEED_PRESET", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	viper.SetDefault("TRACING_SAMPLE_RATE", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
}

// IsProduction reports whether the app runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if len(c.JWTAccessSecret) < 20 {
		return errors.New("JWT_ACCESS_SECRET must be at least 20 characters")
	}
	if len(c.JWTRefreshSecret) < 20 {
		return errors.New("JWT_REFRESH_SECRET must be at least 20 characters")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTLSeconds <= 0 || c.RefreshTokenTTLSeconds <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.AccessTokenTTLSeconds >= c.RefreshTokenTTLSeconds {
		return errors.New("ACCESS_TOKEN_TTL_SECONDS must be shorter than REFRESH_TOKEN_TTL_SECONDS")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost)
	}

	if c.IsProduction() {
		if c.JWTAccessSecret == defaultAccessSecret || c.JWTRefreshSecret == defaultRefreshSecret {
			return errors.New("JWT secrets must be changed from the default values in production")
		}
		if len(c.JWTAccessSecret) < 32 || len(c.JWTRefreshSecret) < 32 {
			return errors.New("JWT secrets must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.ClientOrigin == "*" {
			log.Println("WARNING: CLIENT_ORIGIN is set to '*' in production. Credentialed CORS will reject it.")
		}
		if c.BcryptCost < 12 {
			log.Println("WARNING: BCRYPT_COST below 12 in production.")
		}
	}

	return nil
}
