// Package config loads server settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	AuthModeDemo     = "demo"
	AuthModePassword = "password"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"wastewatch"`

	JWTSecret string `env:"APP_JWT_SECRET"`
	AuthMode  string `env:"AUTH_MODE" envDefault:"demo"`

	Redis            RedisConfig `envPrefix:"REDIS_"`
	ReportDailyLimit int         `env:"REPORT_DAILY_LIMIT" envDefault:"20"`

	FirebaseCredentialsBase64 string `env:"FIREBASE_CREDENTIALS_BASE64"`
	FirebaseCredentialsFile   string `env:"FIREBASE_CREDENTIALS_FILE"`
	GoogleMapsAPIKey          string `env:"GOOGLE_MAPS_API_KEY"`

	EcoPointsReport   int `env:"ECO_POINTS_REPORT" envDefault:"10"`
	EcoPointsResolved int `env:"ECO_POINTS_RESOLVED" envDefault:"20"`
}

type RedisConfig struct {
	Address  string `env:"ADDRESS"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	return &cfg, nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("APP_JWT_SECRET is required")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.ReportDailyLimit < 0 {
		return fmt.Errorf("REPORT_DAILY_LIMIT must not be negative")
	}
	if c.EcoPointsReport < 0 || c.EcoPointsResolved < 0 {
		return fmt.Errorf("eco-point awards must not be negative")
	}
	return nil
}

// ValidateStore checks only what offline tools need to reach the store and
// create accounts. It does not require the JWT secret.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory (got %q)", c.StoreDriver)
	}

	switch c.AuthMode {
	case AuthModeDemo, AuthModePassword:
	default:
		return fmt.Errorf("AUTH_MODE must be demo or password (got %q)", c.AuthMode)
	}
	return nil
}

// RateLimitEnabled reports whether report creation should be throttled.
func (c *Config) RateLimitEnabled() bool {
	return c.Redis.Address != "" && c.ReportDailyLimit > 0
}
