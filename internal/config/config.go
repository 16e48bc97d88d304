// Package config holds the marketplace server configuration.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kartikbazzad/bunbase/marketplace/internal/store/mongo"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/postgres"
	pkgconfig "github.com/kartikbazzad/bunbase/marketplace/pkg/config"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "MARKETPLACE_"

// MinJWTSecretLength is the shortest accepted HMAC secret, in bytes.
const MinJWTSecretLength = 32

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// AppConfig is the full server configuration. Keys contain no underscores because
// environment variables map "_" to ".".
type AppConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	CORS struct {
		Origins string `mapstructure:"origins"`
	} `mapstructure:"cors"`

	JWT struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"jwt"`

	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`

	Mongo    mongo.Config    `mapstructure:"mongo"`
	Postgres postgres.Config `mapstructure:"postgres"`

	RateLimit struct {
		// Auth is the per-IP requests per minute on register and login.
		Auth  int `mapstructure:"auth"`
		Burst int `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`

	Aggregate struct {
		Workers   int `mapstructure:"workers"`
		CacheSize int `mapstructure:"cachesize"`
	} `mapstructure:"aggregate"`
}

// Defaults returns the default value for every key.
func Defaults() map[string]any {
	return map[string]any{
		"port":                "5000",
		"environment":         "development",
		"log.level":           "INFO",
		"log.format":          "json",
		"cors.origins":        "*",
		"jwt.ttl":             "24h",
		"store.driver":        DriverMemory,
		"mongo.uri":           "mongodb://localhost:27017",
		"mongo.database":      "sourcing",
		"mongo.transactions":  false,
		"postgres.host":       "localhost",
		"postgres.port":       5432,
		"postgres.user":       "postgres",
		"postgres.name":       "sourcing",
		"postgres.sslmode":    "disable",
		"ratelimit.auth":      30,
		"ratelimit.burst":     15,
		"aggregate.workers":   8,
		"aggregate.cachesize": 256,
	}
}

// Load reads the configuration from configFile (optional), .env, MARKETPLACE_* variables
// and the flags the user set, then validates it.
func Load(configFile string, flags *pflag.FlagSet) (*AppConfig, error) {
	var cfg AppConfig
	err := pkgconfig.Load(EnvPrefix, &cfg, pkgconfig.Options{
		Defaults:   Defaults(),
		ConfigFile: configFile,
		Flags:      flags,
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and the JWT secret, generating a secret in development.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q (want memory, mongo or postgres)", c.Store.Driver)
	}
	secret, err := ValidateJWTSecret(c.JWT.Secret, c.Environment)
	if err != nil {
		return err
	}
	c.JWT.Secret = secret
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// CORSOrigins splits the comma separated origin list.
func (c *AppConfig) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORS.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ValidateJWTSecret validates the JWT secret and generates one if missing in development mode.
func ValidateJWTSecret(secret, environment string) (string, error) {
	if environment == "" {
		environment = "development"
	}

	if secret == "" {
		if strings.EqualFold(environment, "production") {
			return "", fmt.Errorf("MARKETPLACE_JWT_SECRET must be set in production")
		}
		secret = generateStrongSecret(MinJWTSecretLength)
		logger.Warn("Generated JWT secret for development. Set MARKETPLACE_JWT_SECRET in production")
	}

	if len(secret) < MinJWTSecretLength {
		return "", fmt.Errorf("JWT secret must be at least %d bytes (got %d bytes). Set MARKETPLACE_JWT_SECRET to a secure value", MinJWTSecretLength, len(secret))
	}
	return secret, nil
}

// generateStrongSecret generates a cryptographically secure random secret of the specified length.
func generateStrongSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
