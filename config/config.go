/*
Package config loads server configuration from a YAML file with environment
variable overrides.

PRECEDENCE:
  1. Environment variables (highest)
  2. config.yaml values
  3. Built-in defaults

The JWT secret has no default on purpose: issuing tokens with a guessable
secret is worse than refusing to start.
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`

	// Users are fixed operator credentials accepted at login in addition to
	// client-id authentication.
	Users map[string]string `yaml:"users"`

	APINinjasKey   string `yaml:"api_ninjas_key"`
	MortgageAPIURL string `yaml:"mortgage_api_url"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            8080,
		DBPath:          "clients.db",
		TokenTTLMinutes: 60,
		MortgageAPIURL:  "https://api.api-ninjas.com/v1/mortgagecalculator",
		AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load reads the YAML file at path (skipped when the file does not exist),
// then applies env overrides. Validation is separate so callers decide how
// hard to fail.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	// Env vars override YAML values
	envOverride(&cfg.JWTSecret, "JWT_SECRET")
	envOverride(&cfg.APINinjasKey, "API_NINJAS")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.MortgageAPIURL, "MORTGAGE_API_URL")
	envOverrideInt(&cfg.Port, "PORT")
	envOverrideInt(&cfg.TokenTTLMinutes, "TOKEN_TTL_MINUTES")

	return cfg, nil
}

// Validate checks the settings a running server cannot do without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is not set (config file or JWT_SECRET)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token_ttl_minutes must be positive")
	}
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
