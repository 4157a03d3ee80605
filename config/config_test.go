package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage/client-engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "clients.db", cfg.DBPath)
	assert.Equal(t, 60, cfg.TokenTTLMinutes)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
port: 9090
db_path: /data/clients.db
jwt_secret: file-secret
token_ttl_minutes: 15
users:
  admin: "1234"
allowed_origins:
  - https://dashboard.example
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/data/clients.db", cfg.DBPath)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 15, cfg.TokenTTLMinutes)
	assert.Equal(t, map[string]string{"admin": "1234"}, cfg.Users)
	assert.Equal(t, []string{"https://dashboard.example"}, cfg.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "jwt_secret: file-secret\nport: 9090\n")

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PORT", "7070")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a number\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Defaults()
	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())

	missing := cfg
	missing.JWTSecret = ""
	assert.Error(t, missing.Validate())

	badPort := cfg
	badPort.Port = 70000
	assert.Error(t, badPort.Validate())

	badTTL := cfg
	badTTL.TokenTTLMinutes = 0
	assert.Error(t, badTTL.Validate())
}
