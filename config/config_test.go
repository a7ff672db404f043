package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "tariffs.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.AutoApplyThresholds)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PRICING_DEFAULT_COURTESY_MINUTES", "10")
	t.Setenv("PRICING_AUTO_APPLY_THRESHOLDS", "true")
	t.Setenv("STORAGE_SEED_PRESET", "carro")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.EngineOptions()
	assert.Equal(t, 10, opts.DefaultCourtesyMinutes)
	assert.True(t, opts.AutoApplyThresholds)
	assert.Equal(t, "carro", cfg.SeedPreset)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
log_level: warn
http_server:
  address: ":9090"
storage:
  driver: postgres
  postgres_dsn: postgres://tariff@localhost:5432/tariff
pricing:
  default_courtesy_minutes: 15
`), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 15, cfg.DefaultCourtesyMinutes)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout, "defaults fill fields the file omits")
	assert.NotContains(t, cfg.String(), "postgres://", "DSN is masked")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Storage: Storage{Driver: "mongo"},
		Pricing: Pricing{DefaultCourtesyMinutes: -1},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "default_courtesy_minutes")
	assert.Contains(t, err.Error(), "fetch_timeout")

	cfg = Config{
		Storage: Storage{Driver: DriverPostgres},
		Pricing: Pricing{FetchTimeout: time.Second},
	}
	assert.ErrorContains(t, cfg.Validate(), "postgres_dsn")
}
