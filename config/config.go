/*
Package config loads the tariff server configuration.

SOURCES:
  1. YAML file named by CONFIG_PATH (optional)
  2. Environment variables (override the file)
  3. env-default tags

  With CONFIG_PATH unset the server runs from the environment alone.

EXAMPLE (config/local.yaml):
  env: local
  log_level: debug
  http_server:
    address: ":8080"
    timeout: 15s
  storage:
    driver: sqlite
    sqlite_path: tariffs.db
    seed_preset: carro
  pricing:
    default_courtesy_minutes: 10
    auto_apply_thresholds: false
    fetch_timeout: 5s
*/
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/warp/tariff-engine/tariff"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	Pricing    `yaml:"pricing"`
}

// HTTPServer configures the API listener.
type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout        time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://localhost:8080"`
}

// Storage selects and configures the tariff store.
type Storage struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH" env-default:"tariffs.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"STORAGE_POSTGRES_DSN"`
	SeedPreset  string `yaml:"seed_preset" env:"STORAGE_SEED_PRESET"` // preset loaded into an empty store
}

// Pricing tunes the engine.
type Pricing struct {
	DefaultCourtesyMinutes int           `yaml:"default_courtesy_minutes" env:"PRICING_DEFAULT_COURTESY_MINUTES" env-default:"0"`
	AutoApplyThresholds    bool          `yaml:"auto_apply_thresholds" env:"PRICING_AUTO_APPLY_THRESHOLDS" env-default:"false"`
	FetchTimeout           time.Duration `yaml:"fetch_timeout" env:"PRICING_FETCH_TIMEOUT" env-default:"5s"`
}

// Load reads the configuration from CONFIG_PATH (when set) and the
// environment, then validates it.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main; it exits on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}
	return cfg
}

// Validate checks cross-field constraints the tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres", c.Driver))
	}
	if c.DefaultCourtesyMinutes < 0 {
		errs = append(errs, fmt.Errorf("pricing.default_courtesy_minutes must not be negative, got %d", c.DefaultCourtesyMinutes))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pricing.fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	return errors.Join(errs...)
}

// EngineOptions maps the pricing section to engine options.
func (c *Config) EngineOptions() tariff.Options {
	return tariff.Options{
		DefaultCourtesyMinutes: c.DefaultCourtesyMinutes,
		AutoApplyThresholds:    c.AutoApplyThresholds,
	}
}

func (c *Config) String() string {
	dsn := ""
	if c.PostgresDSN != "" {
		dsn = "(set)"
	}
	return fmt.Sprintf(
		"Env: %s\n"+
			"LogLevel: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  SQLitePath: %s\n"+
			"  PostgresDSN: %s\n"+
			"  SeedPreset: %s\n"+
			"Pricing:\n"+
			"  DefaultCourtesyMinutes: %d\n"+
			"  AutoApplyThresholds: %t\n"+
			"  FetchTimeout: %s\n",
		c.Env,
		c.LogLevel,
		c.Address,
		c.Timeout,
		c.IdleTimeout,
		c.Driver,
		c.SQLitePath,
		dsn,
		c.SeedPreset,
		c.DefaultCourtesyMinutes,
		c.AutoApplyThresholds,
		c.FetchTimeout,
	)
}
