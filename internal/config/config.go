// Package config loads service settings from defaults, an optional YAML file
// and DARKSKY_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/star/darksky/internal/store"
)

// EnvPrefix prefixes every environment override. Sections are separated by
// a double underscore: DARKSKY_STORE__DRIVER sets store.driver.
const EnvPrefix = "DARKSKY_"

// Config is the full service configuration.
type Config struct {
	LogLevel  string          `koanf:"log_level"`
	HTTP      HTTPConfig      `koanf:"http"`
	Auth      AuthConfig      `koanf:"auth"`
	Stream    StreamConfig    `koanf:"stream"`
	Store     StoreConfig     `koanf:"store"`
	Ephemeris EphemerisConfig `koanf:"ephemeris"`
	Geo       GeoConfig       `koanf:"geo"`
	Catalog   CatalogConfig   `koanf:"catalog"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// TrustProxy honours X-Forwarded-For and X-Real-IP when logging clients.
	TrustProxy bool `koanf:"trust_proxy"`
}

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

// StreamConfig limits warmup progress streams.
type StreamConfig struct {
	MaxPerIP  int           `koanf:"max_per_ip"`
	MaxTotal  int           `koanf:"max_total"`
	Keepalive time.Duration `koanf:"keepalive"`
}

// StoreConfig selects and configures the window store.
type StoreConfig struct {
	Driver       string `koanf:"driver"`
	SQLitePath   string `koanf:"sqlite_path"`
	PostgresDSN  string `koanf:"postgres_dsn"`
	ValkeyAddr   string `koanf:"valkey_addr"`
	ValkeyPrefix string `koanf:"valkey_prefix"`
}

// EphemerisConfig sizes the ephemeris worker pool.
type EphemerisConfig struct {
	Workers int `koanf:"workers"`
}

// GeoConfig holds observer defaults.
type GeoConfig struct {
	ElevationM      float64 `koanf:"elevation_m"`
	DefaultTimezone string  `koanf:"default_timezone"`
}

// CatalogConfig points at an optional catalog file replacing the built-in one.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Stream: StreamConfig{
			MaxPerIP:  2,
			MaxTotal:  32,
			Keepalive: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver:       store.DriverSQLite,
			SQLitePath:   "darksky.db",
			ValkeyPrefix: "darksky",
		},
		Ephemeris: EphemerisConfig{
			Workers: runtime.NumCPU(),
		},
		Geo: GeoConfig{
			ElevationM: 329,
		},
	}
}

// Load layers the YAML file at path (skipped when empty) and then the
// environment over the defaults, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Ephemeris.Validate(); err != nil {
		return fmt.Errorf("ephemeris: %w", err)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
	)
}

func (c *AuthConfig) Validate() error {
	if c.Enabled && c.Token == "" {
		return errors.New("token is required when auth is enabled")
	}
	return nil
}

func (c *StreamConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxPerIP, validation.Min(1)),
		validation.Field(&c.MaxTotal, validation.Min(1)),
		validation.Field(&c.Keepalive, validation.Min(time.Second)),
	)
}

func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(store.DriverMemory, store.DriverSQLite, store.DriverPostgres, store.DriverValkey)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == store.DriverSQLite, validation.Required)),
		validation.Field(&c.PostgresDSN, validation.When(c.Driver == store.DriverPostgres, validation.Required)),
		validation.Field(&c.ValkeyAddr, validation.When(c.Driver == store.DriverValkey, validation.Required)),
	)
}

func (c *EphemerisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(1), validation.Max(1024)),
	)
}

// StoreOptions converts the store section for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:       c.Store.Driver,
		SQLitePath:   c.Store.SQLitePath,
		PostgresDSN:  c.Store.PostgresDSN,
		ValkeyAddr:   c.Store.ValkeyAddr,
		ValkeyPrefix: c.Store.ValkeyPrefix,
	}
}
