package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/star/darksky/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.Store.SQLitePath, convey.ShouldEqual, "darksky.db")
				convey.So(cfg.Ephemeris.Workers, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.Geo.ElevationM, convey.ShouldEqual, 329.0)
				convey.So(cfg.Auth.Enabled, convey.ShouldBeFalse)

				lvl, err := cfg.SlogLevel()
				convey.So(err, convey.ShouldBeNil)
				convey.So(lvl, convey.ShouldEqual, slog.LevelInfo)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfigFile(t, `
log_level: debug
http:
  addr: ":9090"
  trust_proxy: true
store:
  driver: valkey
  valkey_addr: localhost:6379
ephemeris:
  workers: 3
geo:
  default_timezone: America/Toronto
stream:
  keepalive: 30s
`)
			cfg, err := config.Load(path)

			convey.Convey("Then file values replace defaults and the rest are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.HTTP.TrustProxy, convey.ShouldBeTrue)
				convey.So(cfg.Store.Driver, convey.ShouldEqual, "valkey")
				convey.So(cfg.Store.ValkeyAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.Store.ValkeyPrefix, convey.ShouldEqual, "darksky")
				convey.So(cfg.Ephemeris.Workers, convey.ShouldEqual, 3)
				convey.So(cfg.Geo.DefaultTimezone, convey.ShouldEqual, "America/Toronto")
				convey.So(cfg.Geo.ElevationM, convey.ShouldEqual, 329.0)
				convey.So(cfg.Stream.Keepalive, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Stream.MaxPerIP, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the environment overrides the file", func() {
			path := writeConfigFile(t, `
http:
  addr: ":9090"
ephemeris:
  workers: 3
`)
			_ = os.Setenv("DARKSKY_HTTP__ADDR", ":7070")
			_ = os.Setenv("DARKSKY_EPHEMERIS__WORKERS", "12")
			_ = os.Setenv("DARKSKY_STORE__DRIVER", "memory")
			_ = os.Setenv("DARKSKY_GEO__ELEVATION_M", "12.5")
			_ = os.Setenv("DARKSKY_LOG_LEVEL", "warn")
			_ = os.Setenv("DARKSKY_STREAM__MAX_PER_IP", "4")

			cfg, err := config.Load(path)

			convey.Convey("Then environment values win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Ephemeris.Workers, convey.ShouldEqual, 12)
				convey.So(cfg.Store.Driver, convey.ShouldEqual, "memory")
				convey.So(cfg.Geo.ElevationM, convey.ShouldEqual, 12.5)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.Stream.MaxPerIP, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			path := writeConfigFile(t, "http: [")
			cfg, err := config.Load(path)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("It is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("An unknown store driver is rejected", func() {
			cfg.Store.Driver = "mongo"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Postgres requires a DSN", func() {
			cfg.Store.Driver = "postgres"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.Store.PostgresDSN = "postgres://localhost/darksky"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Enabled auth requires a token", func() {
			cfg.Auth.Enabled = true
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "token")
		})

		convey.Convey("An empty address is rejected", func() {
			cfg.HTTP.Addr = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("An unknown log level is rejected", func() {
			cfg.LogLevel = "chatty"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("A keepalive under a second is rejected", func() {
			cfg.Stream.Keepalive = 100 * time.Millisecond
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "stream")
		})

		convey.Convey("StoreOptions carries the store section", func() {
			opts := cfg.StoreOptions()
			convey.So(opts.Driver, convey.ShouldEqual, cfg.Store.Driver)
			convey.So(opts.SQLitePath, convey.ShouldEqual, cfg.Store.SQLitePath)
			convey.So(opts.ValkeyPrefix, convey.ShouldEqual, "darksky")
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "darksky.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
