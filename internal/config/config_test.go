package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/gradelens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(4<<20))
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.StoreMaxTables, convey.ShouldEqual, 256)
			convey.So(cfg.StoreTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.AllowedOrigins(), convey.ShouldBeEmpty)
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero upload cap", func(c *config.Config) { c.MaxUploadBytes = 0 }},
			{"negative rows", func(c *config.Config) { c.MaxRows = -1 }},
			{"negative ttl", func(c *config.Config) { c.StoreTTLSeconds = -5 }},
			{"unknown driver", func(c *config.Config) { c.StoreDriver = "etcd" }},
			{"redis without addr", func(c *config.Config) { c.StoreDriver = config.StoreRedis; c.RedisAddr = "" }},
			{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"zero metrics refresh", func(c *config.Config) { c.MetricsRefreshSeconds = 0 }},
			{"metric namespace with dash", func(c *config.Config) { c.MetricsNamespace = "grade-lens" }},
			{"metric prefix with digit first", func(c *config.Config) { c.MetricsPrefix = "1x" }},
			{"unordered buckets", func(c *config.Config) { c.MetricsLatencyBuckets = "5,1" }},
			{"text bucket", func(c *config.Config) { c.MetricsLatencyBuckets = "1,fast" }},
			{"label without value", func(c *config.Config) { c.MetricsLabels = "env" }},
			{"reserved label", func(c *config.Config) { c.MetricsLabels = "__name__=x" }},
			{"label shadowing a recorder label", func(c *config.Config) { c.MetricsLabels = "kind=x" }},
			{"repeated label", func(c *config.Config) { c.MetricsLabels = "env=a,env=b" }},
		}
		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate(context.Background())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given metrics settings", t, func() {
		cfg := config.New()
		cfg.MetricsLatencyBuckets = " 1, 5 ,,20"
		cfg.MetricsLabels = "env=prod, zone = eu"

		convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		convey.So(cfg.LatencyBuckets(), convey.ShouldResemble, []float64{1, 5, 20})
		convey.So(cfg.ConstLabels(), convey.ShouldResemble, map[string]string{"env": "prod", "zone": "eu"})
		convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
	})

	convey.Convey("Given a CORS origin list", t, func() {
		cfg := config.New()
		cfg.CORSAllowedOrigins = " https://a.example , ,https://b.example"
		convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
	})
}

func TestConfig_Load(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		clearEnv(t)
		t.Setenv("GRADELENS_ADDR", ":7070")
		t.Setenv("GRADELENS_STORE_MAX_TABLES", "12")
		t.Setenv("GRADELENS_LOG_FORMAT", "json")
		t.Setenv("GRADELENS_METRICS_ENABLED", "false")
		t.Setenv("GRADELENS_METRICS_NAMESPACE", "school")
		t.Setenv("GRADELENS_METRICS_REFRESH_SECONDS", "30")

		convey.Convey("When loading", func() {
			cfg, err := config.Load(context.Background())

			convey.Convey("Then env wins over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StoreMaxTables, convey.ShouldEqual, 12)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "school")
				convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 30*time.Second)
			})
		})
	})

	convey.Convey("Given a YAML file and an env override", t, func() {
		clearEnv(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "gradelens.yaml")
		yml := "addr: \":6060\"\nstore_driver: redis\nredis_addr: cache:6379\nstore_ttl_seconds: 60\n"
		convey.So(os.WriteFile(path, []byte(yml), 0o600), convey.ShouldBeNil)
		t.Setenv(config.EnvFile, path)
		t.Setenv("GRADELENS_ADDR", ":5050")

		cfg, err := config.Load(context.Background())

		convey.Convey("Then file values apply under env", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":5050")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreRedis)
			convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
			convey.So(cfg.StoreTTL(), convey.ShouldEqual, time.Minute)
		})
	})

	convey.Convey("Given a missing config file", t, func() {
		clearEnv(t)
		t.Setenv(config.EnvFile, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := config.Load(context.Background())
		convey.So(errors.Is(err, config.ErrLoad), convey.ShouldBeTrue)
	})

	convey.Convey("Given an invalid override", t, func() {
		clearEnv(t)
		t.Setenv("GRADELENS_STORE_DRIVER", "etcd")
		_, err := config.Load(context.Background())
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
