// Package config defines service configuration and its loading.
package config

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gradelens/pkg/metrics"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxUploadBytes caps a CSV upload body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// MaxRows caps the number of student rows accepted per table; 0 disables the cap.
	MaxRows int `koanf:"max_rows"`

	// StoreDriver selects where uploaded tables live: memory or redis.
	StoreDriver string `koanf:"store_driver"`

	// StoreMaxTables bounds the in-memory store; the oldest table is evicted first.
	StoreMaxTables int `koanf:"store_max_tables"`

	// StoreTTLSeconds expires stored tables; 0 keeps them until evicted.
	StoreTTLSeconds int `koanf:"store_ttl_seconds"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CORSAllowedOrigins is a comma separated origin list; empty disables CORS.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// MetricsEnabled switches Prometheus recording on or off. /metrics is
	// served either way.
	MetricsEnabled   bool   `koanf:"metrics_enabled"`
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsRefreshSeconds is how often runtime and store gauges are sampled.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	// MetricsLatencyBuckets lists histogram bounds in milliseconds, comma separated.
	MetricsLatencyBuckets string `koanf:"metrics_latency_buckets"`

	// MetricsLabels adds constant labels to every series, e.g. "env=prod,zone=eu".
	MetricsLabels string `koanf:"metrics_labels"`
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		MaxUploadBytes:  4 << 20,
		MaxRows:         10_000,
		StoreDriver:     StoreMemory,
		StoreMaxTables:  256,
		StoreTTLSeconds: 3600,
		RedisAddr:       "localhost:6379",

		MetricsEnabled:        true,
		MetricsNamespace:      "gradelens",
		MetricsSubsystem:      "analysis",
		MetricsRefreshSeconds: 10,
		MetricsLatencyBuckets: "0.5,1,2.5,5,10,25,50,100,250,500,1000",
	}
}

// StoreTTL returns the table TTL as a duration.
func (c *Config) StoreTTL() time.Duration {
	return time.Duration(c.StoreTTLSeconds) * time.Second
}

// AllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MetricsRefresh returns the gauge sampling interval as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// LatencyBuckets parses MetricsLatencyBuckets. Validate rejects values it
// cannot parse; here they yield nil, which keeps the library defaults.
func (c *Config) LatencyBuckets() []float64 {
	b, _ := parseBuckets(c.MetricsLatencyBuckets)
	return b
}

// ConstLabels parses MetricsLabels. Validate rejects values it cannot parse.
func (c *Config) ConstLabels() map[string]string {
	l, _ := parseLabels(c.MetricsLabels)
	return l
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.MaxUploadBytes <= 0:
		return invalid("max_upload_bytes must be positive")
	case c.MaxRows < 0:
		return invalid("max_rows must not be negative")
	case c.StoreMaxTables < 0:
		return invalid("store_max_tables must not be negative")
	case c.StoreTTLSeconds < 0:
		return invalid("store_ttl_seconds must not be negative")
	case c.MetricsRefreshSeconds <= 0:
		return invalid("metrics_refresh_seconds must be positive")
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis store")
		}
	default:
		return invalid("unknown store_driver " + c.StoreDriver)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("unknown log_format " + c.LogFormat)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	for key, v := range map[string]string{
		"metrics_namespace": c.MetricsNamespace,
		"metrics_subsystem": c.MetricsSubsystem,
		"metrics_prefix":    c.MetricsPrefix,
	} {
		if v != "" && !metricName.MatchString(v) {
			return invalid(fmt.Sprintf("%s %q is not a valid metric name part", key, v))
		}
	}
	if _, err := parseBuckets(c.MetricsLatencyBuckets); err != nil {
		return invalid("metrics_latency_buckets: " + err.Error())
	}
	if _, err := parseLabels(c.MetricsLabels); err != nil {
		return invalid("metrics_labels: " + err.Error())
	}
	return nil
}

func parseBuckets(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bucket %q is not a number", f)
		}
		if len(out) > 0 && v <= out[len(out)-1] {
			return nil, fmt.Errorf("bucket %q is not increasing", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseLabels(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || !metricName.MatchString(k) || strings.HasPrefix(k, "__") {
			return nil, fmt.Errorf("label %q must be name=value", pair)
		}
		if slices.Contains(metrics.VariableLabels, k) {
			return nil, fmt.Errorf("label %q is set per sample", k)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("label %q repeated", k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
