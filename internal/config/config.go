// Package config loads pdfguard runtime configuration from defaults, an
// optional YAML file, and PDFGUARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// PDFGUARD_WEB_ADDRESS.
const EnvPrefix = "PDFGUARD"

// Mode selects development or production behavior.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Config is the top-level configuration.
type Config struct {
	Mode        Mode              `mapstructure:"mode"`
	Web         WebConfig         `mapstructure:"web"`
	ScanService ScanServiceConfig `mapstructure:"scan_service"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Detector    DetectorConfig    `mapstructure:"detector"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
}

// WebConfig configures the HTTP servers.
type WebConfig struct {
	Address            string        `mapstructure:"address"`
	DebugAddress       string        `mapstructure:"debug_address"`
	MaxUploadBytes     int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// ScanServiceConfig points at the external secret scanning service. An empty
// URL disables external scanning.
type ScanServiceConfig struct {
	URL               string        `mapstructure:"url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        uint64        `mapstructure:"max_retries"`
}

type ExtractorConfig struct {
	MaxPages int `mapstructure:"max_pages"`
	// MaxInflateBytes caps one decompressed stream in the byte fallback.
	MaxInflateBytes int64 `mapstructure:"max_inflate_bytes"`
	// MaxTotalInflateBytes caps all decompressed streams of one document.
	MaxTotalInflateBytes int64 `mapstructure:"max_total_inflate_bytes"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// DetectorConfig names an optional YAML file of extra detection rules.
type DetectorConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

// KafkaConfig enables verdict audit events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type TelemetryConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	Probability      float64 `mapstructure:"probability"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Development reports whether debug surfaces should be exposed.
func (c *Config) Development() bool { return c.Mode == ModeDevelopment }

// Load builds a Config. path may name a YAML file; an empty path skips it.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	// Missing .env files are expected outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Comma separated env values arrive as a single element.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Web.CORSAllowedOrigins = splitList(cfg.Web.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeDevelopment))

	v.SetDefault("web.address", "0.0.0.0:3000")
	v.SetDefault("web.debug_address", "0.0.0.0:3010")
	v.SetDefault("web.max_upload_bytes", 50<<20)
	v.SetDefault("web.read_timeout", "30s")
	v.SetDefault("web.write_timeout", "60s")
	v.SetDefault("web.idle_timeout", "120s")
	v.SetDefault("web.shutdown_timeout", "20s")
	v.SetDefault("web.cors_allowed_origins", []string{"*"})

	v.SetDefault("scan_service.url", "")
	v.SetDefault("scan_service.api_key", "")
	v.SetDefault("scan_service.timeout", "10s")
	v.SetDefault("scan_service.requests_per_second", 10.0)
	v.SetDefault("scan_service.burst", 5)
	v.SetDefault("scan_service.max_retries", 2)

	v.SetDefault("extractor.max_pages", 50)
	v.SetDefault("extractor.max_inflate_bytes", 16<<20)
	v.SetDefault("extractor.max_total_inflate_bytes", 32<<20)
	v.SetDefault("cache.capacity", 100)
	v.SetDefault("detector.rules_file", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "pdfguard.verdicts")
	v.SetDefault("kafka.client_id", "pdfguard")

	v.SetDefault("telemetry.service_name", "pdfguard")
	v.SetDefault("telemetry.exporter_endpoint", "")
	v.SetDefault("telemetry.probability", 0.05)

	v.SetDefault("log.level", "info")
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error

	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode))
	}
	if c.Web.Address == "" {
		errs = append(errs, errors.New("web.address is required"))
	}
	if c.Web.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("web.max_upload_bytes must be positive"))
	}
	if c.ScanService.URL != "" {
		u, err := url.Parse(c.ScanService.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("scan_service.url %q must be an absolute http(s) URL", c.ScanService.URL))
		}
	}
	if c.ScanService.Timeout <= 0 {
		errs = append(errs, errors.New("scan_service.timeout must be positive"))
	}
	if c.Extractor.MaxPages <= 0 {
		errs = append(errs, errors.New("extractor.max_pages must be positive"))
	}
	if c.Extractor.MaxInflateBytes <= 0 || c.Extractor.MaxTotalInflateBytes <= 0 {
		errs = append(errs, errors.New("extractor inflate limits must be positive"))
	} else if c.Extractor.MaxTotalInflateBytes < c.Extractor.MaxInflateBytes {
		errs = append(errs, errors.New("extractor.max_total_inflate_bytes must not be below max_inflate_bytes"))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, errors.New("cache.capacity must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Telemetry.Probability < 0 || c.Telemetry.Probability > 1 {
		errs = append(errs, errors.New("telemetry.probability must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
