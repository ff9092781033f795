package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.True(t, cfg.Development())
	assert.Equal(t, int64(50<<20), cfg.Web.MaxUploadBytes)
	assert.Equal(t, 10*time.Second, cfg.ScanService.Timeout)
	assert.Equal(t, 50, cfg.Extractor.MaxPages)
	assert.Equal(t, int64(16<<20), cfg.Extractor.MaxInflateBytes)
	assert.Equal(t, int64(32<<20), cfg.Extractor.MaxTotalInflateBytes)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Empty(t, cfg.ScanService.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"*"}, cfg.Web.CORSAllowedOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PDFGUARD_MODE", "production")
	t.Setenv("PDFGUARD_SCAN_SERVICE_URL", "https://scan.internal/v1/scan")
	t.Setenv("PDFGUARD_SCAN_SERVICE_TIMEOUT", "3s")
	t.Setenv("PDFGUARD_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("PDFGUARD_CACHE_CAPACITY", "7")
	t.Setenv("PDFGUARD_EXTRACTOR_MAX_TOTAL_INFLATE_BYTES", "67108864")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Development())
	assert.Equal(t, "https://scan.internal/v1/scan", cfg.ScanService.URL)
	assert.Equal(t, 3*time.Second, cfg.ScanService.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Cache.Capacity)
	assert.Equal(t, int64(64<<20), cfg.Extractor.MaxTotalInflateBytes)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "pdfguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: production
web:
  address: 127.0.0.1:9000
extractor:
  max_pages: 5
detector:
  rules_file: /etc/pdfguard/rules.yaml
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "127.0.0.1:9000", cfg.Web.Address)
	assert.Equal(t, 5, cfg.Extractor.MaxPages)
	assert.Equal(t, "/etc/pdfguard/rules.yaml", cfg.Detector.RulesFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Mode:        ModeDevelopment,
			Web:         WebConfig{Address: ":3000", MaxUploadBytes: 1},
			ScanService: ScanServiceConfig{Timeout: time.Second},
			Extractor:   ExtractorConfig{MaxPages: 1, MaxInflateBytes: 1, MaxTotalInflateBytes: 1},
			Cache:       CacheConfig{Capacity: 1},
			Kafka:       KafkaConfig{Topic: "t"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "staging" }, wantErr: "mode must be"},
		{name: "no address", mutate: func(c *Config) { c.Web.Address = "" }, wantErr: "web.address"},
		{name: "zero upload limit", mutate: func(c *Config) { c.Web.MaxUploadBytes = 0 }, wantErr: "max_upload_bytes"},
		{name: "relative scan url", mutate: func(c *Config) { c.ScanService.URL = "/scan" }, wantErr: "scan_service.url"},
		{name: "ftp scan url", mutate: func(c *Config) { c.ScanService.URL = "ftp://x/scan" }, wantErr: "scan_service.url"},
		{name: "zero timeout", mutate: func(c *Config) { c.ScanService.Timeout = 0 }, wantErr: "scan_service.timeout"},
		{name: "zero pages", mutate: func(c *Config) { c.Extractor.MaxPages = 0 }, wantErr: "max_pages"},
		{name: "zero inflate limit", mutate: func(c *Config) { c.Extractor.MaxInflateBytes = 0 }, wantErr: "inflate limits"},
		{
			name:    "total inflate below per-stream",
			mutate:  func(c *Config) { c.Extractor.MaxInflateBytes = 10; c.Extractor.MaxTotalInflateBytes = 5 },
			wantErr: "max_total_inflate_bytes",
		},
		{name: "zero cache", mutate: func(c *Config) { c.Cache.Capacity = 0 }, wantErr: "cache.capacity"},
		{
			name:    "brokers without topic",
			mutate:  func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.Topic = "" },
			wantErr: "kafka.topic",
		},
		{name: "probability out of range", mutate: func(c *Config) { c.Telemetry.Probability = 2 }, wantErr: "probability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
