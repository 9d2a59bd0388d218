package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("full config", func(t *testing.T) {
		t.Parallel()
		path := writeConfigFile(t, `
source: https://example.com/.well-known/csaf/provider-metadata.json
maxConcurrency: 4
retryLimit: 5
rateLimit: 2.5
timeout: 10s
signaturePolicy: required
hashAlgorithms:
  - sha256
rules:
  - tracking-id
  - tlp-label
`)

		cfg, err := NewConfigLoader().LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/.well-known/csaf/provider-metadata.json", cfg.Source)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.Equal(t, 5, cfg.Retries())
		assert.Equal(t, 2.5, cfg.RequestsPerSecond())
		assert.Equal(t, "10s", cfg.Timeout)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
		assert.Equal(t, SignaturePolicyRequired, cfg.SignaturePolicy)
		assert.Equal(t, []string{"sha256"}, cfg.HashAlgorithms)
		assert.Equal(t, []string{"tracking-id", "tlp-label"}, cfg.Rules)
	})

	t.Run("minimal config gets defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfigFile(t, "source: example.com\n")

		cfg, err := NewConfigLoader().LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
		assert.Equal(t, DefaultRetryLimit, cfg.Retries())
		assert.Equal(t, float64(DefaultRateLimit), cfg.RequestsPerSecond())
		assert.Equal(t, DefaultTimeout.String(), cfg.Timeout)
		assert.Equal(t, DefaultTimeout, cfg.RequestTimeout())
		assert.Equal(t, SignaturePolicyOptional, cfg.SignaturePolicy)
		assert.Equal(t, []string{"sha512", "sha256"}, cfg.HashAlgorithms)
		assert.Empty(t, cfg.Rules)
	})

	t.Run("explicit zero limits survive defaulting", func(t *testing.T) {
		t.Parallel()
		path := writeConfigFile(t, `
source: example.com
retryLimit: 0
rateLimit: 0
`)

		cfg, err := NewConfigLoader().LoadConfig(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, 0, cfg.Retries(), "zero disables retries")
		assert.Equal(t, float64(0), cfg.RequestsPerSecond(), "zero disables pacing")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfigLoader().LoadConfig("/nonexistent/config.yaml")
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("invalid YAML", func(t *testing.T) {
		t.Parallel()
		path := writeConfigFile(t, "source: [unclosed\n")
		_, err := NewConfigLoader().LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse YAML config")
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := &Config{Source: "example.com"}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty source",
			mutate:  func(c *Config) { c.Source = "" },
			wantErr: "source cannot be empty",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.MaxConcurrency = 0 },
			wantErr: "maxConcurrency must be at least 1",
		},
		{
			name:    "negative retry limit",
			mutate:  func(c *Config) { limit := -1; c.RetryLimit = &limit },
			wantErr: "retryLimit cannot be negative",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { limit := -0.5; c.RateLimit = &limit },
			wantErr: "rateLimit cannot be negative",
		},
		{
			name:    "unparsable timeout",
			mutate:  func(c *Config) { c.Timeout = "soon" },
			wantErr: "invalid timeout",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Timeout = "0s" },
			wantErr: "timeout must be positive",
		},
		{
			name:    "unknown signature policy",
			mutate:  func(c *Config) { c.SignaturePolicy = "strict" },
			wantErr: "unknown signature policy",
		},
		{
			name:    "unsupported hash algorithm",
			mutate:  func(c *Config) { c.HashAlgorithms = []string{"md5"} },
			wantErr: "unsupported hash algorithm",
		},
		{
			name:    "unreadable trusted key",
			mutate:  func(c *Config) { c.TrustedKeys = []string{"/nonexistent/key.asc"} },
			wantErr: "is not readable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigFingerprint(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			SignaturePolicy: SignaturePolicyOptional,
			TrustedKeys:     []string{"keys/vendor.asc"},
			HashAlgorithms:  []string{"sha512", "sha256"},
			Rules:           []string{"tracking-id"},
		}
	}

	t.Run("stable for equal config", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, base().Fingerprint(), base().Fingerprint())
	})

	t.Run("changes with trust-relevant values", func(t *testing.T) {
		t.Parallel()

		mutations := map[string]func(*Config){
			"policy":     func(c *Config) { c.SignaturePolicy = SignaturePolicyRequired },
			"keys":       func(c *Config) { c.TrustedKeys = append(c.TrustedKeys, "keys/other.asc") },
			"algorithms": func(c *Config) { c.HashAlgorithms = []string{"sha256"} },
			"rules":      func(c *Config) { c.Rules = nil },
		}
		for name, mutate := range mutations {
			changed := base()
			mutate(changed)
			assert.NotEqual(t, base().Fingerprint(), changed.Fingerprint(), name)
		}
	})

	t.Run("independent of fetch settings", func(t *testing.T) {
		t.Parallel()
		changed := base()
		changed.MaxConcurrency = 32
		limit := 9
		changed.RetryLimit = &limit
		changed.CacheDir = "/tmp/cache"
		assert.Equal(t, base().Fingerprint(), changed.Fingerprint())
	})
}
