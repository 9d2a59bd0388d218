// Package config loads and validates the walker configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Signature policy values controlling how a missing detached signature
// affects a document's overall status.
const (
	SignaturePolicyRequired = "required"
	SignaturePolicyOptional = "optional"
	SignaturePolicyIgnore   = "ignore"
)

// Defaults applied by ApplyDefaults when a value is unset.
const (
	DefaultMaxConcurrency = 8
	DefaultRetryLimit     = 3
	DefaultRateLimit      = 10
	DefaultTimeout        = 30 * time.Second
)

// ConfigLoader defines the interface for loading configuration
type ConfigLoader interface {
	LoadConfig(path string) (*Config, error)
}

// Config is the root configuration for a walk.
type Config struct {
	// Source is the root index location: a provider-metadata.json URL, a
	// bare domain, or a local file path.
	Source string `yaml:"source"`

	// MaxConcurrency bounds the number of descriptors processed in parallel.
	MaxConcurrency int `yaml:"maxConcurrency"`

	// RetryLimit is the maximum number of retries for a transient fetch
	// failure. An explicit zero disables retries; nil means the default.
	RetryLimit *int `yaml:"retryLimit"`

	// RateLimit is the maximum number of requests per second issued to the
	// provider. An explicit zero disables pacing; nil means the default.
	RateLimit *float64 `yaml:"rateLimit"`

	// Timeout applies to each individual HTTP request, as a Go duration
	// string such as "30s" or "2m".
	Timeout string `yaml:"timeout"`

	// SignaturePolicy is one of required, optional, ignore.
	SignaturePolicy string `yaml:"signaturePolicy"`

	// TrustedKeys lists paths of armored OpenPGP public key files.
	TrustedKeys []string `yaml:"trustedKeys"`

	// HashAlgorithms is the ordered list of accepted digest algorithms.
	// The first algorithm with a companion digest file wins.
	HashAlgorithms []string `yaml:"hashAlgorithms"`

	// CacheDir is the directory holding the cross-pass cache store.
	// Empty disables caching.
	CacheDir string `yaml:"cacheDir"`

	// Rules selects the active lint rules by identifier. Empty enables all
	// built-in rules.
	Rules []string `yaml:"rules"`
}

var validPolicies = map[string]bool{
	SignaturePolicyRequired: true,
	SignaturePolicyOptional: true,
	SignaturePolicyIgnore:   true,
}

var validAlgorithms = map[string]bool{
	"sha256": true,
	"sha512": true,
}

// configLoader implements the ConfigLoader interface
type configLoader struct{}

// NewConfigLoader creates a new ConfigLoader instance
func NewConfigLoader() ConfigLoader {
	return &configLoader{}
}

// LoadConfig loads and parses configuration from a YAML file
func (*configLoader) LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills unset values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.RetryLimit == nil {
		limit := DefaultRetryLimit
		c.RetryLimit = &limit
	}
	if c.RateLimit == nil {
		limit := float64(DefaultRateLimit)
		c.RateLimit = &limit
	}
	if c.Timeout == "" {
		c.Timeout = DefaultTimeout.String()
	}
	if c.SignaturePolicy == "" {
		c.SignaturePolicy = SignaturePolicyOptional
	}
	if len(c.HashAlgorithms) == 0 {
		c.HashAlgorithms = []string{"sha512", "sha256"}
	}
}

// Validate rejects configuration faults that are fatal at walk start.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("maxConcurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.RetryLimit != nil && *c.RetryLimit < 0 {
		return fmt.Errorf("retryLimit cannot be negative, got %d", *c.RetryLimit)
	}
	if c.RateLimit != nil && *c.RateLimit < 0 {
		return fmt.Errorf("rateLimit cannot be negative, got %v", *c.RateLimit)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	} else if d <= 0 {
		return fmt.Errorf("timeout must be positive, got %q", c.Timeout)
	}
	if !validPolicies[c.SignaturePolicy] {
		return fmt.Errorf("unknown signature policy %q (want required, optional, or ignore)", c.SignaturePolicy)
	}
	for _, alg := range c.HashAlgorithms {
		if !validAlgorithms[alg] {
			return fmt.Errorf("unsupported hash algorithm %q (want sha256 or sha512)", alg)
		}
	}
	for _, key := range c.TrustedKeys {
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("trusted key file %s is not readable: %w", key, err)
		}
	}
	return nil
}

// RequestTimeout returns the parsed per-request timeout. An unset or
// unparsable value, which Validate rejects, falls back to DefaultTimeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Retries returns the effective retry limit for transient fetch failures.
// An unset value falls back to DefaultRetryLimit; an explicit zero disables
// retries.
func (c *Config) Retries() int {
	if c.RetryLimit == nil {
		return DefaultRetryLimit
	}
	return *c.RetryLimit
}

// RequestsPerSecond returns the effective request pacing limit. An unset
// value falls back to DefaultRateLimit; an explicit zero disables pacing.
func (c *Config) RequestsPerSecond() float64 {
	if c.RateLimit == nil {
		return DefaultRateLimit
	}
	return *c.RateLimit
}

// Fingerprint returns a stable hash over the configuration values that
// influence trust and validation results. The cache store records it so a
// prior outcome is only reused while the relevant configuration is unchanged.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "policy=%s\n", c.SignaturePolicy)
	for _, key := range c.TrustedKeys {
		fmt.Fprintf(h, "key=%s\n", key)
	}
	for _, alg := range c.HashAlgorithms {
		fmt.Fprintf(h, "alg=%s\n", alg)
	}
	for _, rule := range c.Rules {
		fmt.Fprintf(h, "rule=%s\n", rule)
	}
	return hex.EncodeToString(h.Sum(nil))
}
