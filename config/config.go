package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "TLSIGN"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds settings for the tlsign binary.
type Config struct {
	// Listen is the address the webhook receiver listens on.
	Listen string `yaml:"listen" split_words:"true"`

	// Path is the route the webhook receiver verifies.
	Path string `yaml:"path" split_words:"true"`

	// PublicKeyFile is a PEM public key used instead of a JWKS fetch.
	PublicKeyFile string `yaml:"public_key_file" split_words:"true"`

	// AllowedJKUs lists the JWKS URLs signatures may reference.
	AllowedJKUs []string `yaml:"allowed_jkus" envconfig:"ALLOWED_JKUS"`

	// RequiredHeaders lists headers every inbound signature must cover.
	RequiredHeaders []string `yaml:"required_headers" split_words:"true"`

	// AllowV1 accepts legacy body-only signatures.
	AllowV1 bool `yaml:"allow_v1" split_words:"true"`

	// MaxBodyBytes caps inbound request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" split_words:"true"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" split_words:"true"`

	// MetricsPath exposes prometheus metrics when set.
	MetricsPath string `yaml:"metrics_path" split_words:"true"`

	// Signing holds the default signing key for the sign command.
	Signing Signing `yaml:"signing" split_words:"true"`
}

// Signing holds signing key settings.
type Signing struct {
	KeyID          string `yaml:"key_id" split_words:"true"`
	PrivateKeyFile string `yaml:"private_key_file" split_words:"true"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Listen:       ":8080",
		Path:         "/webhooks",
		MaxBodyBytes: 1 << 20,
		LogLevel:     "info",
		MetricsPath:  "/metrics",
	}
}

// Load reads configuration from the YAML file at path, when non-empty, and
// then applies environment overrides. It does not call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Validate checks the settings needed by the webhook receiver.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen must not be empty", ErrInvalidConfig)
	}

	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path must start with '/'", ErrInvalidConfig)
	}

	if c.MetricsPath != "" {
		if !strings.HasPrefix(c.MetricsPath, "/") {
			return fmt.Errorf("%w: metrics_path must start with '/'", ErrInvalidConfig)
		}

		if c.MetricsPath == c.Path {
			return fmt.Errorf("%w: metrics_path must differ from path", ErrInvalidConfig)
		}
	}

	if c.PublicKeyFile == "" && len(c.AllowedJKUs) == 0 {
		return fmt.Errorf("%w: public_key_file or allowed_jkus is required", ErrInvalidConfig)
	}

	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: max_body_bytes must not be negative", ErrInvalidConfig)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
