package botauth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by [LoadConfig].
const EnvPrefix = "BOTAUTH_"

// LoadConfig reads a YAML or JSON configuration file, layers it over
// [DefaultConfig], applies BOTAUTH_* environment overrides and validates the result.
// An empty path skips the file and uses defaults plus environment only.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
		if err := decodeConfig(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeConfig accepts YAML, and JSON as its subset. Unknown keys are ignored so
// bot configuration files carrying unrelated settings load unchanged.
func decodeConfig(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	return nil
}
