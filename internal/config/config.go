// Package config loads arion settings from an optional YAML file and the
// environment.
//
// Precedence, lowest first: Default, the YAML file, ARION_* environment
// variables, then the overrides passed to Load (command-line flags).
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/arion/internal/logging"
)

// Environment variables read by Load.
const (
	EnvLogLevel  = "ARION_LOG_LEVEL"
	EnvLogFormat = "ARION_LOG_FORMAT"
)

var (
	// ErrConfigNotFound is returned when an explicit config path does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInvalidConfig is returned for malformed or out-of-range settings.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds process-wide settings.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error or disabled.
	LogLevel string `yaml:"log_level"`
	// LogFormat is json or console.
	LogFormat string `yaml:"log_format"`
	// PrettyJSON indents reports.
	PrettyJSON bool `yaml:"pretty_json"`
	// CorrectRotation is the default for commands without correct_rotation.
	CorrectRotation bool `yaml:"correct_rotation"`
	// IgnoreMetadata is the default for commands without ignore_metadata.
	IgnoreMetadata bool `yaml:"ignore_metadata"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Override adjusts a loaded configuration before it is validated. The CLI
// uses it to apply flags.
type Override func(*Config)

// Load builds the configuration from path, the environment and overrides,
// in that order, and validates the result once. An empty path skips the
// file.
func Load(path string, overrides ...Override) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, errors.Wrap(ErrConfigNotFound, path)
			}
			return Config{}, errors.Wrap(err, "failed to open config file")
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays YAML from r onto c. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
}

// Validate normalizes the level and format names and rejects unknown ones.
// The accepted names are those of the logging package.
func (c *Config) Validate() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log level %q", c.LogLevel)
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log format %q", c.LogFormat)
	}
	c.LogLevel = level.String()
	c.LogFormat = format
	return nil
}
