package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arion.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want %+v", cfg, Default())
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	path := writeConfig(t, `
log_level: DEBUG
log_format: console
pretty_json: true
correct_rotation: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Config{LogLevel: "debug", LogFormat: "console", PrettyJSON: true, CorrectRotation: true}
	if cfg != want {
		t.Errorf("Load = %+v, want %+v", cfg, want)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(writeConfig(t, "log_level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	tests := []struct {
		name string
		path func(t *testing.T) string
		want error
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, ErrConfigNotFound},
		{"unknown key", func(t *testing.T) string { return writeConfig(t, "colour: blue\n") }, ErrInvalidConfig},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "log_level: [\n") }, ErrInvalidConfig},
		{"bad level", func(t *testing.T) string { return writeConfig(t, "log_level: loud\n") }, ErrInvalidConfig},
		{"bad format", func(t *testing.T) string { return writeConfig(t, "log_format: xml\n") }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if !errors.Is(err, tt.want) {
				t.Errorf("Load err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty file gave %+v", cfg)
	}
}

func TestLoadOverridesApplyBeforeValidation(t *testing.T) {
	t.Setenv(EnvLogLevel, "bogus")
	t.Setenv(EnvLogFormat, "")

	if _, err := Load(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("bad env level without override: err = %v", err)
	}
	cfg, err := Load("", func(c *Config) { c.LogLevel = "info" })
	if err != nil {
		t.Fatalf("override should replace the bad env level: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestValidateAliases(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     string
		wantFormat    string
	}{
		{"warning", "JSON", "warn", "json"},
		{"off", "console", "disabled", "console"},
		{"", "", "info", "json"},
	}
	for _, tt := range tests {
		c := Config{LogLevel: tt.level, LogFormat: tt.format}
		if err := c.Validate(); err != nil {
			t.Errorf("Validate(%q, %q) failed: %v", tt.level, tt.format, err)
			continue
		}
		if c.LogLevel != tt.wantLevel || c.LogFormat != tt.wantFormat {
			t.Errorf("Validate(%q, %q) = %q, %q", tt.level, tt.format, c.LogLevel, c.LogFormat)
		}
	}
}
