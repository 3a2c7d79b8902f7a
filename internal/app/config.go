package app

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/stupside/veil/internal/port"
)

// Config holds all application configuration.
type Config struct {
	Noise   NoiseConfig   `koanf:"noise" validate:"required"`
	Browser BrowserConfig `koanf:"browser" validate:"required"`
	Log     LogConfig     `koanf:"log"`
}

// NoiseConfig holds the perturbation settings mirrored onto the port.
type NoiseConfig struct {
	Enabled bool   `koanf:"enabled"`
	Mode    string `koanf:"mode" validate:"required,oneof=fixed random session"`
	Red     int    `koanf:"red" validate:"min=-255,max=255"`
	Green   int    `koanf:"green" validate:"min=-255,max=255"`
	Blue    int    `koanf:"blue" validate:"min=-255,max=255"`
}

// BrowserConfig holds settings for the headless browser host.
type BrowserConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	ChromePath string        `koanf:"chrome_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel maps the configured level onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Noise: NoiseConfig{
			Enabled: true,
			Mode:    "session",
		},
		Browser: BrowserConfig{
			Timeout:  30 * time.Second,
			Headless: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Attributes renders the noise settings as port attributes.
func (n NoiseConfig) Attributes() map[string]string {
	return map[string]string{
		port.AttrEnabled: strconv.FormatBool(n.Enabled),
		port.AttrMode:    n.Mode,
		port.AttrRed:     strconv.Itoa(n.Red),
		port.AttrGreen:   strconv.Itoa(n.Green),
		port.AttrBlue:    strconv.Itoa(n.Blue),
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Watch reloads the file at path whenever it changes and hands every valid
// configuration to onChange. Invalid reloads are logged and skipped. The
// returned function stops watching.
func Watch(path string, onChange func(*Config)) (func() error, error) {
	f := file.Provider(path)

	err := f.Watch(func(_ any, err error) {
		if err != nil {
			slog.Warn("config watch error", "path", path, "error", err)
			return
		}
		cfg, err := Load(path)
		if err != nil {
			slog.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		slog.Debug("config reloaded", "path", path)
		onChange(cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	return f.Unwatch, nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
