// Package config holds the daemon's file configuration. User settings such
// as capacity and poll interval are not here: they live in the persisted
// state and change through the setSettings operation.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/paste"
	"go.klb.dev/copas/internal/persist"
)

// Name is the config file base name, without extension.
const Name = "copas"

// Viper keys, matching the TOML layout.
const (
	KeyDataDir     = "data_dir"
	KeySocket      = "socket"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
	KeyStorageType = "storage.type"
	KeyPasteDelay  = "paste.delay"
	KeyHeadless    = "clipboard.headless"
)

// Config is the on-disk daemon configuration.
type Config struct {
	DataDir   string          `toml:"data_dir" json:"data_dir" yaml:"data_dir"`
	Socket    string          `toml:"socket,omitempty" json:"socket,omitempty" yaml:"socket,omitempty"`
	LogLevel  string          `toml:"log_level,omitempty" json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string          `toml:"log_format" json:"log_format" yaml:"log_format"`
	Storage   StorageConfig   `toml:"storage" json:"storage" yaml:"storage"`
	Paste     PasteConfig     `toml:"paste" json:"paste" yaml:"paste"`
	Clipboard ClipboardConfig `toml:"clipboard" json:"clipboard" yaml:"clipboard"`
}

// StorageConfig selects the persistence adapter.
type StorageConfig struct {
	Type string `toml:"type" json:"type" yaml:"type"` // "json" or "sqlite"
}

// PasteConfig tunes paste dispatch.
type PasteConfig struct {
	Delay Duration `toml:"delay" json:"delay" yaml:"delay"`
}

// ClipboardConfig tunes the clipboard backend.
type ClipboardConfig struct {
	// Headless falls back to an in-memory clipboard when the system
	// clipboard cannot be opened.
	Headless bool `toml:"headless" json:"headless" yaml:"headless"`
}

// Duration is a time.Duration that encodes as a Go duration string.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

// DefaultDataDir is where state and images live unless configured.
func DefaultDataDir() string { return filepath.Join(xdg.DataHome, Name) }

// Dir is the per-user config directory.
func Dir() string { return filepath.Join(xdg.ConfigHome, Name) }

// DefaultPath is the per-user config file.
func DefaultPath() string { return filepath.Join(Dir(), Name+".toml") }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:   DefaultDataDir(),
		LogFormat: "auto",
		Storage:   StorageConfig{Type: persist.KindJSON},
		Paste:     PasteConfig{Delay: Duration{paste.DefaultDelay}},
	}
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Type {
	case persist.KindJSON, persist.KindSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.type %q: want %s or %s", c.Storage.Type, persist.KindJSON, persist.KindSQLite))
	}
	if c.Paste.Delay.Duration < 0 {
		errs = append(errs, fmt.Errorf("paste.delay %s: must not be negative", c.Paste.Delay))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir: must not be empty"))
	}
	return errors.Join(errs...)
}

// Write encodes cfg to w.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file unless
// force is set.
func Init(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return f.Close()
}

// SetDefaults registers the built-in values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyStorageType, d.Storage.Type)
	v.SetDefault(KeyPasteDelay, d.Paste.Delay.String())
	v.SetDefault(KeyHeadless, d.Clipboard.Headless)
}

// FromViper assembles a validated Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if s := v.GetString(KeyDataDir); s != "" {
		cfg.DataDir = s
	}
	cfg.Socket = v.GetString(KeySocket)
	cfg.LogLevel = v.GetString(KeyLogLevel)
	if s := v.GetString(KeyLogFormat); s != "" {
		cfg.LogFormat = s
	}
	if s := v.GetString(KeyStorageType); s != "" {
		cfg.Storage.Type = s
	}
	if raw := v.Get(KeyPasteDelay); raw != nil {
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyPasteDelay, err)
		}
		cfg.Paste.Delay = Duration{d}
	}
	cfg.Clipboard.Headless = v.GetBool(KeyHeadless)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
