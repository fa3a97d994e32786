// Package config provides configuration defaults and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr       = ":8080"
	DefaultTimeout    = 30 * time.Second
	DefaultSessionTTL = 2 * time.Hour
	DefaultLogLevel   = "info"
)

// FileConfig represents the TOML configuration file.
// Pointer fields distinguish "unset" from zero values.
type FileConfig struct {
	Server  ServerConfig  `toml:"server"`
	Dataset DatasetConfig `toml:"dataset"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr *string `toml:"addr"`
}

type DatasetConfig struct {
	Source  *string   `toml:"source"`
	Timeout *Duration `toml:"timeout"`
}

type SessionConfig struct {
	TTL *Duration `toml:"ttl"`
}

type LogConfig struct {
	Level *string `toml:"level"`
}

// Duration decodes TOML strings such as "30s" or "2h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undec[0].String())
	}
	return cfg, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/aidash/config.toml, falling back to ~/.config.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			base = "."
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "aidash", "config.toml")
}
