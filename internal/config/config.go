// Package config loads the optional YAML settings file. Flags and
// environment variables are handled by the CLI and win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/utils"
)

const FileName = "config.yaml"

type Config struct {
	// Timezone is the IANA zone used to interpret "today" and date arguments
	Timezone string `yaml:"timezone"`

	// HorizonDays bounds the conflict check of recurring schedules
	HorizonDays int `yaml:"horizon_days"`

	// ImpromptuRequiresConfirmation files impromptu adds as pending
	// instead of confirming them right away.
	ImpromptuRequiresConfirmation bool `yaml:"impromptu_requires_confirmation"`

	// LogDir overrides <config dir>/logs
	LogDir string `yaml:"log_dir,omitempty"`

	// BackupRetention is how many SQLite snapshots are kept
	BackupRetention int `yaml:"backup_retention"`
}

func DefaultConfig() *Config {
	return &Config{
		Timezone:                      "Local",
		HorizonDays:                   constants.DefaultHorizonDays,
		ImpromptuRequiresConfirmation: true,
		BackupRetention:               constants.MaxBackups,
	}
}

// Normalize fills zero values with defaults so partial files still work
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = constants.DefaultHorizonDays
	}
	if c.BackupRetention <= 0 {
		c.BackupRetention = constants.MaxBackups
	}
}

func (c *Config) Validate() error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	return nil
}

// Location resolves Timezone, falling back to the system zone
func (c *Config) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads path. A missing file yields the defaults; keys absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with 0600 permissions via a temp file and rename
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
