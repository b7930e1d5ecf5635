// Package config loads the kconfsync settings file.
//
// The file is TOML and optional:
//
//	config_home = "~/.config"
//	immutable_by_default = false
//	reset_files = ["kdeglobals", "kwinrc", "plasma-*"]
//	journal = "~/.local/state/kconfsync/journal.db"
//
// Command-line flags override anything set here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// ErrConfigNotFound is returned by Load when the file does not exist. It is
// not fatal: the returned Settings hold the defaults.
var ErrConfigNotFound = errors.New("configuration file not found")

// Settings are the tool defaults.
type Settings struct {
	// ConfigHome is the directory relative target paths and reset patterns
	// resolve against.
	ConfigHome string `mapstructure:"config_home"`

	ImmutableByDefault bool `mapstructure:"immutable_by_default"`

	// ResetFiles are glob patterns naming files owned by the declarative
	// source.
	ResetFiles []string `mapstructure:"reset_files"`

	// Journal is the SQLite journal path. Empty disables journaling.
	Journal string `mapstructure:"journal"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{ConfigHome: ConfigHome()}
}

// ConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func ConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// DefaultPath returns the settings file location under the config home.
func DefaultPath() string {
	home := ConfigHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, "kconfsync", "config.toml")
}

// Load reads the settings file at path over the defaults. A missing file
// returns the defaults together with ErrConfigNotFound.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, ErrConfigNotFound
		}
		return settings, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	raw := make(map[string]any)
	if err := toml.Unmarshal(data, &raw); err != nil {
		return settings, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &settings,
		DecodeHook:  mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return settings, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return settings, fmt.Errorf("invalid config file '%s': %w", path, err)
	}

	settings.ConfigHome, err = expandHome(settings.ConfigHome)
	if err != nil {
		return settings, err
	}
	settings.Journal, err = expandHome(settings.Journal)
	if err != nil {
		return settings, err
	}
	return settings, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
