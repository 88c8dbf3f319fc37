// Package config loads settings from defaults, an optional TOML file and
// TASKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "tasks"

// Config holds application configuration.
type Config struct {
	Storage StorageConfig
	Log     LogConfig
	UI      UIConfig
}

// StorageConfig selects where the task collection is persisted.
type StorageConfig struct {
	Backend string // file | sqlite | memory
	Path    string
	Key     string
}

type LogConfig struct {
	Level string
}

type UIConfig struct {
	Group bool
	Theme string
}

// Load reads configuration. file may be empty; then $TASKS_CONFIG is used,
// and failing that config.toml in the user config directory if it exists.
// Env var overrides use prefix TASKS_ (storage.backend -> TASKS_STORAGE_BACKEND).
func Load(file string) (Config, error) {
	v := viper.New()

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.key", "tasks")
	v.SetDefault("log.level", "warn")
	v.SetDefault("ui.group", false)
	v.SetDefault("ui.theme", "classic")

	v.SetConfigType("toml")

	if file == "" {
		file = os.Getenv("TASKS_CONFIG")
	}
	explicit := file != ""
	if explicit {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TASKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultPath(c.Storage.Backend)
	}
	return c, nil
}

// DefaultPath is where a backend keeps its data when no path is configured.
// The backend name is case-insensitive.
func DefaultPath(backend string) string {
	name := "tasks.json"
	if strings.EqualFold(strings.TrimSpace(backend), "sqlite") {
		name = "tasks.db"
	}
	return filepath.Join(dataDir(), name)
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".local", "share", appName)
}
