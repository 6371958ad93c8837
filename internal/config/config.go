// Package config handles configuration loading for vespera.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for vespera.
type Config struct {
	Executor ExecutorConfig `mapstructure:"executor"`
	Store    StoreConfig    `mapstructure:"store"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// ExecutorConfig holds hook execution settings.
type ExecutorConfig struct {
	// MaxParallel is the bounded concurrency limit for parallel stages.
	MaxParallel int `mapstructure:"max_parallel"`
	// OverwhelmThreshold is the maximum hooks per stage before splitting.
	OverwhelmThreshold int `mapstructure:"overwhelm_threshold"`
	// CheckpointInterval is how often the executor checkpoints.
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	// HookTimeout is the per-hook execution deadline.
	HookTimeout time.Duration `mapstructure:"hook_timeout"`
}

// StoreConfig holds checkpoint persistence settings.
type StoreConfig struct {
	// Path is the SQLite database location. Empty selects the global
	// XDG data path, or the project-local path when inside a project.
	Path string `mapstructure:"path"`
}

// WatchConfig holds TUI display settings.
type WatchConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration with the following precedence (highest first):
// 1. Environment variables (VESPERA_*)
// 2. Project config (.vespera.yaml in current directory or parent)
// 3. User config (~/.config/vespera/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VESPERA")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			MaxParallel:        3,
			OverwhelmThreshold: 5,
			CheckpointInterval: 2 * time.Minute,
			HookTimeout:        10 * time.Minute,
		},
		Watch: WatchConfig{RefreshRate: 100 * time.Millisecond},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("executor.max_parallel", 3)
	v.SetDefault("executor.overwhelm_threshold", 5)
	v.SetDefault("executor.checkpoint_interval", "2m")
	v.SetDefault("executor.hook_timeout", "10m")
	v.SetDefault("store.path", "")
	v.SetDefault("watch.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for vespera.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vespera")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "vespera")
	}
	return filepath.Join(home, ".config", "vespera")
}

// findProjectConfig searches for .vespera.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".vespera.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
