package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "tasksync"
	configFile = "config.yaml"
	envPrefix  = "TASKSYNC"
)

type Config struct {
	Source       string            `mapstructure:"source"`
	Destination  string            `mapstructure:"destination"`
	MapFile      string            `mapstructure:"map_file"`
	CleanOrphans bool              `mapstructure:"clean_orphans"`
	LogLevel     string            `mapstructure:"log_level"`
	LogFormat    string            `mapstructure:"log_format"`
	Taskwarrior  TaskwarriorConfig `mapstructure:"taskwarrior"`
	Google       GoogleConfig      `mapstructure:"google"`
	Orgmode      OrgmodeConfig     `mapstructure:"orgmode"`

	// Dir holds credentials, tokens and the default map file.
	Dir string `mapstructure:"-"`
}

type TaskwarriorConfig struct {
	Bin    string   `mapstructure:"bin"`
	Filter []string `mapstructure:"filter"`
}

type GoogleConfig struct {
	TaskList string `mapstructure:"tasklist"`
}

type OrgmodeConfig struct {
	Files []string `mapstructure:"files"`
}

// Dir returns the configuration directory, ~/.config/tasksync.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("source", "taskwarrior")
	v.SetDefault("destination", "google")
	v.SetDefault("map_file", filepath.Join(dir, "taskmap.json"))
	v.SetDefault("clean_orphans", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("taskwarrior.bin", "task")
	v.SetDefault("taskwarrior.filter", []string{"status.not:deleted"})
	v.SetDefault("google.tasklist", "Tasks")
	v.SetDefault("orgmode.files", []string{})
}

// New returns a viper instance with defaults and environment binding. When
// path is empty the default config file is used; a missing file is not an
// error.
func New(path string) (*viper.Viper, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	if path == "" {
		path = filepath.Join(dir, configFile)
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return v, nil
}

// Load decodes the effective configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	if used := v.ConfigFileUsed(); used != "" {
		cfg.Dir = filepath.Dir(used)
	}
	cfg.MapFile = expandHome(cfg.MapFile)
	for i, f := range cfg.Orgmode.Files {
		cfg.Orgmode.Files[i] = expandHome(f)
	}
	return &cfg, nil
}

// Set writes key=value into the config file behind v, creating it if needed.
func Set(v *viper.Viper, key, value string) error {
	path := v.ConfigFileUsed()
	if path == "" {
		return fmt.Errorf("no config file path configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Only the file's own contents are written back, not defaults or env.
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var val any = value
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		val = parts
	}
	file.Set(key, val)
	v.Set(key, val)

	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
