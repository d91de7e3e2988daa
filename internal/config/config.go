package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the client settings. Values come from an optional yaml file
// with environment-variable fallback.
type Config struct {
	ServerURL string        `yaml:"server_url" env:"TASKDECK_SERVER" env-default:"http://localhost:5000"`
	Timeout   time.Duration `yaml:"timeout" env:"TASKDECK_TIMEOUT" env-default:"10s"`
	LogLevel  string        `yaml:"log_level" env:"TASKDECK_LOG_LEVEL" env-default:"INFO"`
}

// Load reads configuration from path, falling back to environment variables
// when the file does not exist. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, err
	}

	return cfg, nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "taskdeck", "config.yaml")
}
