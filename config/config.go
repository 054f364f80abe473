// Package config loads application settings from an optional YAML file,
// falling back to built-in defaults.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type StorageConfig struct {
	// BaseDir is the directory under which per-user storage roots and
	// catalog databases are created.
	BaseDir string `mapstructure:"base_dir"`
	// User selects whose catalog this process serves.
	User string `mapstructure:"user"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configPath if it exists and returns the merged configuration.
// A missing file is not an error; defaults apply.
func Load(configPath string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("storage.user", "admin")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
