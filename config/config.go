// Package config loads engine configuration from a YAML file, with
// defaults sane enough to run without one.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the tunable surface of a running engine: how big the buffer
// pool is, how long a blocked lock acquire waits before the waiting
// transaction is aborted, and where table files live. Server.Address is
// loaded but nothing in this module listens on it.
type Config struct {
	Storage struct {
		PageSize    int    `mapstructure:"page_size"`
		Dir         string `mapstructure:"dir"`
		BufferPages int    `mapstructure:"buffer_pages"`
	} `mapstructure:"storage"`
	Lock struct {
		TimeoutMillis int `mapstructure:"timeout_millis"`
	} `mapstructure:"lock"`
	Server struct {
		Address string `mapstructure:"address"`
		Debug   bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// LockTimeout returns the configured lock wait bound as a time.Duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutMillis) * time.Millisecond
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	var c Config
	c.Storage.PageSize = 4096
	c.Storage.Dir = "./data"
	c.Storage.BufferPages = 128
	c.Lock.TimeoutMillis = 500
	c.Server.Address = "localhost:5432"
	return &c
}

// Load reads YAML configuration from path, applying Default's values for
// anything the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("storage.page_size", cfg.Storage.PageSize)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.buffer_pages", cfg.Storage.BufferPages)
	v.SetDefault("lock.timeout_millis", cfg.Lock.TimeoutMillis)
	v.SetDefault("server.address", cfg.Server.Address)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
