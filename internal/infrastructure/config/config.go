package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		RefreshEverySec int      `toml:"refresh_every_sec"`
		MinScore        *float64 `toml:"min_score"` // 不配置表示不设评分下限
		UrgentWindowMin int      `toml:"urgent_window_min"`
		SortKey         string   `toml:"sort_key"`
		SortDesc        bool     `toml:"sort_desc"`
		LogLevel        string   `toml:"log_level"`
	} `toml:"app"`

	Backend struct {
		BaseURL    string `toml:"base_url"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"backend"`

	Events struct {
		Enabled bool   `toml:"enabled"`
		WsURL   string `toml:"ws_url"`
	} `toml:"events"`

	Cache struct {
		TTLSec int `toml:"ttl_sec"`

		Redis struct {
			Enabled bool   `toml:"enabled"`
			Addr    string `toml:"addr"`
			Prefix  string `toml:"prefix"`
		} `toml:"redis"`
	} `toml:"cache"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.RefreshEverySec <= 0 {
		cfg.App.RefreshEverySec = 10
	}
	if cfg.App.UrgentWindowMin <= 0 {
		cfg.App.UrgentWindowMin = 5
	}
	if cfg.App.SortKey == "" {
		cfg.App.SortKey = "score"
		cfg.App.SortDesc = true
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Backend.TimeoutSec <= 0 {
		cfg.Backend.TimeoutSec = 10
	}
	if cfg.Cache.TTLSec <= 0 {
		cfg.Cache.TTLSec = 15
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "fundarb"
	}
}

func validate(cfg *Config) error {
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if cfg.Backend.BaseURL == "" {
		return errors.New("backend.base_url is empty")
	}
	if cfg.Events.Enabled && strings.TrimSpace(cfg.Events.WsURL) == "" {
		return errors.New("events.ws_url empty but enabled")
	}
	if cfg.Cache.Redis.Enabled && strings.TrimSpace(cfg.Cache.Redis.Addr) == "" {
		return errors.New("cache.redis.addr empty but enabled")
	}
	return nil
}
