package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/you/spreadwatch/internal/types"
	"gopkg.in/yaml.v3"
)

type VenueCfg struct {
	RestURL string `yaml:"rest_url"`
	WsURL   string `yaml:"ws_url"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
	SnapKey  string `yaml:"snap_key"`
}

type Config struct {
	Pair   string `yaml:"pair"`
	Source string `yaml:"source"` // rest | ws

	Venues struct {
		A types.VenueID `yaml:"a"`
		B types.VenueID `yaml:"b"`
	} `yaml:"venues"`

	Binance  VenueCfg `yaml:"binance"`
	Coinbase VenueCfg `yaml:"coinbase"`
	MEXC     VenueCfg `yaml:"mexc"`

	Symbols map[types.VenueID]map[types.Pair]string `yaml:"symbols"`

	Timings struct {
		StatusIntervalMs int `yaml:"status_interval_ms"`
		FetchTimeoutMs   int `yaml:"fetch_timeout_ms"`
		MinCycleMs       int `yaml:"min_cycle_ms"`
		HTTPTimeoutMs    int `yaml:"http_timeout_ms"`
	} `yaml:"timings"`

	Retry struct {
		MaxAttempts int `yaml:"max_attempts"`
		// 0 means the default (200); there is no zero backoff.
		BackoffMs int `yaml:"backoff_ms"`
	} `yaml:"retry"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Dash struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"dash"`

	Redis RedisCfg `yaml:"redis"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = "rest"
	}
	if c.Venues.A == "" {
		c.Venues.A = types.Binance
	}
	if c.Venues.B == "" {
		c.Venues.B = types.Coinbase
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://api.binance.com"
	}
	if c.Binance.WsURL == "" {
		c.Binance.WsURL = "wss://stream.binance.com:9443/ws"
	}
	if c.Coinbase.RestURL == "" {
		c.Coinbase.RestURL = "https://api.exchange.coinbase.com"
	}
	if c.MEXC.RestURL == "" {
		c.MEXC.RestURL = "https://api.mexc.com"
	}
	if c.Timings.StatusIntervalMs == 0 {
		c.Timings.StatusIntervalMs = 7000
	}
	if c.Timings.HTTPTimeoutMs == 0 {
		c.Timings.HTTPTimeoutMs = 6000
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.BackoffMs == 0 {
		c.Retry.BackoffMs = 200
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "spread:alerts"
	}
	if c.Redis.SnapKey == "" {
		c.Redis.SnapKey = "spread:latest"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate catches settings that would only fail once the loop is running.
func (c *Config) Validate() error {
	if c.Venues.A == c.Venues.B {
		return &types.ConfigurationError{Msg: fmt.Sprintf("venues.a and venues.b are both %q", c.Venues.A)}
	}
	if c.Source != "rest" && c.Source != "ws" {
		return &types.ConfigurationError{Msg: fmt.Sprintf("unknown source %q", c.Source)}
	}
	if c.Retry.MaxAttempts < 1 {
		return &types.ConfigurationError{Msg: "retry.max_attempts must be >= 1"}
	}
	if c.Retry.BackoffMs < 0 {
		return &types.ConfigurationError{Msg: "retry.backoff_ms must not be negative"}
	}
	if c.Timings.StatusIntervalMs < 0 || c.Timings.FetchTimeoutMs < 0 || c.Timings.MinCycleMs < 0 {
		return &types.ConfigurationError{Msg: "timings must not be negative"}
	}
	return nil
}

func (c *Config) Venue(id types.VenueID) VenueCfg {
	switch id {
	case types.Binance:
		return c.Binance
	case types.Coinbase:
		return c.Coinbase
	case types.MEXC:
		return c.MEXC
	}
	return VenueCfg{}
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Timings.StatusIntervalMs) * time.Millisecond
}
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Timings.FetchTimeoutMs) * time.Millisecond
}
func (c *Config) MinCycle() time.Duration {
	return time.Duration(c.Timings.MinCycleMs) * time.Millisecond
}
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Timings.HTTPTimeoutMs) * time.Millisecond
}
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Retry.BackoffMs) * time.Millisecond
}
