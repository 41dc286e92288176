// Package config internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	RatesAPI struct {
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries *int          `yaml:"max_retries"`
		Backoff    time.Duration `yaml:"backoff"`
	} `yaml:"rates_api"`
	Store struct {
		Driver     string `yaml:"driver"`
		BadgerPath string `yaml:"badger_path"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Sync struct {
		WindowDays *int     `yaml:"window_days"`
		WarmCron   string   `yaml:"warm_cron"`
		WarmPairs  []string `yaml:"warm_pairs"`
	} `yaml:"sync"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RATES_API_BASE_URL"); v != "" {
		c.RatesAPI.BaseURL = v
	}
	if v := os.Getenv("RATES_API_KEY"); v != "" {
		c.RatesAPI.APIKey = v
	}
	if v := os.Getenv("RATES_API_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RATES_API_MAX_RETRIES: %w", err)
		}
		c.RatesAPI.MaxRetries = &n
	}
	if v := os.Getenv("RATES_API_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse RATES_API_BACKOFF: %w", err)
		}
		c.RatesAPI.Backoff = d
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("BADGER_PATH"); v != "" {
		c.Store.BadgerPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("SYNC_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SYNC_WINDOW_DAYS: %w", err)
		}
		c.Sync.WindowDays = &n
	}
	if v := os.Getenv("SYNC_WARM_CRON"); v != "" {
		c.Sync.WarmCron = v
	}
	if v := os.Getenv("SYNC_WARM_PAIRS"); v != "" {
		c.Sync.WarmPairs = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// a cold history request can wait out several fetch backoffs
		c.Server.WriteTimeout = 3 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.RatesAPI.BaseURL == "" {
		c.RatesAPI.BaseURL = "http://api.exchangeratesapi.io/v1"
	}
	if c.RatesAPI.Timeout == 0 {
		c.RatesAPI.Timeout = 10 * time.Second
	}
	if c.RatesAPI.MaxRetries == nil {
		n := 3
		c.RatesAPI.MaxRetries = &n
	}
	if c.RatesAPI.Backoff == 0 {
		c.RatesAPI.Backoff = 30 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverBadger
	}
	if c.Store.BadgerPath == "" {
		c.Store.BadgerPath = "data"
	}
	if c.Store.Redis.Key == "" {
		c.Store.Redis.Key = "historicalRates"
	}
	if c.Sync.WindowDays == nil {
		n := 3
		c.Sync.WindowDays = &n
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	pairs := c.Sync.WarmPairs[:0]
	for _, p := range c.Sync.WarmPairs {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			pairs = append(pairs, p)
		}
	}
	c.Sync.WarmPairs = pairs
}

// Validate checks that all fields hold usable values
func (c *Config) Validate() error {
	if c.RatesAPI.BaseURL == "" {
		return fmt.Errorf("rates_api.base_url is required")
	}
	if c.RatesAPI.MaxRetries != nil && *c.RatesAPI.MaxRetries < 0 {
		return fmt.Errorf("rates_api.max_retries must not be negative")
	}
	if c.RatesAPI.Backoff < 0 {
		return fmt.Errorf("rates_api.backoff must not be negative")
	}
	switch c.Store.Driver {
	case DriverBadger:
		if c.Store.BadgerPath == "" {
			return fmt.Errorf("store.badger_path is required for the badger driver")
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverBadger, DriverRedis, c.Store.Driver)
	}
	if c.Sync.WindowDays != nil && *c.Sync.WindowDays < 0 {
		return fmt.Errorf("sync.window_days must not be negative")
	}
	for _, p := range c.Sync.WarmPairs {
		if _, _, err := ParsePair(p); err != nil {
			return fmt.Errorf("sync.warm_pairs: %w", err)
		}
	}
	return nil
}

// ParsePair splits a "BASE/TARGET" pair
func ParsePair(pair string) (string, string, error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return "", "", fmt.Errorf("invalid currency pair %q, expected BASE/TARGET", pair)
	}
	return parts[0], parts[1], nil
}
