// Package config loads modelfeed configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for modelfeed.
type Config struct {
	ListenAddr   string  `mapstructure:"listen_addr"`
	FeedURL      string  `mapstructure:"feed_url"`
	DBPath       string  `mapstructure:"db_path"`
	RefreshCron  string  `mapstructure:"refresh_cron"`
	AdminToken   string  `mapstructure:"admin_token"`
	CacheTTL     string  `mapstructure:"cache_ttl"`
	FeedRateRPS  float64 `mapstructure:"feed_rate_rps"`
	FetchTimeout string  `mapstructure:"fetch_timeout"`
	LogLevel     string  `mapstructure:"log_level"`
}

// Load reads configuration. cfgFile may be empty, in which case the
// default search paths apply and a missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("listen_addr", ":8787")
	v.SetDefault("feed_url", "")
	v.SetDefault("db_path", "modelfeed.db")
	v.SetDefault("refresh_cron", "@hourly")
	v.SetDefault("admin_token", "")
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("feed_rate_rps", 2.0)
	v.SetDefault("fetch_timeout", "60s")
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/modelfeed")
	}

	// Environment variables
	v.SetEnvPrefix("MODELFEED")
	v.AutomaticEnv()

	_ = v.BindEnv("listen_addr", "MODELFEED_LISTEN_ADDR")
	_ = v.BindEnv("feed_url", "MODELFEED_FEED_URL")
	_ = v.BindEnv("db_path", "MODELFEED_DB_PATH")
	_ = v.BindEnv("refresh_cron", "MODELFEED_REFRESH_CRON")
	_ = v.BindEnv("admin_token", "MODELFEED_ADMIN_TOKEN")
	_ = v.BindEnv("log_level", "MODELFEED_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// CacheTTLDuration parses the cache TTL, falling back to an hour.
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// FetchTimeoutDuration parses the fetch timeout, falling back to a minute.
func (c *Config) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return time.Minute
	}
	return d
}
