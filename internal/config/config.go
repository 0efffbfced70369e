package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// AuthToken is the single shared token clients must present at
	// connection time. Required.
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`

	// HistoryLimit caps how many messages a joining client receives.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
	Nats  NatsConfig  `mapstructure:"nats" yaml:"nats"`
}

// RedisConfig holds the store connection and keying settings. HistoryKey,
// ActiveUsersKey, MessageExpiry and MaxMessages are required.
type RedisConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	Password       string `mapstructure:"password" yaml:"password"`
	DB             int    `mapstructure:"db" yaml:"db"`
	HistoryKey     string `mapstructure:"history_key" yaml:"history_key"`
	ActiveUsersKey string `mapstructure:"active_users_key" yaml:"active_users_key"`
	MessageExpiry  int    `mapstructure:"message_expiry" yaml:"message_expiry"` // seconds
	MaxMessages    int64  `mapstructure:"max_messages" yaml:"max_messages"`
}

// NatsConfig holds the bus connection settings.
type NatsConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
}

// Default returns configuration with reasonable starter defaults. The
// required fields (auth token and the four store settings) have no default
// and must come from the config file or environment.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
		HistoryLimit:      100,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Nats: NatsConfig{
			URL:            "nats://localhost:4222",
			ConnectTimeout: 3 * time.Second,
			ReconnectWait:  time.Second,
		},
	}
}

// Validate reports the first missing or invalid required setting. A
// validation failure is fatal at startup.
func (c Config) Validate() error {
	if c.AuthToken == "" {
		return errors.New("auth_token is required")
	}
	if c.Redis.HistoryKey == "" {
		return errors.New("redis.history_key is required")
	}
	if c.Redis.ActiveUsersKey == "" {
		return errors.New("redis.active_users_key is required")
	}
	if c.Redis.MessageExpiry <= 0 {
		return fmt.Errorf("redis.message_expiry must be a positive number of seconds, got %d", c.Redis.MessageExpiry)
	}
	if c.Redis.MaxMessages <= 0 {
		return fmt.Errorf("redis.max_messages must be positive, got %d", c.Redis.MaxMessages)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}
