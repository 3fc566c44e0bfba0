package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DefaultRoom     string        `mapstructure:"default_room" yaml:"default_room"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxNameLength   int           `mapstructure:"max_name_length" yaml:"max_name_length"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	PersistTimeout  time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`
	HistoryDefault  int           `mapstructure:"history_default" yaml:"history_default"`
	HistoryMax      int           `mapstructure:"history_max" yaml:"history_max"`
	EventBuffer     int           `mapstructure:"event_buffer" yaml:"event_buffer"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Auth  AuthConfig  `mapstructure:"auth" yaml:"auth"`
}

// StoreConfig selects and configures the message log backend.
type StoreConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	RedisMaxLen int64  `mapstructure:"redis_max_len" yaml:"redis_max_len"`
}

// AuthConfig holds control-surface credentials. Passwords may be plain text
// or bcrypt hashes; an empty password disables that tier.
type AuthConfig struct {
	AdminPassword string        `mapstructure:"admin_password" yaml:"admin_password"`
	ModPassword   string        `mapstructure:"mod_password" yaml:"mod_password"`
	SessionSecret string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DefaultRoom:       "general",
		MaxMessageBytes:   64 * 1024,
		MaxNameLength:     64,
		RateLimit:         10,
		RateBurst:         20,
		PersistTimeout:    3 * time.Second,
		HistoryDefault:    200,
		HistoryMax:        1000,
		EventBuffer:       64,
		Store: StoreConfig{
			Backend:     BackendSQLite,
			SQLitePath:  "socketchat.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "socketchat:",
		},
		Auth: AuthConfig{
			AdminPassword: "admin123",
			ModPassword:   "mod123",
			SessionSecret: "change-me-in-production",
			SessionTTL:    12 * time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DefaultRoom != "" {
		c.DefaultRoom = other.DefaultRoom
	}
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
}
