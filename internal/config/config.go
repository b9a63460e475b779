package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Terminal identity
	TerminalID string `mapstructure:"TERMINAL_ID"`

	// Remote store
	RemoteBaseURL   string `mapstructure:"REMOTE_BASE_URL"`
	RemoteAPIKey    string `mapstructure:"REMOTE_API_KEY"`
	RemoteTimeoutMS int    `mapstructure:"REMOTE_TIMEOUT_MS"`

	// Local replica
	LocalDBPath string `mapstructure:"LOCAL_DB_PATH"`

	// Redis (session broadcast + dead letter queue)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Sync
	SyncIntervalSeconds int `mapstructure:"SYNC_INTERVAL_SECONDS"`
	SyncBatchSize       int `mapstructure:"SYNC_BATCH_SIZE"`
	SyncMaxRetries      int `mapstructure:"SYNC_MAX_RETRIES"`

	// Connectivity probe
	ProbeIntervalSeconds int `mapstructure:"PROBE_INTERVAL_SECONDS"`

	// Session
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	SessionTokenHours int    `mapstructure:"SESSION_TOKEN_HOURS"`
}

// RemoteTimeout is the bounded per-call budget for any remote store attempt;
// when it elapses the operation falls back to the local replica.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8400)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TERMINAL_ID", "register-1")
	viper.SetDefault("REMOTE_BASE_URL", "http://localhost:8080")
	viper.SetDefault("REMOTE_TIMEOUT_MS", 3000)
	viper.SetDefault("LOCAL_DB_PATH", "tillsync.db")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("SYNC_BATCH_SIZE", 25)
	viper.SetDefault("SYNC_MAX_RETRIES", 8)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("SESSION_TOKEN_HOURS", 12)

	// Optional .env file for local development, not an error if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
