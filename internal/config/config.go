package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Clob      ClobConfig      `mapstructure:"clob"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type AuthConfig struct {
	// RelayKey is the shared secret presented by relay clients.
	RelayKey string `mapstructure:"relay_key"`
	// AdminKey gates the credential CRUD surface.
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type ClobConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
	ChainID int64  `mapstructure:"chain_id"`
	// VerifyL1Proof recovers the wallet signature of provisioning requests
	// and requires it to match the claimed owner address.
	VerifyL1Proof bool `mapstructure:"verify_l1_proof"`
	// DeriveProxyFunder fills a missing funder address with the owner's
	// derived proxy wallet when storing credentials.
	DeriveProxyFunder bool `mapstructure:"derive_proxy_funder"`
}

type ExecutorConfig struct {
	FunderBackoffMs    int `mapstructure:"funder_backoff_ms"`
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds"`
}

type RateLimitConfig struct {
	WindowSeconds        int     `mapstructure:"window_seconds"`
	MaxRequests          int     `mapstructure:"max_requests"`
	SweepIntervalSeconds int     `mapstructure:"sweep_interval_seconds"`
	GlobalQPS            float64 `mapstructure:"global_qps"`
	GlobalBurst          int     `mapstructure:"global_burst"`
}

type StreamConfig struct {
	// Enabled opens the websocket user channel at boot using the stored
	// credentials of Owner.
	Enabled bool   `mapstructure:"enabled"`
	Owner   string `mapstructure:"owner"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. POLYRELAY_AUTH_RELAY_KEY
	viper.SetEnvPrefix("polyrelay")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("clob.base_url", "https://clob.polymarket.com")
	viper.SetDefault("clob.ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/user")
	viper.SetDefault("clob.chain_id", 137)
	viper.SetDefault("clob.verify_l1_proof", true)
	viper.SetDefault("clob.derive_proxy_funder", false)
	viper.SetDefault("executor.funder_backoff_ms", 350)
	viper.SetDefault("executor.http_timeout_seconds", 10)
	viper.SetDefault("rate_limit.window_seconds", 60)
	viper.SetDefault("rate_limit.max_requests", 30)
	viper.SetDefault("rate_limit.sweep_interval_seconds", 300)
	viper.SetDefault("rate_limit.global_qps", 50)
	viper.SetDefault("rate_limit.global_burst", 100)
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
