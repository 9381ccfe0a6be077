package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete gateway configuration. Zero values are filled
// in by Validate so a partial file or environment still yields a
// runnable gateway.
type Config struct {
	HTTP     HTTPConfig     `json:"http" mapstructure:"http"`
	Ops      OpsConfig      `json:"ops" mapstructure:"ops"`
	NATS     NATSConfig     `json:"nats" mapstructure:"nats"`
	Invoker  InvokerConfig  `json:"invoker" mapstructure:"invoker"`
	Throttle ThrottleConfig `json:"throttle" mapstructure:"throttle"`
	Store    StoreConfig    `json:"store" mapstructure:"store"`
}

// HTTPConfig holds the public web action listener settings.
type HTTPConfig struct {
	Port        int           `json:"port" mapstructure:"port"`
	MaxBodySize int64         `json:"max_body_size" mapstructure:"max_body_size"`
	ReadTimeout time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
}

// OpsConfig holds the operations listener (metrics and health) settings.
type OpsConfig struct {
	Port int    `json:"port" mapstructure:"port"`
	Path string `json:"path" mapstructure:"path"`
}

// NATSConfig defines the NATS connection.
type NATSConfig struct {
	URLs          []string      `json:"urls" mapstructure:"urls"`
	Name          string        `json:"name" mapstructure:"name"`
	MaxReconnects int           `json:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `json:"reconnect_wait" mapstructure:"reconnect_wait"`
	Username      string        `json:"username" mapstructure:"username"`
	Password      string        `json:"password" mapstructure:"password"`
	Token         string        `json:"token" mapstructure:"token"`
}

// InvokerConfig controls the blocking invocation bridge.
type InvokerConfig struct {
	Subject         string        `json:"subject" mapstructure:"subject"`
	MaxBlockingWait time.Duration `json:"max_blocking_wait" mapstructure:"max_blocking_wait"`
}

// ThrottleConfig controls the entitlement layer. With an empty Redis
// address throttling runs on process-local counters only.
type ThrottleConfig struct {
	RedisAddr             string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword         string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB               int    `json:"redis_db" mapstructure:"redis_db"`
	InvocationsPerMinute  int    `json:"invocations_per_minute" mapstructure:"invocations_per_minute"`
	ConcurrentInvocations int    `json:"concurrent_invocations" mapstructure:"concurrent_invocations"`
}

// StoreConfig controls the identity and entity lookups.
type StoreConfig struct {
	IdentityCacheTTL time.Duration `json:"identity_cache_ttl" mapstructure:"identity_cache_ttl"`
}

// Validate checks the configuration and applies defaults in place.
func (c *Config) Validate() error {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.MaxBodySize == 0 {
		c.HTTP.MaxBodySize = 1 << 20
	}
	if c.HTTP.MaxBodySize < 0 {
		return errors.New("http.max_body_size must be positive")
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 90 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 2 * time.Minute
	}

	if c.Ops.Port == 0 {
		c.Ops.Port = 9090
	}
	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port %d out of range", c.Ops.Port)
	}
	if c.Ops.Path == "" {
		c.Ops.Path = "/metrics"
	}
	if c.Ops.Port == c.HTTP.Port {
		return errors.New("ops.port must differ from http.port")
	}

	if len(c.NATS.URLs) == 0 {
		c.NATS.URLs = []string{"nats://localhost:4222"}
	}
	for _, u := range c.NATS.URLs {
		if strings.TrimSpace(u) == "" {
			return errors.New("nats.urls contains an empty entry")
		}
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "actiongate"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = -1
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = 2 * time.Second
	}

	if c.Invoker.Subject == "" {
		c.Invoker.Subject = "invoker.activations"
	}
	if c.Invoker.MaxBlockingWait == 0 {
		c.Invoker.MaxBlockingWait = 60 * time.Second
	}
	if c.Invoker.MaxBlockingWait < time.Second {
		return errors.New("invoker.max_blocking_wait must be at least one second")
	}

	if c.Throttle.InvocationsPerMinute == 0 {
		c.Throttle.InvocationsPerMinute = 120
	}
	if c.Throttle.InvocationsPerMinute < 0 {
		return errors.New("throttle.invocations_per_minute must be positive")
	}
	if c.Throttle.ConcurrentInvocations == 0 {
		c.Throttle.ConcurrentInvocations = 100
	}
	if c.Throttle.ConcurrentInvocations < 0 {
		return errors.New("throttle.concurrent_invocations must be positive")
	}

	if c.Store.IdentityCacheTTL == 0 {
		c.Store.IdentityCacheTTL = 30 * time.Second
	}

	return nil
}

// Load reads configuration from an optional file plus ACTIONGATE_*
// environment variables, then validates the result. An empty path skips
// the file and uses environment and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTIONGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.max_body_size", 1<<20)
	v.SetDefault("http.read_timeout", "90s")
	v.SetDefault("http.idle_timeout", "2m")
	v.SetDefault("ops.port", 9090)
	v.SetDefault("ops.path", "/metrics")
	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.name", "actiongate")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("invoker.subject", "invoker.activations")
	v.SetDefault("invoker.max_blocking_wait", "60s")
	v.SetDefault("throttle.redis_addr", "")
	v.SetDefault("throttle.redis_db", 0)
	v.SetDefault("throttle.invocations_per_minute", 120)
	v.SetDefault("throttle.concurrent_invocations", 100)
	v.SetDefault("store.identity_cache_ttl", "30s")
}
