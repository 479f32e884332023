package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Defaults for a relay started without arguments.
const (
	DefaultHost            = ""
	DefaultPort            = 1500
	DefaultBannedWordsPath = "badwords.txt"
)

// RateLimitConfig defines the parameters for per-session message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server settings.
type Config struct {
	Host            string
	Port            int
	BannedWordsPath string
	AllowedOrigins  []string
	MaxMessageSize  int64
	SendBufferSize  int
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration
	LogLevel        string
}

// envConfig mirrors Config with the environment variables that override it.
// Zero values mean "not set".
type envConfig struct {
	Host                    string        `env:"RELAYCHAT_HOST"`
	Port                    int           `env:"RELAYCHAT_PORT"`
	BannedWordsPath         string        `env:"RELAYCHAT_BANNED_WORDS"`
	AllowedOrigins          string        `env:"RELAYCHAT_ALLOWED_ORIGINS"`
	MaxMessageSize          int           `env:"RELAYCHAT_MAX_MESSAGE_SIZE"`
	SendBufferSize          int           `env:"RELAYCHAT_SEND_BUFFER"`
	RateLimitBurst          int           `env:"RELAYCHAT_RATE_LIMIT_BURST"`
	RateLimitRefillInterval time.Duration `env:"RELAYCHAT_RATE_LIMIT_REFILL_INTERVAL"`
	ShutdownTimeout         time.Duration `env:"RELAYCHAT_SHUTDOWN_TIMEOUT"`
	LogLevel                string        `env:"RELAYCHAT_LOG_LEVEL"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		BannedWordsPath: DefaultBannedWordsPath,
		AllowedOrigins:  []string{"http://localhost:1500"},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfigFromEnv applies RELAYCHAT_* environment variables on top of the
// defaults.
func LoadConfigFromEnv() (Config, error) {
	var e envConfig
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return e.apply(DefaultConfig()), nil
}

func (e envConfig) apply(cfg Config) Config {
	if e.Host != "" {
		cfg.Host = e.Host
	}
	if e.Port > 0 {
		cfg.Port = e.Port
	}
	if e.BannedWordsPath != "" {
		cfg.BannedWordsPath = e.BannedWordsPath
	}
	if e.AllowedOrigins != "" {
		cfg.AllowedOrigins = parseOrigins(e.AllowedOrigins)
	}
	if e.MaxMessageSize > 0 {
		cfg.MaxMessageSize = int64(e.MaxMessageSize)
	}
	if e.SendBufferSize > 0 {
		cfg.SendBufferSize = e.SendBufferSize
	}
	if e.RateLimitBurst > 0 {
		cfg.RateLimit.Burst = e.RateLimitBurst
	}
	if e.RateLimitRefillInterval > 0 {
		cfg.RateLimit.RefillInterval = e.RateLimitRefillInterval
	}
	if e.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = e.ShutdownTimeout
	}
	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}
	return cfg
}

// Sanitize replaces invalid values with defaults.
func (c Config) Sanitize() Config {
	def := DefaultConfig()
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = def.Port
	}
	if c.BannedWordsPath == "" {
		c.BannedWordsPath = def.BannedWordsPath
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = def.SendBufferSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// Address is the host:port the HTTP listener binds to.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
