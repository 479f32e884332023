package client

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	DefaultUsername   = "Anonymous"
	DefaultServerAddr = "localhost"
	DefaultPort       = 1500
)

// Config holds the client's connection settings.
type Config struct {
	Username   string `validate:"required,max=64"`
	ServerAddr string `validate:"required,hostname_rfc1123|ip"`
	Port       int    `validate:"min=1,max=65535"`
}

type envConfig struct {
	Username   string `env:"RELAYCHAT_USERNAME"`
	ServerAddr string `env:"RELAYCHAT_SERVER_ADDR"`
	Port       int    `env:"RELAYCHAT_PORT"`
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Username:   DefaultUsername,
		ServerAddr: DefaultServerAddr,
		Port:       DefaultPort,
	}
}

// LoadConfigFromEnv applies RELAYCHAT_* environment variables on top of the
// defaults.
func LoadConfigFromEnv() (Config, error) {
	var e envConfig
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	cfg := DefaultConfig()
	if e.Username != "" {
		cfg.Username = e.Username
	}
	if e.ServerAddr != "" {
		cfg.ServerAddr = e.ServerAddr
	}
	if e.Port > 0 {
		cfg.Port = e.Port
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}
	return nil
}

// URL is the WebSocket endpoint of the configured server.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.ServerAddr, strconv.Itoa(c.Port)),
		Path:   "/ws",
	}
	return u.String()
}
