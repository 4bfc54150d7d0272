// Package config loads the scribews command line configuration from an optional YAML file
// and SCRIBE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sonirico/scribews"
	"github.com/sonirico/scribews/api"
)

const EnvPrefix = "SCRIBE_"

var (
	ErrInvalidBackendConfig  = errors.New("invalid backend configuration")
	ErrInvalidRealtimeConfig = errors.New("invalid realtime configuration")
	ErrInvalidAPIConfig      = errors.New("invalid api configuration")
)

type Config struct {
	// BackendURL is the backend host[:port]. A scheme, when present, is ignored in favour of Secure.
	BackendURL string `yaml:"backend_url" env:"BACKEND_URL"`
	// Secure switches to https and wss.
	Secure bool `yaml:"secure" env:"SECURE"`

	WS  WebsocketSettings `yaml:"ws" envPrefix:"WS_"`
	API APISettings       `yaml:"api" envPrefix:"API_"`
	Log LogSettings       `yaml:"log" envPrefix:"LOG_"`
}

type WebsocketSettings struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" env:"MAX_RECONNECT_ATTEMPTS"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	GatewayPrefix        string        `yaml:"gateway_prefix" env:"GATEWAY_PREFIX"`
}

type APISettings struct {
	Timeout               time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UploadTimeout         time.Duration `yaml:"upload_timeout" env:"UPLOAD_TIMEOUT"`
	TemplateUploadTimeout time.Duration `yaml:"template_upload_timeout" env:"TEMPLATE_UPLOAD_TIMEOUT"`
}

type LogSettings struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

func Default() Config {
	return Config{
		BackendURL: "localhost:8000",
		WS: WebsocketSettings{
			MaxReconnectAttempts: 3,
			ReconnectDelay:       5 * time.Second,
			HeartbeatInterval:    30 * time.Second,
			GatewayPrefix:        scribews.DefaultGatewayPrefix,
		},
		API: APISettings{
			Timeout:               30 * time.Second,
			UploadTimeout:         120 * time.Second,
			TemplateUploadTimeout: 60 * time.Second,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	if c.host() == "" {
		return fmt.Errorf("%w: empty backend url", ErrInvalidBackendConfig)
	}
	if c.WS.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: max reconnect attempts must not be negative", ErrInvalidRealtimeConfig)
	}
	if c.WS.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect delay must be positive", ErrInvalidRealtimeConfig)
	}
	if c.WS.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: heartbeat interval must not be negative", ErrInvalidRealtimeConfig)
	}
	if c.API.Timeout <= 0 || c.API.UploadTimeout <= 0 || c.API.TemplateUploadTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidAPIConfig)
	}
	return nil
}

func (c Config) host() string {
	host := strings.TrimSpace(c.BackendURL)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return strings.TrimRight(host, "/")
}

func (c Config) APIBaseURL() string {
	if c.Secure {
		return "https://" + c.host()
	}
	return "http://" + c.host()
}

func (c Config) WSBaseURL() string {
	if c.Secure {
		return "wss://" + c.host()
	}
	return "ws://" + c.host()
}

// RealtimeConfig returns the realtime client configuration.
func (c Config) RealtimeConfig() scribews.Config {
	cfg := scribews.DefaultConfig()
	cfg.BaseAddress = c.WSBaseURL()
	cfg.MaxReconnectAttempts = c.WS.MaxReconnectAttempts
	cfg.ReconnectDelay = c.WS.ReconnectDelay
	cfg.HeartbeatInterval = c.WS.HeartbeatInterval
	if c.WS.GatewayPrefix != "" {
		cfg.GatewayPrefix = c.WS.GatewayPrefix
	}
	return cfg
}

// APIConfig returns the REST client configuration.
func (c Config) APIConfig() api.Config {
	return api.Config{
		BaseURL:               c.APIBaseURL(),
		Timeout:               c.API.Timeout,
		UploadTimeout:         c.API.UploadTimeout,
		TemplateUploadTimeout: c.API.TemplateUploadTimeout,
	}
}
