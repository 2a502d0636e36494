package gateway

import (
	"errors"
	"net"
	"time"

	"github.com/flemzord/coffee/internal/security"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// PushWriteTimeout bounds one websocket write to a subscriber.
	PushWriteTimeout time.Duration `yaml:"push_write_timeout"`

	// MaxBodySize and MaxJSONDepth bound request bodies.
	MaxBodySize  int `yaml:"max_body_size"`
	MaxJSONDepth int `yaml:"max_json_depth"`

	// AllowAnonymous serves the API without credentials. Local development only.
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.PushWriteTimeout <= 0 {
		c.PushWriteTimeout = 5 * time.Second
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = security.DefaultMaxPayloadSize
	}
	if c.MaxJSONDepth <= 0 {
		c.MaxJSONDepth = security.DefaultMaxJSONDepth
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		errs = append(errs, errors.New("gateway: invalid bind address: "+c.Bind))
	}
	if !c.Auth.IsConfigured() && !c.AllowAnonymous {
		errs = append(errs, errors.New("gateway: auth is required unless allow_anonymous is set"))
	}
	return errors.Join(errs...)
}

// AuthConfig configures authentication for the API and push endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
