package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	CORS   CORSConfig        `yaml:"cors"`
	Client ClientConfig      `yaml:"client"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds token and login throttling configuration.
//
// LoginRate is the refill interval of the per-email login limiter; LoginBurst
// attempts are allowed back to back. A zero LoginRate disables throttling.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	LoginRate  time.Duration `yaml:"login_rate"`
	LoginBurst int           `yaml:"login_burst"`
}

// Validate validates the auth configuration. The secret may be empty here so
// client commands can share the file; RequireSecret guards the server.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Length(16, 0)),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.LoginRate, validation.Min(time.Duration(0))),
		validation.Field(&c.LoginBurst, validation.Min(0)),
	)
}

// RequireSecret reports an error unless a signing secret is configured.
func (c *AuthConfig) RequireSecret() error {
	err := validation.Validate(c.JWTSecret, validation.Required, validation.Length(16, 0))
	if err != nil {
		return fmt.Errorf("auth.jwt_secret: %w", err)
	}
	return nil
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	BaseURL        string        `yaml:"base_url"`
	SessionFile    string        `yaml:"session_file"`
	AutosaveDelay  time.Duration `yaml:"autosave_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AutosaveNotice bool          `yaml:"autosave_notice"`
	LogFile        string        `yaml:"log_file"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SessionFile, validation.Required),
		validation.Field(&c.AutosaveDelay, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./quire.db",
		},
		Auth: AuthConfig{
			TokenTTL:   30 * time.Minute,
			LoginRate:  10 * time.Second,
			LoginBurst: 5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Client: ClientConfig{
			BaseURL:        "http://localhost:8000/api/v1",
			SessionFile:    defaultSessionFile(),
			AutosaveDelay:  time.Second,
			RequestTimeout: 15 * time.Second,
			LogFile:        "quire-tui.log",
		},
	}
}
