package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "restate/internal/shared/errors"

	"github.com/caarlos0/env/v6"
)

// Backend drivers
const (
	DriverHTTP   = "http"
	DriverMemory = "memory"
)

// BackendConfig identifies the backend project and the collections the app reads.
type BackendConfig struct {
	Endpoint   string `env:"APPWRITE_ENDPOINT"`
	ProjectID  string `env:"APPWRITE_PROJECT_ID"`
	Platform   string `env:"APPWRITE_PLATFORM" envDefault:"com.zel.restate"`
	PlatformOS string `env:"APPWRITE_PLATFORM_OS" envDefault:"android"`
	DatabaseID string `env:"APPWRITE_DATABASE_ID"`

	GalleriesCollectionID  string `env:"APPWRITE_GALLERIES_COLLECTION_ID"`
	ReviewsCollectionID    string `env:"APPWRITE_REVIEWS_COLLECTION_ID"`
	AgentsCollectionID     string `env:"APPWRITE_AGENTS_COLLECTION_ID"`
	PropertiesCollectionID string `env:"APPWRITE_PROPERTIES_COLLECTION_ID"`

	RateLimitRPS   float64 `env:"APPWRITE_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"APPWRITE_RATE_LIMIT_BURST" envDefault:"20"`

	Driver         string `env:"BACKEND_DRIVER" envDefault:"http"`
	MemorySeedFile string `env:"MEMORY_SEED_FILE"`
}

// AuthSessionConfig configures the loopback receiver for the OAuth redirect.
type AuthSessionConfig struct {
	CallbackAddr string        `env:"AUTH_CALLBACK_ADDR" envDefault:"127.0.0.1:8791"`
	Timeout      time.Duration `env:"AUTH_SESSION_TIMEOUT" envDefault:"5m"`
	OpenBrowser  bool          `env:"AUTH_OPEN_BROWSER" envDefault:"true"`
}

// ServerConfig holds the gateway listener configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3000"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Config is the full application configuration. It is populated once at
// start and passed by value afterwards.
type Config struct {
	Backend     BackendConfig
	AuthSession AuthSessionConfig
	Server      ServerConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Backend); err != nil {
		return nil, errors.New("failed to load backend configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.AuthSession); err != nil {
		return nil, errors.New("failed to load auth session configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return nil, errors.New("failed to load server configuration from environment: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the process cannot start without. Database and
// collection ids are checked where they are used.
func (c *Config) Validate() error {
	c.Backend.Driver = strings.ToLower(strings.TrimSpace(c.Backend.Driver))
	switch c.Backend.Driver {
	case DriverHTTP:
		if c.Backend.Endpoint == "" {
			return errors.New("APPWRITE_ENDPOINT is required for the http backend driver")
		}
		if _, err := url.ParseRequestURI(c.Backend.Endpoint); err != nil {
			return fmt.Errorf("APPWRITE_ENDPOINT is not a valid URL: %w", err)
		}
		if c.Backend.ProjectID == "" {
			return errors.New("APPWRITE_PROJECT_ID is required for the http backend driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("BACKEND_DRIVER must be %q or %q, got %q", DriverHTTP, DriverMemory, c.Backend.Driver)
	}

	if c.Backend.RateLimitRPS < 0 {
		return errors.New("APPWRITE_RATE_LIMIT_RPS must not be negative")
	}
	if c.AuthSession.CallbackAddr == "" {
		return errors.New("AUTH_CALLBACK_ADDR must not be empty")
	}
	return nil
}

// PropertiesCollection returns the database and properties collection ids,
// failing when either is absent.
func (b BackendConfig) PropertiesCollection() (databaseID, collectionID string, err error) {
	if b.DatabaseID == "" {
		return "", "", apperrors.NewConfigurationError("APPWRITE_DATABASE_ID")
	}
	if b.PropertiesCollectionID == "" {
		return "", "", apperrors.NewConfigurationError("APPWRITE_PROPERTIES_COLLECTION_ID")
	}
	return b.DatabaseID, b.PropertiesCollectionID, nil
}

// DefaultConfig returns a configuration suitable for the in-memory driver.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Platform:               "com.zel.restate",
			PlatformOS:             "android",
			DatabaseID:             "restate",
			GalleriesCollectionID:  "galleries",
			ReviewsCollectionID:    "reviews",
			AgentsCollectionID:     "agents",
			PropertiesCollectionID: "properties",
			RateLimitRPS:           10,
			RateLimitBurst:         20,
			Driver:                 DriverMemory,
		},
		AuthSession: AuthSessionConfig{
			CallbackAddr: "127.0.0.1:8791",
			Timeout:      5 * time.Minute,
			OpenBrowser:  true,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "3000",
		},
	}
}
