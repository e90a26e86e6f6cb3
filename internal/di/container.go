package di

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"restate/internal/auth"
	"restate/internal/auth/adapter/browser"
	authrepo "restate/internal/auth/domain/repository"
	"restate/internal/backend"
	"restate/internal/backend/memory"
	"restate/internal/config"
	"restate/internal/property"
	propertyrepo "restate/internal/property/domain/repository"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/logger"
)

const headlessTimeout = 30 * time.Second

// BackendGateway is everything the modules need from a backend driver.
type BackendGateway interface {
	authrepo.AccountGateway
	authrepo.AvatarGateway
	propertyrepo.DocumentGateway
	Ping(ctx context.Context) error
}

var (
	_ BackendGateway = (*backend.Services)(nil)
	_ BackendGateway = (*memory.Backend)(nil)
)

// Container represents a dependency injection container with proper lifecycle management
type Container struct {
	mu sync.RWMutex
	// Module instances
	AuthModule     *auth.AuthModule
	PropertyModule *property.PropertyModule
	// Backend driver selected by configuration
	Backend BackendGateway
	Browser *browser.LoopbackBrowser
	Bus     *eventbus.EventBus
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates a new DI container
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		Config: cfg,
		Logger: log,
		Bus:    eventbus.NewEventBus(log.WithComponent("eventbus")),
	}
}

// Initialize builds the backend driver and every module.
func (c *Container) Initialize() error {
	if err := c.InitializeBackend(); err != nil {
		return err
	}
	if err := c.InitializeAuth(); err != nil {
		return err
	}
	return c.InitializeProperty()
}

// InitializeBackend creates the backend driver named by the configuration
func (c *Container) InitializeBackend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.Config.Backend
	log := c.Logger.WithComponent("backend")

	switch cfg.Driver {
	case config.DriverMemory:
		mem, err := memory.New(cfg.ProjectID, memory.WithLogger(log))
		if err != nil {
			return fmt.Errorf("failed to create memory backend: %w", err)
		}
		if cfg.MemorySeedFile != "" {
			if err := mem.LoadSeedFile(cfg.MemorySeedFile); err != nil {
				return err
			}
		}
		c.Backend = mem
	case config.DriverHTTP:
		client, err := backend.NewClient(cfg.Endpoint, cfg.ProjectID, cfg.Platform,
			backend.WithPlatformOS(cfg.PlatformOS),
			backend.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
			backend.WithLogger(log),
		)
		if err != nil {
			return fmt.Errorf("failed to create backend client: %w", err)
		}
		c.Backend = backend.NewServices(client)
	default:
		return fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}

	log.Infof("Backend driver %s initialized", cfg.Driver)
	return nil
}

// InitializeAuth initializes the session module on the backend driver
func (c *Container) InitializeAuth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Backend == nil {
		return fmt.Errorf("backend must be initialized before auth module")
	}

	authCfg := c.Config.AuthSession
	c.Browser = browser.NewLoopbackBrowser(authCfg.CallbackAddr,
		browser.WithTimeout(authCfg.Timeout),
		browser.WithOpener(c.authURLOpener()),
		browser.WithLogger(c.Logger),
	)

	c.AuthModule = auth.NewAuthModule(auth.Dependencies{
		Account: c.Backend,
		Avatars: c.Backend,
		Linker:  c.Browser,
		Opener:  c.Browser,
		Bus:     c.Bus,
		Logger:  c.Logger,
	})
	return nil
}

// authURLOpener picks how the OAuth page is shown. The memory driver
// redirects straight to the loopback address, so it can be followed without
// a browser.
func (c *Container) authURLOpener() func(string) error {
	if c.Config.AuthSession.OpenBrowser {
		return browser.SystemOpener
	}
	if c.Config.Backend.Driver == config.DriverMemory {
		return browser.HeadlessOpener(&http.Client{Timeout: headlessTimeout})
	}
	log := c.Logger.WithComponent("auth")
	return func(url string) error {
		log.Infof("Open this URL in a browser to sign in: %s", url)
		return nil
	}
}

// InitializeProperty initializes the property query module
func (c *Container) InitializeProperty() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Backend == nil {
		return fmt.Errorf("backend must be initialized before property module")
	}
	c.PropertyModule = property.NewPropertyModule(c.Backend, c.Config.Backend, c.Logger)
	return nil
}

// Start runs background work of the modules
func (c *Container) Start() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.AuthModule != nil {
		c.AuthModule.Start()
	}
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetPropertyModule returns the property module instance
func (c *Container) GetPropertyModule() *property.PropertyModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PropertyModule
}

// HealthCheck pings the backend
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Backend == nil {
		return fmt.Errorf("backend not initialized")
	}
	if err := c.Backend.Ping(ctx); err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}
	return nil
}

// Close stops the modules in reverse order of initialization
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.PropertyModule = nil
	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			c.Logger.Warnf("Failed to stop auth module: %v", err)
		}
		c.AuthModule = nil
	}
	c.Logger.Info("DI container resources closed")
	return nil
}
