// Package browser runs the external part of the OAuth flow: it opens the
// provider page in the system browser and receives the redirect on a
// loopback address.
package browser

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"restate/internal/auth/domain/model"
	"restate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	pkgbrowser "github.com/pkg/browser"
)

const callbackPage = `<!doctype html><html><body><p>Signed in. You can close this window.</p></body></html>`

// LoopbackBrowser implements the redirect target and the auth session on 127.0.0.1.
type LoopbackBrowser struct {
	addr    string
	timeout time.Duration
	open    func(url string) error
	log     logger.Logger
}

// Option configures a LoopbackBrowser.
type Option func(*LoopbackBrowser)

// WithTimeout sets how long to wait for the redirect before the session is dismissed.
func WithTimeout(d time.Duration) Option {
	return func(b *LoopbackBrowser) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithOpener replaces the function that presents the auth URL.
func WithOpener(open func(url string) error) Option {
	return func(b *LoopbackBrowser) {
		b.open = open
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *LoopbackBrowser) {
		b.log = l
	}
}

// NewLoopbackBrowser creates a browser bound to addr (host:port). By default
// the system browser is opened.
func NewLoopbackBrowser(addr string, opts ...Option) *LoopbackBrowser {
	b := &LoopbackBrowser{
		addr:    addr,
		timeout: 5 * time.Minute,
		open:    SystemOpener,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithComponent("loopback_browser")
	return b
}

// SystemOpener opens url in the user's default browser.
func SystemOpener(url string) error {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
	return pkgbrowser.OpenURL(url)
}

// HeadlessOpener follows url with client instead of a browser. It suits
// providers that redirect straight to the success URL.
func HeadlessOpener(client *http.Client) func(url string) error {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(url string) error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Body.Close()
	}
}

// CreateURL returns the redirect target for path on the loopback address.
func (b *LoopbackBrowser) CreateURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + b.addr + path
}

// OpenAuthSession opens authURL and waits for the browser to reach
// redirectURL. The result is success with the full callback URL, cancel
// when ctx ends first, or dismiss when the timeout elapses.
func (b *LoopbackBrowser) OpenAuthSession(ctx context.Context, authURL, redirectURL string) (*model.AuthSessionResult, error) {
	target, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	redirectPath := target.Path
	if redirectPath == "" {
		redirectPath = "/"
	}

	callbacks := make(chan string, 1)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/*", func(c *fiber.Ctx) error {
		if c.Path() != redirectPath {
			return c.SendStatus(fiber.StatusNotFound)
		}
		select {
		case callbacks <- c.BaseURL() + c.OriginalURL():
		default:
		}
		c.Type("html")
		return c.SendString(callbackPage)
	})

	ln, err := net.Listen("tcp", target.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for redirect on %s: %w", target.Host, err)
	}
	go func() {
		if err := app.Listener(ln); err != nil {
			b.log.Warnf("Callback listener stopped: %v", err)
		}
	}()
	defer func() {
		if err := app.Shutdown(); err != nil {
			b.log.Warnf("Failed to stop callback listener: %v", err)
		}
		// Serve may not have picked up ln yet
		_ = ln.Close()
	}()

	log := b.log.WithContext(ctx)
	log.Infof("Opening auth session, waiting for redirect on %s", target.Host)
	if err := b.open(authURL); err != nil {
		return nil, fmt.Errorf("failed to open auth url: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case callback := <-callbacks:
		log.Debug("Received auth redirect")
		return &model.AuthSessionResult{Type: model.AuthSessionSuccess, URL: callback}, nil
	case <-ctx.Done():
		log.Info("Auth session cancelled")
		return &model.AuthSessionResult{Type: model.AuthSessionCancel}, nil
	case <-timer.C:
		log.Warnf("Auth session dismissed after %s", b.timeout)
		return &model.AuthSessionResult{Type: model.AuthSessionDismiss}, nil
	}
}
