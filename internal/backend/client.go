// Package backend is a small client for the Appwrite-compatible REST API
// the application reads from. One Client is built per process and shared
// by the Account, Avatars and Databases services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "restate/internal/shared/errors"
	"restate/internal/shared/logger"
	"restate/internal/shared/metrics"

	"golang.org/x/time/rate"
)

const (
	responseFormat = "1.6.0"
	sdkName        = "restate-go"
	sdkVersion     = "0.1.0"

	headerProject         = "X-Appwrite-Project"
	headerResponseFormat  = "X-Appwrite-Response-Format"
	headerFallbackCookies = "X-Fallback-Cookies"
)

// Client carries the endpoint, project headers and the in-memory session cookie.
type Client struct {
	endpoint   string
	projectID  string
	platform   string
	platformOS string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger

	mu              sync.RWMutex
	fallbackCookies string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. A cookie jar is attached when missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit paces outbound calls. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPlatformOS sets the scheme prefix of the Origin header (android, ios).
func WithPlatformOS(os string) Option {
	return func(c *Client) {
		c.platformOS = os
	}
}

// NewClient creates a client for the given endpoint (including the /v1 suffix), project and platform id.
func NewClient(endpoint, projectID, platform string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, apperrors.NewConfigurationError("endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid endpoint %q", endpoint)).WithCause(apperrors.ErrInvalidInput)
	}
	if projectID == "" {
		return nil, apperrors.NewConfigurationError("projectId")
	}

	c := &Client{
		endpoint:   endpoint,
		projectID:  projectID,
		platform:   platform,
		platformOS: "android",
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	c.logger = c.logger.WithComponent("backend")

	return c, nil
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// ProjectID returns the configured project id.
func (c *Client) ProjectID() string { return c.projectID }

// Origin is the value sent in the Origin header.
func (c *Client) Origin() string {
	return fmt.Sprintf("appwrite-%s://%s", c.platformOS, c.platform)
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "health.version", http.MethodGet, "/health/version", nil, nil, nil)
}

// buildURL joins path and params onto the endpoint without performing a request.
func (c *Client) buildURL(path string, params url.Values) string {
	u := c.endpoint + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) setFallbackCookies(v string) {
	c.mu.Lock()
	c.fallbackCookies = v
	c.mu.Unlock()
}

func (c *Client) getFallbackCookies() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallbackCookies
}

// call performs one request. GET/DELETE params travel in the query string,
// other methods send body as JSON. out may be nil.
func (c *Client) call(ctx context.Context, operation, method, path string, params url.Values, body interface{}, out interface{}) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveBackendCall(operation, started, err)
	}()

	if err = c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var reader io.Reader
	if body != nil {
		payload, mErr := json.Marshal(body)
		if mErr != nil {
			return fmt.Errorf("%s: encode request: %w", operation, mErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, params), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	c.setHeaders(req, body != nil)

	log := c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"operation": operation,
		"method":    method,
		"path":      path,
	})
	log.Debug("Calling backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewInfrastructureError(operation + " request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if fallback := resp.Header.Get(headerFallbackCookies); fallback != "" {
		c.setFallbackCookies(fallback)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewInfrastructureError(operation + " read failed").WithCause(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp.StatusCode, raw)
		log.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"type":   apiErr.Type,
		}).Warnf("Backend call failed: %s", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s: %w", operation, apperrors.ErrEmptyResponse)
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set(headerProject, c.projectID)
	req.Header.Set(headerResponseFormat, responseFormat)
	req.Header.Set("X-SDK-Name", sdkName)
	req.Header.Set("X-SDK-Platform", "client")
	req.Header.Set("X-SDK-Language", "go")
	req.Header.Set("X-SDK-Version", sdkVersion)
	req.Header.Set("Origin", c.Origin())
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if fallback := c.getFallbackCookies(); fallback != "" {
		req.Header.Set(headerFallbackCookies, fallback)
	}
}

// Services bundles the account, avatars and databases services of one Client.
type Services struct {
	*Client
	*Account
	*Avatars
	*Databases
}

// NewServices builds every service on c.
func NewServices(c *Client) *Services {
	return &Services{
		Client:    c,
		Account:   NewAccount(c),
		Avatars:   NewAvatars(c),
		Databases: NewDatabases(c),
	}
}
