// Package storefront reads the public game catalog: listing pages,
// product detail pages and product images.
package storefront

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/lepinkainen/catalogfill/internal/ratelimit"
)

const (
	defaultBaseURL       = config.DefaultStorefrontURL
	defaultRatePerSecond = 2
	defaultTimeout       = 30 * time.Second
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Renderer produces the HTML of a page after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Client talks to the storefront.
type Client struct {
	baseURL     string
	userAgent   string
	rating      string
	httpClient  HTTPDoer
	rateLimiter *ratelimit.Limiter
	renderer    Renderer
	useCache    bool
}

// NewClient creates a storefront client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     defaultBaseURL,
		rating:      config.DefaultRating,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		rateLimiter: ratelimit.New("storefront", defaultRatePerSecond),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// NewClientFromConfig creates a client from the global configuration.
func NewClientFromConfig(opts ...Option) *Client {
	base := []Option{
		WithBaseURL(config.StorefrontURL),
		WithUserAgent(config.UserAgent),
		WithRating(config.Rating),
		WithRateLimiter(ratelimit.New("storefront", config.RequestsPerSecond)),
	}
	return NewClient(append(base, opts...)...)
}

// BaseURL returns the storefront root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets the storefront root URL.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// WithRating sets the age rating reported for every scraped product.
func WithRating(rating string) Option {
	return func(client *Client) {
		if rating != "" {
			client.rating = rating
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// WithRenderer fetches detail pages through r instead of plain HTTP.
func WithRenderer(r Renderer) Option {
	return func(client *Client) {
		client.renderer = r
	}
}

// WithDetailCache enables the persistent detail page cache.
func WithDetailCache(enabled bool) Option {
	return func(client *Client) {
		client.useCache = enabled
	}
}
