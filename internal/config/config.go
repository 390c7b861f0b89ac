package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultStorefrontURL is the storefront whose catalog is imported
	DefaultStorefrontURL = "https://www.gog.com"
	// DefaultCMSURL is where a locally running CMS listens
	DefaultCMSURL = "http://localhost:1337"
	// DefaultRating is the placeholder age rating stored on every scraped game
	DefaultRating = "BR0"
	// DefaultDelay is the pause between two products of a run
	DefaultDelay = 2 * time.Second
	// DefaultGalleryLimit caps how many gallery images are uploaded per game
	DefaultGalleryLimit = 5
)

// Global configuration variables
var (
	// StorefrontURL is the base URL of the storefront catalog and detail pages
	StorefrontURL string
	// UserAgent is sent with every storefront request
	UserAgent string
	// RequestsPerSecond limits storefront requests
	RequestsPerSecond int
	// RenderPages enables headless browser rendering of detail pages
	RenderPages bool
	// Rating is stored on every created game
	Rating string

	// CMSBackend selects the CMS implementation: "rest" or "sqlite"
	CMSBackend string
	// CMSURL is the base URL of the CMS REST API
	CMSURL string
	// CMSToken is the bearer token used against the CMS
	CMSToken string
	// CMSDBFile is the database file of the sqlite backend
	CMSDBFile string

	// Delay is the pause between products
	Delay time.Duration
	// GalleryLimit caps gallery uploads per game
	GalleryLimit int
	// Concurrency bounds parallel entity creation
	Concurrency int
)

// SetDefaults registers the default value of every known key
func SetDefaults() {
	viper.SetDefault("storefront.base_url", DefaultStorefrontURL)
	viper.SetDefault("storefront.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	viper.SetDefault("storefront.requests_per_second", 2)
	viper.SetDefault("storefront.render", false)
	viper.SetDefault("storefront.rating", DefaultRating)

	viper.SetDefault("cms.backend", "rest")
	viper.SetDefault("cms.url", DefaultCMSURL)
	viper.SetDefault("cms.token", "")
	viper.SetDefault("cms.dbfile", "./cms.db")

	viper.SetDefault("populate.delay", DefaultDelay.String())
	viper.SetDefault("populate.gallery_limit", DefaultGalleryLimit)
	viper.SetDefault("populate.concurrency", 8)

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days

	viper.SetDefault("datasette.enabled", false)
	viper.SetDefault("datasette.mode", "local")
	viper.SetDefault("datasette.dbfile", "./catalogfill.db")
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	StorefrontURL = viper.GetString("storefront.base_url")
	UserAgent = viper.GetString("storefront.user_agent")
	RequestsPerSecond = viper.GetInt("storefront.requests_per_second")
	RenderPages = viper.GetBool("storefront.render")
	Rating = viper.GetString("storefront.rating")

	CMSBackend = viper.GetString("cms.backend")
	CMSURL = viper.GetString("cms.url")
	CMSToken = viper.GetString("cms.token")
	CMSDBFile = viper.GetString("cms.dbfile")

	Delay = parseDuration("populate.delay", DefaultDelay)
	GalleryLimit = viper.GetInt("populate.gallery_limit")
	Concurrency = viper.GetInt("populate.concurrency")
	if Concurrency < 1 {
		Concurrency = 1
	}
}

// SetDelay overrides the pause between products
func SetDelay(d time.Duration) {
	Delay = d
}

// SetCMSBackend overrides the configured CMS backend
func SetCMSBackend(backend string) {
	CMSBackend = backend
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in config, using default", "key", key, "value", raw, "error", err)
		return fallback
	}
	return d
}
