package testutil

import (
	"testing"
	"time"

	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	StorefrontURL     string
	RequestsPerSecond int
	RenderPages       bool
	Rating            string
	CMSBackend        string
	CMSURL            string
	CMSToken          string
	CMSDBFile         string
	Delay             time.Duration
	GalleryLimit      int
	Concurrency       int
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		StorefrontURL:     config.StorefrontURL,
		RequestsPerSecond: config.RequestsPerSecond,
		RenderPages:       config.RenderPages,
		Rating:            config.Rating,
		CMSBackend:        config.CMSBackend,
		CMSURL:            config.CMSURL,
		CMSToken:          config.CMSToken,
		CMSDBFile:         config.CMSDBFile,
		Delay:             config.Delay,
		GalleryLimit:      config.GalleryLimit,
		Concurrency:       config.Concurrency,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.StorefrontURL = state.StorefrontURL
	config.RequestsPerSecond = state.RequestsPerSecond
	config.RenderPages = state.RenderPages
	config.Rating = state.Rating
	config.CMSBackend = state.CMSBackend
	config.CMSURL = state.CMSURL
	config.CMSToken = state.CMSToken
	config.CMSDBFile = state.CMSDBFile
	config.Delay = state.Delay
	config.GalleryLimit = state.GalleryLimit
	config.Concurrency = state.Concurrency
}

// SetTestConfig resets viper and applies fast, offline defaults: no delay
// between products, no request limiting, sqlite backend. Everything is
// restored when the test completes.
func SetTestConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	config.StorefrontURL = "http://storefront.invalid"
	config.RequestsPerSecond = 0
	config.RenderPages = false
	config.Rating = config.DefaultRating
	config.CMSBackend = "sqlite"
	config.CMSURL = "http://cms.invalid"
	config.CMSToken = "test-token"
	config.CMSDBFile = ":memory:"
	config.Delay = 0
	config.GalleryLimit = config.DefaultGalleryLimit
	config.Concurrency = 4

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetupTestCache points the cache at a database inside env.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFile("cache/.keep", nil)
	viper.Set("cache.dbfile", dbPath)
	viper.Set("cache.ttl", "24h")

	return dbPath
}
