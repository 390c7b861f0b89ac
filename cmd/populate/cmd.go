package populate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/lepinkainen/catalogfill/internal/datastore"
	"github.com/lepinkainen/catalogfill/internal/storefront"
	"github.com/spf13/viper"
)

var (
	newBrowserRenderer = func(ctx context.Context, userAgent string) (renderer, error) {
		return storefront.NewBrowserRenderer(ctx, userAgent)
	}
	newHistoryStore = datastore.NewFromConfig
)

type renderer interface {
	storefront.Renderer
	Close()
}

// Params are the options of one populate run.
type Params struct {
	// Catalog is passed to the listing endpoint as query parameters
	Catalog url.Values
	Pages   int
	// Backend overrides cms.backend
	Backend    string
	DryRun     bool
	NoCache    bool
	Render     bool
	ReportPath string
}

// RunWithParams builds the storefront client and CMS backend from the global
// configuration and runs the pipeline. The error is only set when the run
// could not start; per-product problems are in the report.
func RunWithParams(ctx context.Context, params Params) (*Report, error) {
	backend, closeBackend, err := OpenBackend(params.Backend, params.DryRun)
	if err != nil {
		return nil, err
	}
	defer closeBackend()

	opts := []storefront.Option{storefront.WithDetailCache(!params.NoCache)}
	if params.Render || config.RenderPages {
		r, err := newBrowserRenderer(ctx, config.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		defer r.Close()
		opts = append(opts, storefront.WithRenderer(r))
	}

	pipeline := New(
		storefront.NewClientFromConfig(opts...),
		backend,
		WithDelay(config.Delay),
		WithGalleryLimit(config.GalleryLimit),
		WithConcurrency(config.Concurrency),
	)

	report := pipeline.PopulatePages(ctx, params.Catalog, params.Pages)

	if params.ReportPath != "" {
		if err := report.WriteFile(params.ReportPath); err != nil {
			slog.Error("Failed to write report", "path", params.ReportPath, "error", err)
		}
	}

	if viper.GetBool("datasette.enabled") && !params.DryRun {
		store, err := newHistoryStore()
		if err == nil {
			err = RecordHistory(store, report)
		}
		if err != nil {
			slog.Error("Failed to record run history", "error", err)
		}
	}

	return report, nil
}

// OpenBackend returns the CMS backend named by name (cms.backend when empty)
// and a function releasing it. A dry run always uses a throwaway in-memory store.
func OpenBackend(name string, dryRun bool) (cms.Backend, func(), error) {
	if dryRun {
		slog.Info("Dry run, writing to an in-memory CMS")
		return openSQLite(cms.MemoryDSN)
	}

	if name == "" {
		name = config.CMSBackend
	}

	switch name {
	case "rest":
		if config.CMSToken == "" {
			slog.Warn("No CMS token configured, requests are sent unauthenticated")
		}
		return cms.NewClient(config.CMSURL, config.CMSToken), func() {}, nil
	case "sqlite":
		return openSQLite(config.CMSDBFile)
	default:
		return nil, nil, fmt.Errorf("unknown CMS backend %q (valid backends are: rest, sqlite)", name)
	}
}

func openSQLite(path string) (cms.Backend, func(), error) {
	store, err := cms.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close CMS database", "error", err)
		}
	}, nil
}
