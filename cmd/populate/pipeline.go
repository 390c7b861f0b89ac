// Package populate copies a storefront catalog page into the CMS: related
// entities first, then one game per product with its cover and gallery.
package populate

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/lepinkainen/catalogfill/internal/ratelimit"
	"github.com/lepinkainen/catalogfill/internal/storefront"
)

const defaultConcurrency = 8

// Storefront is the read side of the pipeline.
type Storefront interface {
	FetchCatalog(ctx context.Context, params url.Values) (*storefront.CatalogPage, error)
	FetchDetail(ctx context.Context, slug string) (*storefront.Detail, error)
	DownloadImage(ctx context.Context, partial string) (*storefront.Image, error)
}

// Pipeline writes storefront products to a CMS backend.
type Pipeline struct {
	store        Storefront
	backend      cms.Backend
	delay        time.Duration
	galleryLimit int
	concurrency  int
	pause        func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDelay sets the pause between two products.
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithGalleryLimit caps the gallery images uploaded per game.
func WithGalleryLimit(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.galleryLimit = n
		}
	}
}

// WithConcurrency bounds parallel entity creates and image uploads.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPause replaces the function used to wait between products.
func WithPause(pause func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		if pause != nil {
			p.pause = pause
		}
	}
}

// New creates a pipeline reading from store and writing to backend.
func New(store Storefront, backend cms.Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		backend:      backend,
		delay:        config.DefaultDelay,
		galleryLimit: config.DefaultGalleryLimit,
		concurrency:  defaultConcurrency,
		pause:        ratelimit.Pause,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Populate imports one catalog page. It never fails: every problem is logged
// and recorded in the returned report.
func (p *Pipeline) Populate(ctx context.Context, params url.Values) *Report {
	return p.PopulatePages(ctx, params, 1)
}

// PopulatePages imports up to pages consecutive catalog pages starting at the
// page given in params (default 1), stopping at the last page.
func (p *Pipeline) PopulatePages(ctx context.Context, params url.Values, pages int) *Report {
	report := NewReport(params)
	defer report.Finish()

	if pages < 1 {
		pages = 1
	}
	start := 1
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			slog.Warn("Invalid page parameter, starting at page 1", "page", raw)
		} else {
			start = n
		}
	}

	processed := 0
	for pageNum := start; pageNum < start+pages; pageNum++ {
		pageParams := cloneValues(params)
		if pages > 1 {
			pageParams.Set("page", strconv.Itoa(pageNum))
		}

		slog.Info("Fetching catalog page", "page", pageNum)
		page, err := p.store.FetchCatalog(ctx, pageParams)
		if err != nil {
			slog.Error("Failed to fetch catalog page", "page", pageNum, "error", err)
			report.Fail(err)
			return report
		}
		report.Pages++

		if !p.populatePage(ctx, page.Products, report, &processed) {
			return report
		}

		if page.TotalPages > 0 && pageNum >= page.TotalPages {
			break
		}
	}

	return report
}

// populatePage returns false when the run was cancelled.
func (p *Pipeline) populatePage(ctx context.Context, products []storefront.Product, report *Report, processed *int) bool {
	if len(products) == 0 {
		slog.Info("Catalog page is empty")
		return true
	}

	// all related entities exist before the first game is created
	report.AddEntities(p.createManyToManyData(ctx, products))

	for _, product := range products {
		if *processed > 0 {
			if err := p.pause(ctx, p.delay); err != nil {
				report.Cancel(err)
				return false
			}
		}
		if err := ctx.Err(); err != nil {
			report.Cancel(err)
			return false
		}

		report.AddItem(p.processProduct(ctx, product))
		*processed++
	}
	return true
}

func (p *Pipeline) processProduct(ctx context.Context, product storefront.Product) ItemResult {
	game, result := p.createGame(ctx, product)
	if game != nil && result.Status == StatusCreated {
		p.uploadProductMedia(ctx, game, product, &result)
	}

	slog.Info("Processed product",
		"title", product.Title,
		"status", result.Status,
		"cover", result.CoverUploaded,
		"gallery", result.GalleryUploaded,
	)
	return result
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}
