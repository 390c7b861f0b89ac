package populate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/slugs"
	"github.com/lepinkainen/catalogfill/internal/storefront"
	"golang.org/x/sync/errgroup"
)

const (
	// FieldCover is the game field holding the cover image
	FieldCover = "cover"
	// FieldGallery is the game field holding gallery images
	FieldGallery = "gallery"
)

// uploadMedia downloads the crop of a partial image URL and attaches it to
// field of game.
func (p *Pipeline) uploadMedia(ctx context.Context, game *cms.GameRecord, partial, field, filename string) error {
	img, err := p.store.DownloadImage(ctx, partial)
	if err != nil {
		return fmt.Errorf("failed to download %s image: %w", field, err)
	}

	if _, err := p.backend.Upload(ctx, cms.Upload{
		RefID:       game.ID,
		Ref:         cms.Game.String(),
		Field:       field,
		Filename:    filename,
		ContentType: img.ContentType,
		Data:        img.Data,
	}); err != nil {
		return fmt.Errorf("failed to upload %s image: %w", field, err)
	}
	return nil
}

// uploadProductMedia uploads the cover and the first gallery images of a
// product concurrently. Failures are recorded on result only.
func (p *Pipeline) uploadProductMedia(ctx context.Context, game *cms.GameRecord, product storefront.Product, result *ItemResult) {
	base := game.Slug
	if base == "" {
		base = slugs.ForGame(product.Slug, product.Title)
	}

	gallery := product.Gallery
	if len(gallery) > p.galleryLimit {
		gallery = gallery[:p.galleryLimit]
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	record := func(field string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Warn("Failed to upload image", "title", product.Title, "field", field, "error", err)
			result.warn(err)
			return
		}
		if field == FieldCover {
			result.CoverUploaded = true
		} else {
			result.GalleryUploaded++
		}
	}

	if product.Image != "" {
		g.Go(func() error {
			record(FieldCover, p.uploadMedia(ctx, game, product.Image, FieldCover, base+".jpg"))
			return nil
		})
	}

	result.GalleryAttempted = len(gallery)
	for i, partial := range gallery {
		filename := fmt.Sprintf("%s-%d.jpg", base, i+1)
		g.Go(func() error {
			record(FieldGallery, p.uploadMedia(ctx, game, partial, FieldGallery, filename))
			return nil
		})
	}

	_ = g.Wait()
}
