package populate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/slugs"
	"github.com/lepinkainen/catalogfill/internal/storefront"
	"golang.org/x/sync/errgroup"
)

// findByName returns the first record of kind named exactly name, or nil.
func (p *Pipeline) findByName(ctx context.Context, kind cms.Kind, name string) (*cms.Entity, error) {
	found, err := p.backend.Entities(kind).FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %q: %w", kind, name, err)
	}
	for _, e := range found {
		if e.Name == name {
			return &e, nil
		}
	}
	return nil, nil
}

// createIfAbsent creates a record of kind unless one named name exists. The
// bool reports whether this call created it. A create that loses a race with
// another writer resolves to the winner's record.
func (p *Pipeline) createIfAbsent(ctx context.Context, kind cms.Kind, name string) (*cms.Entity, bool, error) {
	existing, err := p.findByName(ctx, kind, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	created, err := p.backend.Entities(kind).Create(ctx, cms.Entity{Name: name, Slug: slugs.Make(name)})
	if errors.Is(err, cms.ErrConflict) {
		winner, findErr := p.findByName(ctx, kind, name)
		if findErr == nil && winner != nil {
			slog.Debug("Entity created concurrently", "kind", kind, "name", name)
			return winner, false, nil
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create %s %q: %w", kind, name, err)
	}

	slog.Info("Created entity", "kind", kind, "name", name, "id", created.ID)
	return created, true, nil
}

// relatedNames collects the distinct names of every related kind on a page.
func relatedNames(products []storefront.Product) map[cms.Kind][]string {
	sets := make(map[cms.Kind]map[string]struct{})
	for _, kind := range cms.RelatedKinds() {
		sets[kind] = make(map[string]struct{})
	}

	add := func(kind cms.Kind, name string) {
		if strings.TrimSpace(name) == "" {
			return
		}
		sets[kind][name] = struct{}{}
	}

	for _, product := range products {
		add(cms.Developer, product.Developer)
		add(cms.Publisher, product.Publisher)
		for _, genre := range product.Genres {
			add(cms.Category, genre)
		}
		for _, platform := range product.SupportedOperatingSystems {
			add(cms.Platform, platform)
		}
	}

	out := make(map[cms.Kind][]string, len(sets))
	for kind, set := range sets {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		out[kind] = names
	}
	return out
}

// createManyToManyData makes sure every developer, publisher, category and
// platform named on the page exists. Creates run concurrently and all of them
// finish before it returns.
func (p *Pipeline) createManyToManyData(ctx context.Context, products []storefront.Product) EntityStats {
	names := relatedNames(products)
	stats := NewEntityStats()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for _, kind := range cms.RelatedKinds() {
		stats.addDistinct(kind, len(names[kind]))
		for _, name := range names[kind] {
			g.Go(func() error {
				_, created, err := p.createIfAbsent(ctx, kind, name)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					slog.Warn("Failed to create entity", "kind", kind, "name", name, "error", err)
					stats.addFailure(kind, err)
				case created:
					stats.addCreated(kind)
				default:
					stats.addExisting(kind)
				}
				// failures stay local to the entity
				return nil
			})
		}
	}
	_ = g.Wait()

	return stats
}
