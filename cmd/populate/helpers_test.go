package populate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/ratelimit"
	"github.com/lepinkainen/catalogfill/internal/storefront"
	"github.com/lepinkainen/catalogfill/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const descriptionPage = `<html><body><div class="description"><p>A <i>great</i> game.</p></div></body></html>`

// countingBackend records every create and upload passed to the wrapped store.
type countingBackend struct {
	*cms.SQLiteStore

	mu      sync.Mutex
	creates map[cms.Kind]map[string]int
	uploads []cms.Upload
	hidden  map[string]bool
}

func newCountingBackend(t *testing.T) *countingBackend {
	t.Helper()
	store, err := cms.NewSQLiteStore(cms.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &countingBackend{
		SQLiteStore: store,
		creates:     make(map[cms.Kind]map[string]int),
		hidden:      make(map[string]bool),
	}
}

func (b *countingBackend) Entities(kind cms.Kind) cms.EntityService {
	return &countingEntities{EntityService: b.SQLiteStore.Entities(kind), backend: b, kind: kind}
}

func (b *countingBackend) Upload(ctx context.Context, upload cms.Upload) (*cms.File, error) {
	b.mu.Lock()
	upload.Data = nil
	b.uploads = append(b.uploads, upload)
	b.mu.Unlock()
	return b.SQLiteStore.Upload(ctx, cms.Upload{
		RefID: upload.RefID, Ref: upload.Ref, Field: upload.Field, Filename: upload.Filename, Data: []byte{1},
	})
}

// hideOnce makes the next lookup of name miss, as if another writer created
// it between lookup and create.
func (b *countingBackend) hideOnce(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hidden[name] = true
}

func (b *countingBackend) createCount(kind cms.Kind, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates[kind][name]
}

func (b *countingBackend) createdNames(kind cms.Kind) map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int)
	for name, n := range b.creates[kind] {
		out[name] = n
	}
	return out
}

func (b *countingBackend) uploadsFor(field string) []cms.Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []cms.Upload
	for _, u := range b.uploads {
		if u.Field == field {
			out = append(out, u)
		}
	}
	return out
}

type countingEntities struct {
	cms.EntityService
	backend *countingBackend
	kind    cms.Kind
}

func (e *countingEntities) FindByName(ctx context.Context, name string) ([]cms.Entity, error) {
	e.backend.mu.Lock()
	hidden := e.backend.hidden[name]
	delete(e.backend.hidden, name)
	e.backend.mu.Unlock()
	if hidden {
		return nil, nil
	}
	return e.EntityService.FindByName(ctx, name)
}

func (e *countingEntities) Create(ctx context.Context, entity cms.Entity) (*cms.Entity, error) {
	e.backend.mu.Lock()
	if e.backend.creates[e.kind] == nil {
		e.backend.creates[e.kind] = make(map[string]int)
	}
	e.backend.creates[e.kind][entity.Name]++
	e.backend.mu.Unlock()
	return e.EntityService.Create(ctx, entity)
}

func newProduct(server *testutil.StorefrontServer, title, slug string) storefront.Product {
	return storefront.Product{
		Title:                     title,
		Slug:                      slug,
		Price:                     storefront.Price{Amount: decimal.RequireFromString("9.99")},
		GlobalReleaseDate:         1609459200,
		Genres:                    []string{"Action", "RPG"},
		SupportedOperatingSystems: []string{"windows", "linux"},
		Developer:                 "Studio One",
		Publisher:                 "Pub House",
		Image:                     server.ImageURL(slug + "-cover"),
		Gallery:                   []string{server.ImageURL(slug + "-g1"), server.ImageURL(slug + "-g2")},
	}
}

func galleryURLs(server *testutil.StorefrontServer, slug string, n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = server.ImageURL(fmt.Sprintf("%s-g%d", slug, i+1))
	}
	return urls
}

func catalogBody(t *testing.T, page, totalPages int, products ...storefront.Product) string {
	t.Helper()
	body, err := json.Marshal(storefront.CatalogPage{Products: products, Page: page, TotalPages: totalPages})
	require.NoError(t, err)
	return string(body)
}

func newStorefrontClient(server *testutil.StorefrontServer) *storefront.Client {
	return storefront.NewClient(
		storefront.WithBaseURL(server.URL),
		storefront.WithRateLimiter(ratelimit.Unlimited("test")),
	)
}

func newTestPipeline(server *testutil.StorefrontServer, backend cms.Backend, opts ...Option) *Pipeline {
	base := []Option{WithDelay(0), WithConcurrency(4)}
	return New(newStorefrontClient(server), backend, append(base, opts...)...)
}
