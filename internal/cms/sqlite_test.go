package cms

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_EntityUniqueness(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	created, err := store.Entities(Platform).Create(ctx, Entity{Name: "windows", Slug: "windows"})
	require.NoError(t, err)
	assert.Equal(t, ID("1"), created.ID)

	_, err = store.Entities(Platform).Create(ctx, Entity{Name: "windows", Slug: "windows"})
	assert.ErrorIs(t, err, ErrConflict)

	// same name, different kind
	_, err = store.Entities(Category).Create(ctx, Entity{Name: "windows", Slug: "windows"})
	require.NoError(t, err)

	found, err := store.Entities(Platform).FindByName(ctx, "windows")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	found, err = store.Entities(Platform).FindByName(ctx, "Windows")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = store.Entities(Platform).Create(ctx, Entity{Name: " "})
	assert.Error(t, err)

	n, err := store.Count(ctx, Platform)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ConcurrentCreates(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Entities(Developer).Create(ctx, Entity{Name: "Studio", Slug: "studio"})
			if err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, conflicts)
	n, err := store.Count(ctx, Developer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_Games(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	dev, err := store.Entities(Developer).Create(ctx, Entity{Name: "Dev", Slug: "dev"})
	require.NoError(t, err)
	pub, err := store.Entities(Publisher).Create(ctx, Entity{Name: "Pub", Slug: "pub"})
	require.NoError(t, err)
	action, err := store.Entities(Category).Create(ctx, Entity{Name: "Action", Slug: "action"})
	require.NoError(t, err)
	linux, err := store.Entities(Platform).Create(ctx, Entity{Name: "linux", Slug: "linux"})
	require.NoError(t, err)

	input := GameInput{
		Name:             "Foo",
		Slug:             "foo",
		Price:            decimal.RequireFromString("4.99"),
		ReleaseDate:      "2021-01-01T00:00:00.000Z",
		ShortDescription: "short",
		Description:      "<p>long</p>",
		Rating:           "BR0",
		Categories:       []ID{action.ID},
		Platforms:        []ID{linux.ID},
		Developers:       []ID{dev.ID},
		Publisher:        &pub.ID,
	}
	game, err := store.Games().Create(ctx, input)
	require.NoError(t, err)

	_, err = store.Games().Create(ctx, input)
	assert.ErrorIs(t, err, ErrConflict)

	games, err := store.Games().FindByName(ctx, "Foo")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, game.ID, games[0].ID)
	assert.Equal(t, "2021-01-01T00:00:00.000Z", games[0].ReleaseDate)
	assert.Equal(t, "<p>long</p>", games[0].Description)

	relations, err := store.Relations(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []ID{dev.ID}, relations[Developer])
	assert.Equal(t, []ID{pub.ID}, relations[Publisher])
	assert.Equal(t, []ID{action.ID}, relations[Category])
	assert.Equal(t, []ID{linux.ID}, relations[Platform])

	_, err = store.Relations(ctx, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_GameWithoutOptionalFields(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	game, err := store.Games().Create(ctx, GameInput{Name: "Bare", Slug: "bare"})
	require.NoError(t, err)

	games, err := store.Games().FindByName(ctx, "Bare")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Empty(t, games[0].Description)
	assert.Empty(t, games[0].ReleaseDate)

	relations, err := store.Relations(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestSQLiteStore_Upload(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	for _, name := range []string{"foo-1.jpg", "foo-2.jpg"} {
		_, err := store.Upload(ctx, Upload{RefID: "3", Ref: "game", Field: "gallery", Filename: name, Data: []byte{1, 2, 3}})
		require.NoError(t, err)
	}
	cover, err := store.Upload(ctx, Upload{RefID: "3", Ref: "game", Field: "cover", Filename: "foo.jpg", ContentType: "image/jpeg", Data: []byte{4}})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", cover.Mime)

	gallery, err := store.Files(ctx, "game", "3", "gallery")
	require.NoError(t, err)
	require.Len(t, gallery, 2)
	assert.Equal(t, "foo-1.jpg", gallery[0].Name)
	assert.Equal(t, "application/octet-stream", gallery[0].Mime)
	assert.Equal(t, 3, gallery[0].Size)

	_, err = store.Upload(ctx, Upload{RefID: "3", Ref: "game", Field: "cover", Filename: "empty.jpg"})
	assert.Error(t, err)
}

func TestSQLiteStore_FilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cms.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.Entities(Publisher).Create(ctx, Entity{Name: "Pub", Slug: "pub"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	found, err := reopened.Entities(Publisher).FindByName(ctx, "Pub")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, path, reopened.Path())
}
