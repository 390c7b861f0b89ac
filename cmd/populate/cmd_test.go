package populate

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/lepinkainen/catalogfill/internal/cache"
	"github.com/lepinkainen/catalogfill/internal/cms"
	"github.com/lepinkainen/catalogfill/internal/config"
	"github.com/lepinkainen/catalogfill/internal/datastore"
	"github.com/lepinkainen/catalogfill/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	html   string
	urls   []string
	closed bool
}

func (r *stubRenderer) Render(_ context.Context, pageURL string) (string, error) {
	r.urls = append(r.urls, pageURL)
	return r.html, nil
}

func (r *stubRenderer) Close() { r.closed = true }

func setupRunCache(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	testutil.SetupTestCache(t, env)
	require.NoError(t, cache.ResetGlobalCache())
	t.Cleanup(func() { _ = cache.ResetGlobalCache() })
}

func TestOpenBackend(t *testing.T) {
	testutil.SetTestConfig(t)
	env := testutil.NewTestEnv(t)
	config.CMSDBFile = env.Path("cms.db")

	backend, closeFn, err := OpenBackend("", false)
	require.NoError(t, err)
	assert.IsType(t, &cms.SQLiteStore{}, backend)
	closeFn()
	assert.True(t, env.FileExists("cms.db"))

	backend, closeFn, err = OpenBackend("rest", false)
	require.NoError(t, err)
	assert.IsType(t, &cms.Client{}, backend)
	closeFn()

	backend, closeFn, err = OpenBackend("rest", true)
	require.NoError(t, err)
	store, ok := backend.(*cms.SQLiteStore)
	require.True(t, ok, "dry run uses an in-memory store")
	assert.Equal(t, cms.MemoryDSN, store.Path())
	closeFn()

	_, _, err = OpenBackend("graphql", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown CMS backend "graphql"`)
}

func TestRunWithParams_EndToEnd(t *testing.T) {
	testutil.SetTestConfig(t)
	env := testutil.NewTestEnv(t)
	setupRunCache(t, env)

	server := testutil.NewStorefrontServer(t)
	server.SetCatalog("", catalogBody(t, 1, 1, newProduct(server, "Foo_Bar Baz!", "foo_bar_baz")))
	server.SetDetail("foo_bar_baz", descriptionPage)

	config.StorefrontURL = server.URL
	config.CMSDBFile = env.Path("cms.db")
	viper.Set("datasette.enabled", true)
	viper.Set("datasette.mode", "local")
	viper.Set("datasette.dbfile", env.Path("history.db"))

	report, err := RunWithParams(context.Background(), Params{
		Catalog:    url.Values{"sort": {"popularity"}},
		Pages:      1,
		ReportPath: env.Path("out", "report.json"),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Summary().Created)
	assert.True(t, env.FileExists("out/report.json"))
	assert.True(t, env.FileExists("history.db"))

	store, err := cms.NewSQLiteStore(config.CMSDBFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	n, err := store.Count(context.Background(), cms.Game)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	files, err := store.Files(context.Background(), "game", report.Items[0].GameID, "gallery")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunWithParams_DryRunSkipsHistory(t *testing.T) {
	testutil.SetTestConfig(t)
	env := testutil.NewTestEnv(t)
	setupRunCache(t, env)

	server := testutil.NewStorefrontServer(t)
	server.SetCatalog("", catalogBody(t, 1, 1, newProduct(server, "Dry", "dry")))
	config.StorefrontURL = server.URL
	viper.Set("datasette.enabled", true)

	original := newHistoryStore
	t.Cleanup(func() { newHistoryStore = original })
	newHistoryStore = func() (datastore.Store, error) {
		t.Fatalf("history store opened during a dry run")
		return nil, nil
	}

	report, err := RunWithParams(context.Background(), Params{DryRun: true, NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary().Created)
}

func TestRunWithParams_RenderUsesBrowser(t *testing.T) {
	testutil.SetTestConfig(t)

	server := testutil.NewStorefrontServer(t)
	server.SetCatalog("", catalogBody(t, 1, 1, newProduct(server, "Rendered", "rendered")))
	config.StorefrontURL = server.URL

	stub := &stubRenderer{html: descriptionPage}
	original := newBrowserRenderer
	t.Cleanup(func() { newBrowserRenderer = original })
	newBrowserRenderer = func(context.Context, string) (renderer, error) {
		return stub, nil
	}

	report, err := RunWithParams(context.Background(), Params{DryRun: true, NoCache: true, Render: true})
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.True(t, report.Items[0].DescriptionScraped)
	assert.Equal(t, []string{server.URL + "/game/rendered"}, stub.urls)
	assert.True(t, stub.closed)
	assert.Equal(t, 0, server.Hits("/game/rendered"))
}

func TestRunWithParams_BrowserStartFailure(t *testing.T) {
	testutil.SetTestConfig(t)

	original := newBrowserRenderer
	t.Cleanup(func() { newBrowserRenderer = original })
	newBrowserRenderer = func(context.Context, string) (renderer, error) {
		return nil, errors.New("chrome not found")
	}

	_, err := RunWithParams(context.Background(), Params{DryRun: true, Render: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser")
}
