package datastore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetteClient_BatchInsert_Success(t *testing.T) {
	var (
		gotPath  string
		gotAuth  string
		gotQuery string
		gotBody  map[string][]map[string]any
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewDatasetteClient(ts.URL, "testtoken")
	require.NoError(t, client.Connect())

	records := []map[string]any{{"run_id": "r1", "title": "Foo"}}
	require.NoError(t, client.BatchInsert("catalogfill", "populate_items", records))

	assert.Equal(t, "/-/insert/catalogfill/populate_items", gotPath)
	assert.Equal(t, "upsert=1", gotQuery)
	assert.Equal(t, "Bearer testtoken", gotAuth)
	require.Len(t, gotBody["rows"], 1)
	assert.Equal(t, "Foo", gotBody["rows"][0]["title"])
}

func TestDatasetteClient_BatchInsert_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "forbidden"})
	}))
	defer ts.Close()

	client := NewDatasetteClient(ts.URL, "testtoken")
	require.NoError(t, client.Connect())

	err := client.BatchInsert("catalogfill", "populate_runs", []map[string]any{{"run_id": "r1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestDatasetteClient_EmptyBatch(t *testing.T) {
	client := NewDatasetteClient("http://127.0.0.1:1", "")
	assert.NoError(t, client.BatchInsert("catalogfill", "populate_runs", nil))
}

func TestDatasetteClient_Connect_InvalidURL(t *testing.T) {
	assert.Error(t, NewDatasetteClient("not a url", "").Connect())
}
