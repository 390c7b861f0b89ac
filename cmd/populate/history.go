package populate

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/catalogfill/internal/datastore"
)

const historyDatabase = "catalogfill"

const runsSchema = `CREATE TABLE IF NOT EXISTS populate_runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT,
	finished_at TEXT,
	params TEXT,
	pages INTEGER,
	products INTEGER,
	created INTEGER,
	skipped INTEGER,
	failed INTEGER,
	entities_created INTEGER,
	cancelled BOOLEAN,
	error TEXT
)`

const itemsSchema = `CREATE TABLE IF NOT EXISTS populate_items (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	slug TEXT,
	status TEXT,
	game_id TEXT,
	description_scraped BOOLEAN,
	cover_uploaded BOOLEAN,
	gallery_uploaded INTEGER,
	warnings TEXT,
	error TEXT,
	PRIMARY KEY (run_id, position)
)`

func runToMap(r *Report) map[string]any {
	s := r.Summary()
	return map[string]any{
		"run_id":           r.RunID,
		"started_at":       r.StartedAt.Format(time.RFC3339),
		"finished_at":      r.FinishedAt.Format(time.RFC3339),
		"params":           url.Values(r.Params).Encode(),
		"pages":            r.Pages,
		"products":         s.Products,
		"created":          s.Created,
		"skipped":          s.Skipped,
		"failed":           s.Failed,
		"entities_created": s.EntitiesCreated,
		"cancelled":        r.Cancelled,
		"error":            r.Error,
	}
}

// position is the item's index in the run; titles repeat across catalog pages.
func itemToMap(runID string, position int, item ItemResult) map[string]any {
	return map[string]any{
		"run_id":              runID,
		"position":            position,
		"title":               item.Title,
		"slug":                item.Slug,
		"status":              string(item.Status),
		"game_id":             string(item.GameID),
		"description_scraped": item.DescriptionScraped,
		"cover_uploaded":      item.CoverUploaded,
		"gallery_uploaded":    item.GalleryUploaded,
		"warnings":            strings.Join(item.Warnings, "\n"),
		"error":               item.Error,
	}
}

// RecordHistory stores the run and its items in store, for browsing with Datasette.
func RecordHistory(store datastore.Store, r *Report) error {
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	for _, schema := range []string{runsSchema, itemsSchema} {
		if err := store.CreateTable(schema); err != nil {
			return fmt.Errorf("failed to create history table: %w", err)
		}
	}

	if err := store.BatchInsert(historyDatabase, "populate_runs", []map[string]any{runToMap(r)}); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	items := make([]map[string]any, len(r.Items))
	for i, item := range r.Items {
		items[i] = itemToMap(r.RunID, i, item)
	}
	if err := store.BatchInsert(historyDatabase, "populate_items", items); err != nil {
		return fmt.Errorf("failed to record run items: %w", err)
	}

	slog.Info("Recorded run history", "run_id", r.RunID, "items", len(items))
	return nil
}
