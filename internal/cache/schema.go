package cache

import "fmt"

// DetailTable caches scraped storefront detail pages by product slug
const DetailTable = "storefront_detail_cache"

// Sources maps the user-facing source name to its cache table
var Sources = map[string]string{
	"detail": DetailTable,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	DetailTable: true,
}

// TableSchema returns the CREATE statements for a cache table.
// All cache tables use "cache_key" as the primary key column.
func TableSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_cached_at ON %[1]s(cached_at);
`, table)
}
