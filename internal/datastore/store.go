package datastore

import (
	"fmt"

	"github.com/spf13/viper"
)

// Store defines the interface for run history storage
type Store interface {
	// Connect establishes a connection to the data store
	Connect() error

	// CreateTable creates a new table with the given schema if it doesn't exist
	CreateTable(schema string) error

	// BatchInsert inserts multiple records into the specified table
	BatchInsert(database string, table string, records []map[string]any) error

	// Close closes the connection to the data store
	Close() error
}

// NewFromConfig returns the store selected by datasette.mode: a local
// SQLite file or a remote Datasette instance.
func NewFromConfig() (Store, error) {
	mode := viper.GetString("datasette.mode")
	switch mode {
	case "", "local":
		return NewSQLiteStore(viper.GetString("datasette.dbfile")), nil
	case "remote":
		return NewDatasetteClient(
			viper.GetString("datasette.remote_url"),
			viper.GetString("datasette.api_token"),
		), nil
	default:
		return nil, fmt.Errorf("invalid Datasette mode: %s", mode)
	}
}
