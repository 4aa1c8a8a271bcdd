// Package storage holds the SQL column store the index reads rows from, and
// the adapter interface each database backend implements.
package storage

import (
	"context"
	"database/sql"

	"github.com/colindex/colindex/colindex/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts database specific operations.
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	IndexID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// CreateIndex creates the tables and records the schema JSON.
	CreateIndex(ctx context.Context, db *sql.DB, schemaJSON []byte) error
	// OpenIndex checks the database holds an index and returns its schema.
	OpenIndex(ctx context.Context, db *sql.DB) (schemaJSON []byte, err error)
	Optimize(ctx context.Context, db *sql.DB) error

	SQL() SQL
}

// Meta keys.
const (
	MetaMagic   = "colindex_magic"
	MetaVersion = "colindex_version"
	MetaSchema  = "schema_json"

	Magic   = "colindex"
	Version = "1"
)

// SQL holds the statement templates of a backend. Templates with a %s verb
// take an IN list built with sqlbuilder.
type SQL struct {
	GetMeta string
	SetMeta string

	CleanupExpiredCursors string
	GetCursor             string
	PutCursor             string

	PutCell        string
	GetCell        string
	DeleteRow      string
	ListPartitions string
	ScanPartition  string
	// GetRows selects the cells of several rows of one partition. Its %s
	// verb takes the row key list.
	GetRows   string
	CountRows string
}
