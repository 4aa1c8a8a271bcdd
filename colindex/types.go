package colindex

import (
	"time"

	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/search"
)

// CursorMode specifies how cursors are returned
type CursorMode string

const (
	CursorShort CursorMode = "short" // c:handle stored in DB
	CursorFull  CursorMode = "full"  // self-contained base64url JSON
)

// IndexOptions configures index behavior
type IndexOptions struct {
	CursorTTL time.Duration // default 1h
	// Parallelism caps the partitions searched or loaded at once. Zero
	// means one goroutine per partition.
	Parallelism int
	// CacheSize is the number of parsed searches kept.
	CacheSize int
	Logger    *logging.Logger
	// Metrics is optional.
	Metrics *Metrics
}

// DefaultIndexOptions returns sensible defaults
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		CursorTTL: DefaultCursorTTL,
		CacheSize: DefaultCacheSize,
		Logger:    logging.NoopLogger(),
	}
}

// SearchOptions configures a search operation
type SearchOptions struct {
	Limit      int
	After      string // cursor token or ""
	CursorMode CursorMode
	Explain    bool
	// Fetch reads the columns of every hit from the column store.
	Fetch bool
}

// Item is one result row.
type Item struct {
	search.Hit
	// Columns is set when the search was run with Fetch.
	Columns mapping.Columns
}

// SearchResultPage is a page of search results
type SearchResultPage struct {
	Items        []Item
	NextCursor   string
	HasMore      bool
	ExplainSteps []string
}

// Predicate is a column restriction handed over by the host.
type Predicate struct {
	Column string
	Value  string
}

// ValueCount is a field value with count
type ValueCount struct {
	Value string `json:"value"`
	Count uint64 `json:"count"`
}

// StatsResult contains aggregated statistics for a field
type StatsResult struct {
	Field  string   `json:"field"`
	Count  uint64   `json:"count"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
}
