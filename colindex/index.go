// Package colindex is a secondary index over a partitioned column store.
// Rows are mapped into fields by a schema, searched per partition in
// memory and merged into sorted, cursor-paged results.
package colindex

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/memindex"
	"github.com/colindex/colindex/colindex/ops"
	"github.com/colindex/colindex/colindex/search"
	"github.com/colindex/colindex/colindex/storage"
)

// Index represents an open colindex index
type Index struct {
	adapter     storage.Adapter
	db          *sql.DB
	store       *storage.DBColumnStore
	schema      *mapping.Schema
	opts        IndexOptions
	logger      *logging.Logger
	cursorStore *ops.DBCursorStore
	cache       *search.Cache

	mu      sync.RWMutex
	names   []string
	indexes map[string]*memindex.Index
	// Writes made while a refresh is loading, replayed onto its result.
	refreshing int
	pending    []storage.RowOp
}

// Create creates a new index with the given schema. schemaSource is the
// YAML or JSON schema document; it is stored so Open can rebuild the
// schema.
func Create(ctx context.Context, adapter storage.Adapter, schemaSource []byte, opts IndexOptions) (*Index, error) {
	schema, err := mapping.ParseSchema(schemaSource)
	if err != nil {
		return nil, err
	}

	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "connect to database", err)
	}
	if err := adapter.CreateIndex(ctx, db, schemaSource); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrSQL, "create index", err)
	}
	return newIndex(adapter, db, schema, opts)
}

// Open opens an existing index and loads its partitions.
func Open(ctx context.Context, adapter storage.Adapter, opts IndexOptions) (*Index, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "connect to database", err)
	}

	schemaSource, err := adapter.OpenIndex(ctx, db)
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrSQL, "open index", err)
	}
	schema, err := mapping.ParseSchema(schemaSource)
	if err != nil {
		db.Close()
		return nil, err
	}

	ix, err := newIndex(adapter, db, schema, opts)
	if err != nil {
		return nil, err
	}
	if err := ix.Refresh(ctx); err != nil {
		ix.Close()
		return nil, err
	}
	return ix, nil
}

func newIndex(adapter storage.Adapter, db *sql.DB, schema *mapping.Schema, opts IndexOptions) (*Index, error) {
	if opts.CursorTTL <= 0 {
		opts.CursorTTL = DefaultCursorTTL
	}
	cache, err := search.NewCache(opts.CacheSize)
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrConfiguration, "search cache", err)
	}
	return &Index{
		adapter:     adapter,
		db:          db,
		store:       storage.NewDBColumnStore(db, adapter),
		schema:      schema,
		opts:        opts,
		logger:      logging.OrNoop(opts.Logger),
		cursorStore: ops.NewDBCursorStore(db, adapter.SQL(), opts.CursorTTL),
		cache:       cache,
		indexes:     make(map[string]*memindex.Index),
	}, nil
}

// Close closes the index
func (ix *Index) Close() error {
	if ix.db != nil {
		if err := ix.db.Close(); err != nil {
			return errs.Wrap(errs.ErrIO, "close database", err)
		}
	}
	return ix.adapter.Close()
}

// Schema returns the index schema
func (ix *Index) Schema() *mapping.Schema {
	return ix.schema
}

// Store returns the column store the index reads rows from.
func (ix *Index) Store() storage.ColumnStore {
	return ix.store
}

// Partitions returns the names of the loaded partitions.
func (ix *Index) Partitions() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.names)
}

// Refresh rebuilds every partition from the column store. Searches running
// meanwhile keep using the previous partitions. Rows written while the
// store is scanned are replayed onto the rebuilt partitions.
func (ix *Index) Refresh(ctx context.Context) error {
	ix.beginRefresh()
	res, names, err := ops.LoadPartitions(ctx, ix.store, ix.schema, ix.opts.Parallelism, ops.WithLogger(ix.logger))
	return ix.finishRefresh(res, names, err)
}

func (ix *Index) beginRefresh() {
	ix.mu.Lock()
	ix.refreshing++
	ix.mu.Unlock()
}

func (ix *Index) finishRefresh(res *ops.LoadResult, names []string, err error) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refreshing--
	pending := ix.pending
	if ix.refreshing == 0 {
		ix.pending = nil
	}
	if err != nil {
		return wrap(errs.ErrIO, "refresh", err)
	}

	ix.names = names
	ix.indexes = res.Indexes
	for _, op := range pending {
		if err := ix.applyLocked(op); err != nil {
			return wrap(errs.ErrIO, "refresh", err)
		}
	}
	return nil
}

// writeLocked applies op to its partition and keeps it for the refreshes
// in flight. ix.mu must be held for writing.
func (ix *Index) writeLocked(op storage.RowOp) error {
	if ix.refreshing > 0 {
		ix.pending = append(ix.pending, op)
	}
	return ix.applyLocked(op)
}

func (ix *Index) applyLocked(op storage.RowOp) error {
	if op.Delete {
		if part := ix.indexes[op.Partition]; part != nil {
			part.Delete(op.Key)
		}
		return nil
	}
	return ix.partitionLocked(op.Partition).Put(op.Key, op.Row)
}

// PutJSON stores one row document (see ops.RowDocument) and indexes it.
func (ix *Index) PutJSON(ctx context.Context, docJSON []byte) error {
	row, err := ops.PrepareRow(ix.schema, docJSON)
	if err != nil {
		return wrap(errs.ErrNormalization, "prepare row", err)
	}
	if err := ix.store.PutRow(ctx, row.Partition, row.Key, row.Columns); err != nil {
		return wrap(errs.ErrSQL, "put row", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.writeLocked(storage.RowOp{Partition: row.Partition, Key: row.Key, Row: row.Columns})
}

// partitionLocked returns the in-memory partition, creating it when
// missing. ix.mu must be held for writing.
func (ix *Index) partitionLocked(name string) *memindex.Index {
	part, ok := ix.indexes[name]
	if !ok {
		part = memindex.New(ix.schema)
		ix.indexes[name] = part
		ix.names = append(ix.names, name)
		slices.Sort(ix.names)
	}
	return part
}

// Get reads one row from the column store.
func (ix *Index) Get(ctx context.Context, partition, rowKey string) (mapping.Columns, error) {
	rows, err := ix.store.GetRows(ctx, partition, []string{rowKey})
	if err != nil {
		return nil, errs.Wrap(errs.ErrSQL, "get row", err)
	}
	row, ok := rows[rowKey]
	if !ok {
		return nil, errs.NotFound(partition + "/" + rowKey)
	}
	return row, nil
}

// Delete removes a row from the column store and its partition.
func (ix *Index) Delete(ctx context.Context, partition, rowKey string) (bool, error) {
	found, err := ops.DeleteRow(ctx, ix.store, partition, rowKey)
	if err != nil {
		return false, errs.Wrap(errs.ErrSQL, "delete row", err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.writeLocked(storage.RowOp{Partition: partition, Key: rowKey, Delete: true}); err != nil {
		return false, err
	}
	return found, nil
}

// Validate checks that a JSON search parses and compiles against the
// index schema.
func (ix *Index) Validate(data []byte) error {
	return search.Validate(data, ix.schema)
}

// Search executes a JSON search and returns one page of results.
func (ix *Index) Search(ctx context.Context, data []byte, sopts SearchOptions) (SearchResultPage, error) {
	start := time.Now()
	page, merged, negations, err := ix.search(ctx, data, sopts)
	ix.opts.Metrics.observeSearch(time.Since(start), merged, negations, err)
	return page, err
}

func (ix *Index) search(ctx context.Context, data []byte, sopts SearchOptions) (SearchResultPage, int, int, error) {
	// Clean up expired cursors (best effort)
	_, _ = ix.cursorStore.CleanupExpired(ctx)

	s, err := ix.cache.Parse(data)
	if err != nil {
		return SearchResultPage{}, 0, 0, err
	}
	if s.Refresh {
		if err := ix.Refresh(ctx); err != nil {
			return SearchResultPage{}, 0, 0, err
		}
	}

	limit := sopts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	mode := ops.CursorMode(sopts.CursorMode)
	if mode == "" {
		mode = ops.CursorFull
	}

	result, err := ops.Search(ctx, ix.schema, s, ix.snapshot(), ops.SearchOptions{
		Limit:       limit,
		After:       sopts.After,
		CursorMode:  mode,
		Explain:     sopts.Explain,
		Parallelism: ix.opts.Parallelism,
	}, ix.cursorStore, ops.WithLogger(ix.logger))
	if err != nil {
		return SearchResultPage{}, 0, 0, wrap(errs.ErrIO, "search", err)
	}

	page := SearchResultPage{
		Items:        make([]Item, len(result.Hits)),
		NextCursor:   result.NextCursor,
		HasMore:      result.HasMore,
		ExplainSteps: result.ExplainSteps,
	}
	for i, h := range result.Hits {
		page.Items[i] = Item{Hit: h}
	}
	if sopts.Fetch {
		if err := ix.fetch(ctx, page.Items); err != nil {
			return SearchResultPage{}, 0, 0, err
		}
	}
	return page, result.Merged, result.PureNegations, nil
}

func (ix *Index) snapshot() []ops.Partition {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]ops.Partition, 0, len(ix.names))
	for _, name := range ix.names {
		out = append(out, ops.Partition{Name: name, Engine: ix.indexes[name]})
	}
	return out
}

func (ix *Index) indexList() []*memindex.Index {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*memindex.Index, 0, len(ix.names))
	for _, name := range ix.names {
		out = append(out, ix.indexes[name])
	}
	return out
}

// fetch reads the columns of items from the column store, one query per
// partition.
func (ix *Index) fetch(ctx context.Context, items []Item) error {
	byPartition := make(map[string][]string)
	for _, it := range items {
		byPartition[it.Partition] = append(byPartition[it.Partition], it.Key)
	}
	rows := make(map[string]map[string]mapping.Columns, len(byPartition))
	for p, keys := range byPartition {
		r, err := ix.store.GetRows(ctx, p, keys)
		if err != nil {
			return errs.Wrap(errs.ErrSQL, "fetch rows", err)
		}
		rows[p] = r
	}
	for i := range items {
		items[i].Columns = rows[items[i].Partition][items[i].Key]
	}
	return nil
}

// DiscoverValues lists the most frequent indexed terms of a field.
func (ix *Index) DiscoverValues(field string, top int) ([]ValueCount, error) {
	results, err := ops.DiscoverValues(ix.schema, ix.indexList(), field, top)
	if err != nil {
		return nil, err
	}
	converted := make([]ValueCount, len(results))
	for i, r := range results {
		converted[i] = ValueCount{Value: r.Value, Count: r.Count}
	}
	return converted, nil
}

// Stats computes statistics for a numeric field
func (ix *Index) Stats(field string) (StatsResult, error) {
	result, err := ops.Stats(ix.schema, ix.indexList(), field)
	if err != nil {
		return StatsResult{}, err
	}
	return StatsResult{
		Field:  result.Field,
		Count:  result.Count,
		Min:    result.Min,
		Max:    result.Max,
		Avg:    result.Avg,
		Median: result.Median,
	}, nil
}

// Optimize optimizes the underlying database (vacuum, analyze).
func (ix *Index) Optimize(ctx context.Context) error {
	return ix.adapter.Optimize(ctx, ix.db)
}

// CleanupCursors drops expired short cursors and returns how many went.
func (ix *Index) CleanupCursors(ctx context.Context) (int64, error) {
	n, err := ix.cursorStore.CleanupExpired(ctx)
	if err != nil {
		return 0, errs.Wrap(errs.ErrSQL, "cleanup cursors", err)
	}
	return n, nil
}

// AfterFromPredicates removes the search-after predicate from preds and
// returns its cursor token along with the remaining predicates.
func AfterFromPredicates(preds []Predicate) (string, []Predicate) {
	after := ""
	rest := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p.Column == SearchAfterPredicate {
			after = p.Value
			continue
		}
		rest = append(rest, p)
	}
	return after, rest
}

// wrap keeps errors that already carry a kind and wraps the rest.
func wrap(kind errs.ErrorKind, msg string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(kind, msg, err)
}
