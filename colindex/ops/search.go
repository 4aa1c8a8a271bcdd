// Package ops holds the operations an index performs against its column
// store and partitions: loading, fan-out search, cursors and ingestion.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/colindex/colindex/colindex/condition"
	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
	"github.com/colindex/colindex/colindex/reconcile"
	"github.com/colindex/colindex/colindex/search"
)

// DefaultLimit is the page size used when a search asks for none.
const DefaultLimit = 20

// Engine searches one partition.
type Engine interface {
	Search(ctx context.Context, q plan.Query, req search.Request) ([]search.Hit, error)
}

// Partition names an engine.
type Partition struct {
	Name   string
	Engine Engine
}

// SearchOptions configures a search operation.
type SearchOptions struct {
	Limit      int
	After      string // cursor token
	CursorMode CursorMode
	Explain    bool
	// Parallelism caps the partitions searched at once. Zero means one
	// goroutine per partition.
	Parallelism int
}

// SearchResult is one page of a search.
type SearchResult struct {
	Hits          []search.Hit
	NextCursor    string
	HasMore       bool
	ExplainSteps  []string
	PureNegations int
	// Merged is the number of partition hits the page was merged from.
	Merged int
}

// Option configures an operation.
type Option func(*config)

type config struct {
	logger *logging.Logger
}

// WithLogger sets the logger operations report to.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) { c.logger = logging.OrNoop(l) }
}

func newConfig(opts []Option) config {
	cfg := config{logger: logging.NoopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Search compiles s against schema, runs it on every partition, merges the
// partition hits and returns one page with the cursor of the next.
func Search(
	ctx context.Context,
	schema *mapping.Schema,
	s *search.Search,
	partitions []Partition,
	opts SearchOptions,
	cursors CursorStore,
	options ...Option,
) (*SearchResult, error) {
	cfg := newConfig(options)
	start := time.Now()

	// 1. Compile
	compiled, err := s.Compile(schema,
		condition.WithLogger(cfg.logger),
		condition.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("compile search: %w", err)
	}

	// 2. Fingerprint the search so cursors cannot cross searches
	hash, err := fingerprint(schema, s)
	if err != nil {
		return nil, err
	}

	// 3. Resolve cursor if present
	var after *reconcile.Cursor
	if opts.After != "" {
		if cursors == nil {
			cursors = FullCursorStore{}
		}
		after, err = cursors.Resolve(ctx, opts.After)
		if err != nil {
			return nil, fmt.Errorf("resolve cursor: %w", err)
		}
		if err := after.Check(hash); err != nil {
			return nil, err
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	// 4. Fan out. Each partition returns one extra hit so the merge can
	// tell whether another page exists.
	req := search.Request{Sort: compiled.Sort, Limit: limit + 1, Stats: corpusStatsOf(partitions, compiled.Query)}
	if after != nil {
		h := after.Hit()
		req.After = &h
		req.Exclude = after.SeenKeys()
	}
	perPartition, err := SearchPartitions(ctx, partitions, compiled.Query, req, opts.Parallelism)
	if err != nil {
		cfg.logger.LogSearch(ctx, len(partitions), 0, time.Since(start), err)
		return nil, err
	}

	// 5. Merge
	page, err := reconcile.Merge(perPartition, req.Comparator(), limit, after,
		reconcile.WithLogger(cfg.logger),
		reconcile.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	result := &SearchResult{
		Hits:          page.Hits,
		HasMore:       page.HasMore,
		PureNegations: compiled.PureNegations,
	}
	for _, hits := range perPartition {
		result.Merged += len(hits)
	}
	if opts.Explain {
		result.ExplainSteps = compiled.ExplainSteps
	}

	// 6. Build next cursor from the last hit
	if page.HasMore && page.Last != nil {
		c := *page.Last
		c.Hash = hash
		c.Seen, err = laterCopies(ctx, partitions, compiled.Query, req, page, after, opts.Parallelism)
		if err != nil {
			return nil, err
		}
		if cursors == nil {
			cursors = FullCursorStore{}
		}
		result.NextCursor, err = cursors.Store(ctx, c, opts.CursorMode)
		if err != nil {
			return nil, fmt.Errorf("store cursor: %w", err)
		}
	}

	cfg.logger.LogSearch(ctx, len(partitions), len(result.Hits), time.Since(start), nil)
	return result, nil
}

// laterCopies returns the rows returned so far that have a matching copy
// sorting after the page's last hit. Those copies were beaten by an earlier
// one, so later pages must skip them.
func laterCopies(
	ctx context.Context,
	partitions []Partition,
	q plan.Query,
	req search.Request,
	page reconcile.Page,
	after *reconcile.Cursor,
	parallelism int,
) ([]string, error) {
	if len(partitions) < 2 {
		return nil, nil
	}
	keys := make(map[string]bool, len(page.Hits))
	if after != nil {
		for _, k := range after.Seen {
			keys[k] = true
		}
	}
	for _, h := range page.Hits {
		keys[h.Key] = true
	}

	lookup := req
	lookup.After, lookup.Limit, lookup.Exclude, lookup.Keys = nil, 0, nil, keys
	copies, err := SearchPartitions(ctx, partitions, q, lookup, parallelism)
	if err != nil {
		return nil, err
	}

	cmp := req.Comparator()
	last := page.Last.Hit()
	later := make(map[string]bool)
	for _, hits := range copies {
		for _, h := range hits {
			if keys[h.Key] && cmp.Compare(h, last) > 0 {
				later[h.Key] = true
			}
		}
	}
	return slices.Sorted(maps.Keys(later)), nil
}

func fingerprint(schema *mapping.Schema, s *search.Search) (string, error) {
	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	searchJSON, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal search: %w", err)
	}
	return reconcile.HashSearch(schemaJSON, searchJSON), nil
}

// SearchPartitions runs q on every partition concurrently and returns the
// hits of each, in partition order. The first failure cancels the rest.
func SearchPartitions(ctx context.Context, partitions []Partition, q plan.Query, req search.Request, parallelism int) ([][]search.Hit, error) {
	out := make([][]search.Hit, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, p := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := req
			r.Partition = p.Name
			hits, err := p.Engine.Search(gctx, q, r)
			if err != nil {
				return fmt.Errorf("search partition %s: %w", p.Name, err)
			}
			out[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseAndSearch parses data as a JSON search and runs it.
func ParseAndSearch(
	ctx context.Context,
	schema *mapping.Schema,
	data []byte,
	partitions []Partition,
	opts SearchOptions,
	cursors CursorStore,
	options ...Option,
) (*SearchResult, error) {
	s, err := search.FromJSON(data)
	if err != nil {
		return nil, err
	}
	return Search(ctx, schema, s, partitions, opts, cursors, options...)
}

// corpusStats sums the term statistics of several partitions.
type corpusStats []search.TermStats

func (c corpusStats) DocCount() uint64 {
	var n uint64
	for _, st := range c {
		n += st.DocCount()
	}
	return n
}

func (c corpusStats) DocFreq(field, term string) uint64 {
	var n uint64
	for _, st := range c {
		n += st.DocFreq(field, term)
	}
	return n
}

// corpusStatsOf snapshots the combined stats q is scored with, or returns
// nil unless every engine reports them.
func corpusStatsOf(partitions []Partition, q plan.Query) search.TermStats {
	stats := make(corpusStats, 0, len(partitions))
	for _, p := range partitions {
		st, ok := p.Engine.(search.TermStats)
		if !ok {
			return nil
		}
		stats = append(stats, st)
	}
	return search.Snapshot(stats, q)
}
