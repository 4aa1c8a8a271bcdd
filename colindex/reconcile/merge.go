// Package reconcile merges the hits of independently searched partitions
// into one sorted, deduplicated page and encodes the cursor that resumes it.
package reconcile

import (
	"context"
	"time"

	"github.com/google/btree"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/colindex/search"
)

const btreeDegree = 32

// Page is one merged page of hits.
type Page struct {
	Hits []search.Hit
	// HasMore is true when hits beyond the page remained after the merge.
	HasMore bool
	// Last is the position of the last emitted hit, nil for an empty page.
	Last *Cursor
}

type mergeConfig struct {
	ctx    context.Context
	logger *logging.Logger
}

// Option configures a merge.
type Option func(*mergeConfig)

// WithLogger sets the logger that receives merge diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *mergeConfig) { c.logger = logging.OrNoop(l) }
}

// WithContext sets the context passed to the logger.
func WithContext(ctx context.Context) Option {
	return func(c *mergeConfig) { c.ctx = ctx }
}

// Merge orders the hits of every partition with cmp, keeps one hit per row
// key, drops the hits at or before after and the rows after has seen, and
// returns the first limit. When the same key comes from several partitions
// the copy that sorts first is kept.
func Merge(partitions [][]search.Hit, cmp search.Comparator, limit int, after *Cursor, opts ...Option) (Page, error) {
	cfg := mergeConfig{ctx: context.Background(), logger: logging.NoopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if limit <= 0 {
		return Page{}, errs.QueryParse("limit must be positive, but found %d", limit)
	}
	start := time.Now()

	var pivot search.Hit
	var seen map[string]bool
	if after != nil {
		pivot = after.Hit()
		seen = after.SeenKeys()
	}

	tree := btree.NewG[search.Hit](btreeDegree, cmp.Less)
	byKey := make(map[string]search.Hit)
	total := 0
	for _, hits := range partitions {
		for _, h := range hits {
			total++
			if after != nil && (cmp.Compare(h, pivot) <= 0 || seen[h.Key]) {
				continue
			}
			if prev, dup := byKey[h.Key]; dup {
				if !cmp.Less(h, prev) {
					continue
				}
				tree.Delete(prev)
			}
			byKey[h.Key] = h
			tree.ReplaceOrInsert(h)
		}
	}

	page := Page{Hits: make([]search.Hit, 0, min(limit, tree.Len()))}
	tree.Ascend(func(h search.Hit) bool {
		if len(page.Hits) == limit {
			page.HasMore = true
			return false
		}
		page.Hits = append(page.Hits, h)
		return true
	})
	if n := len(page.Hits); n > 0 {
		last := CursorAt(page.Hits[n-1])
		page.Last = &last
	}

	cfg.logger.LogMerge(cfg.ctx, total, len(page.Hits), cmp.String(), time.Since(start))
	return page, nil
}
