package ops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/memindex"
	"github.com/colindex/colindex/colindex/storage"
)

// BuildPartition reads every row of partition from store into a new
// in-memory index.
func BuildPartition(ctx context.Context, store storage.ColumnStore, schema *mapping.Schema, partition string) (*memindex.Index, int, error) {
	ix := memindex.New(schema)
	rows := 0
	err := store.ScanPartition(ctx, partition, func(rowKey string, row mapping.Columns) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ix.Put(rowKey, row); err != nil {
			return fmt.Errorf("index row %s/%s: %w", partition, rowKey, err)
		}
		rows++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return ix, rows, nil
}

// LoadResult holds freshly built partition indexes.
type LoadResult struct {
	Indexes map[string]*memindex.Index
	Rows    int
}

// Partitions returns the loaded partitions in the order the store listed them.
func (r *LoadResult) Partitions(order []string) []Partition {
	out := make([]Partition, 0, len(order))
	for _, name := range order {
		if ix, ok := r.Indexes[name]; ok {
			out = append(out, Partition{Name: name, Engine: ix})
		}
	}
	return out
}

// LoadPartitions builds an index for each partition of store, at most
// parallelism at a time (zero means unbounded).
func LoadPartitions(ctx context.Context, store storage.ColumnStore, schema *mapping.Schema, parallelism int, options ...Option) (*LoadResult, []string, error) {
	cfg := newConfig(options)
	start := time.Now()

	names, err := store.Partitions(ctx)
	if err != nil {
		cfg.logger.LogRefresh(ctx, 0, 0, time.Since(start), err)
		return nil, nil, err
	}

	res := &LoadResult{Indexes: make(map[string]*memindex.Index, len(names))}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, name := range names {
		g.Go(func() error {
			ix, n, err := BuildPartition(gctx, store, schema, name)
			if err != nil {
				cfg.logger.WithPartition(name).ErrorContext(gctx, "Failed to load partition", "error", err)
				return err
			}
			mu.Lock()
			res.Indexes[name] = ix
			res.Rows += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cfg.logger.LogRefresh(ctx, len(names), 0, time.Since(start), err)
		return nil, nil, err
	}
	cfg.logger.LogRefresh(ctx, len(names), res.Rows, time.Since(start), nil)
	return res, names, nil
}
