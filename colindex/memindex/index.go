// Package memindex is an in-memory search engine for one partition. It
// indexes the fields mappers produce and executes plan queries over roaring
// bitmaps of document ids.
package memindex

import (
	"context"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
	"github.com/colindex/colindex/colindex/search"
)

type doc struct {
	key    string
	values map[string][]mapping.Value
}

// Index holds the documents of one partition. It is safe for concurrent
// use; writes take an exclusive lock.
type Index struct {
	mu       sync.RWMutex
	schema   *mapping.Schema
	docs     []doc
	byKey    map[string]uint32
	live     *roaring.Bitmap
	postings map[string]map[string]*roaring.Bitmap
}

// New returns an empty index for rows mapped by schema.
func New(schema *mapping.Schema) *Index {
	return &Index{
		schema:   schema,
		byKey:    make(map[string]uint32),
		live:     roaring.New(),
		postings: make(map[string]map[string]*roaring.Bitmap),
	}
}

// Put maps row through the schema and indexes it under key, replacing any
// document with the same key.
func (ix *Index) Put(key string, row mapping.Columns) error {
	fields, err := ix.schema.Fields(row)
	if err != nil {
		return err
	}
	ix.PutFields(key, fields)
	return nil
}

// PutFields indexes already mapped fields under key.
func (ix *Index) PutFields(key string, fields []mapping.Field) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.deleteLocked(key)
	id := uint32(len(ix.docs))
	d := doc{key: key, values: make(map[string][]mapping.Value, len(fields))}
	for _, f := range fields {
		d.values[f.Name] = append(d.values[f.Name], f.Value)
		if f.Indexed && f.Value.Type == mapping.StringValue {
			terms := ix.postings[f.Name]
			if terms == nil {
				terms = make(map[string]*roaring.Bitmap)
				ix.postings[f.Name] = terms
			}
			bm := terms[f.Value.Str]
			if bm == nil {
				bm = roaring.New()
				terms[f.Value.Str] = bm
			}
			bm.Add(id)
		}
	}
	ix.docs = append(ix.docs, d)
	ix.byKey[key] = id
	ix.live.Add(id)
}

// Delete removes the document with key, if any.
func (ix *Index) Delete(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteLocked(key)
}

func (ix *Index) deleteLocked(key string) {
	id, ok := ix.byKey[key]
	if !ok {
		return
	}
	delete(ix.byKey, key)
	ix.live.Remove(id)
	for _, terms := range ix.postings {
		for _, bm := range terms {
			bm.Remove(id)
		}
	}
	ix.docs[id].values = nil
}

// Reset removes every document.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = nil
	ix.byKey = make(map[string]uint32)
	ix.live.Clear()
	ix.postings = make(map[string]map[string]*roaring.Bitmap)
}

// Len returns the number of live documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return int(ix.live.GetCardinality())
}

// Search runs q and returns the matching documents in the request's order,
// after req.After and at most req.Limit of them.
func (ix *Index) Search(ctx context.Context, q plan.Query, req search.Request) ([]search.Hit, error) {
	// Stats may read this index, so they are resolved before locking it.
	var st search.TermStats
	if req.Stats != nil {
		st = search.Snapshot(req.Stats, q)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := ix.eval(q, st)
	if err != nil {
		return nil, err
	}
	m.docs.And(ix.live)

	cmp := req.Comparator()
	hits := make([]search.Hit, 0, m.docs.GetCardinality())
	it := m.docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		d := ix.docs[id]
		if (req.Keys != nil && !req.Keys[d.key]) || req.Exclude[d.key] {
			continue
		}
		h := search.Hit{
			Partition:  req.Partition,
			Key:        d.key,
			Score:      m.scores[id],
			SortValues: sortValues(d, req.Sort),
		}
		if req.After != nil && cmp.Compare(h, *req.After) <= 0 {
			continue
		}
		hits = append(hits, h)
	}
	slices.SortFunc(hits, cmp.Compare)
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func sortValues(d doc, sort []mapping.SortField) []mapping.Value {
	if len(sort) == 0 {
		return nil
	}
	out := make([]mapping.Value, len(sort))
	for i, sf := range sort {
		vals := d.values[sf.Field]
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		for _, o := range vals[1:] {
			// Multi-valued fields sort by their least value, or their
			// greatest when reversed.
			if c := o.Compare(v); (c < 0 && !sf.Reverse) || (c > 0 && sf.Reverse) {
				v = o
			}
		}
		out[i] = v
	}
	return out
}
