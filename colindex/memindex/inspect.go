package memindex

import (
	"sort"

	"github.com/colindex/colindex/colindex/mapping"
)

// TermCount is an indexed term and the number of live documents holding it.
type TermCount struct {
	Term  string
	Count uint64
}

// Terms returns the document frequency of every indexed term of field,
// most frequent first.
func (ix *Index) Terms(field string) []TermCount {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	terms := ix.postings[field]
	out := make([]TermCount, 0, len(terms))
	for t, bm := range terms {
		n := bm.AndCardinality(ix.live)
		if n == 0 {
			continue
		}
		out = append(out, TermCount{Term: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// Values returns every value of field across live documents.
func (ix *Index) Values(field string) []mapping.Value {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []mapping.Value
	it := ix.live.Iterator()
	for it.HasNext() {
		out = append(out, ix.docs[it.Next()].values[field]...)
	}
	return out
}

// DocCount returns the number of live documents.
func (ix *Index) DocCount() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.live.GetCardinality()
}

// DocFreq returns the number of live documents holding term in field.
func (ix *Index) DocFreq(field, term string) uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	bm := ix.postings[field][term]
	if bm == nil {
		return 0
	}
	return bm.AndCardinality(ix.live)
}
