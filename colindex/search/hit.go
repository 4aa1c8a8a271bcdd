package search

import (
	"cmp"
	"strings"

	"github.com/colindex/colindex/colindex/mapping"
)

// Hit is one row returned by a partition search.
type Hit struct {
	Partition string
	Key       string
	Score     float64
	// SortValues holds one value per sort field, in sort order. A missing
	// value sorts last whatever the direction.
	SortValues []mapping.Value
}

// Comparator orders hits by sort values, then by score descending, then by
// row key ascending. Two hits compare equal only when their keys do.
type Comparator struct {
	sort []mapping.SortField
}

// NewComparator returns the comparator for a resolved sort.
func NewComparator(sort []mapping.SortField) Comparator {
	return Comparator{sort: sort}
}

// Sort returns the sort fields the comparator orders by.
func (c Comparator) Sort() []mapping.SortField { return c.sort }

// Compare returns a negative number when a comes before b.
func (c Comparator) Compare(a, b Hit) int {
	for i, sf := range c.sort {
		av, bv := valueAt(a, i), valueAt(b, i)
		switch {
		case av.IsMissing() && bv.IsMissing():
			continue
		case av.IsMissing():
			return 1
		case bv.IsMissing():
			return -1
		}
		r := av.Compare(bv)
		if sf.Reverse {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	if r := cmp.Compare(b.Score, a.Score); r != 0 {
		return r
	}
	return strings.Compare(a.Key, b.Key)
}

// Less reports whether a comes strictly before b.
func (c Comparator) Less(a, b Hit) bool { return c.Compare(a, b) < 0 }

func valueAt(h Hit, i int) mapping.Value {
	if i < len(h.SortValues) {
		return h.SortValues[i]
	}
	return mapping.Value{}
}

func (c Comparator) String() string {
	parts := make([]string, 0, len(c.sort)+2)
	for _, sf := range c.sort {
		parts = append(parts, sf.String())
	}
	parts = append(parts, "score desc", "key asc")
	return "[" + strings.Join(parts, ", ") + "]"
}
