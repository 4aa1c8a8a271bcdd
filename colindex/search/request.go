package search

import (
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
)

// Request is what a partition engine needs besides the query: the order to
// return hits in, how many to return and where the previous page stopped.
type Request struct {
	Partition string
	Sort      []mapping.SortField
	// Limit caps the hits returned. Zero or less means no cap.
	Limit int
	// After skips every hit at or before it in sort order.
	After *Hit
	// Keys, when set, restricts the search to these row keys.
	Keys map[string]bool
	// Exclude skips these row keys before the limit is applied.
	Exclude map[string]bool
	// Stats, when set, replaces the engine's own corpus statistics in
	// relevance scoring.
	Stats TermStats
}

// Comparator returns the comparator for the request's sort.
func (r Request) Comparator() Comparator { return NewComparator(r.Sort) }

// TermStats supplies the corpus statistics relevance is scored with. Using
// the same stats in every partition makes a row replicated in several
// partitions score, and therefore sort, the same everywhere.
type TermStats interface {
	DocCount() uint64
	DocFreq(field, term string) uint64
}

// FieldTerm names an indexed term of a field.
type FieldTerm struct {
	Field, Term string
}

// StatsSnapshot is a TermStats with every value precomputed. Engines can
// read it while holding their own locks.
type StatsSnapshot struct {
	Docs  uint64
	Freqs map[FieldTerm]uint64
}

func (s StatsSnapshot) DocCount() uint64 { return s.Docs }

func (s StatsSnapshot) DocFreq(field, term string) uint64 {
	return s.Freqs[FieldTerm{Field: field, Term: term}]
}

// Snapshot reads from st the statistics scoring q needs. A snapshot is
// returned as is.
func Snapshot(st TermStats, q plan.Query) StatsSnapshot {
	if s, ok := st.(StatsSnapshot); ok {
		return s
	}
	snap := StatsSnapshot{Docs: st.DocCount(), Freqs: make(map[FieldTerm]uint64)}
	for _, t := range plan.Terms(q) {
		key := FieldTerm{Field: t.Field, Term: t.Term}
		if _, ok := snap.Freqs[key]; !ok {
			snap.Freqs[key] = st.DocFreq(t.Field, t.Term)
		}
	}
	return snap
}
