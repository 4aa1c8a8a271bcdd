package ops

import (
	"sort"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/memindex"
)

// ValueCount is an indexed term with its document frequency.
type ValueCount struct {
	Value string
	Count uint64
}

// DiscoverValues returns the top indexed terms of field across partitions.
func DiscoverValues(schema *mapping.Schema, indexes []*memindex.Index, field string, top int) ([]ValueCount, error) {
	m, err := schema.Mapper(field)
	if err != nil {
		return nil, err
	}
	if !m.Indexed() {
		return nil, errs.Unsupported(field, "Field '%s' is not indexed", field)
	}
	if top <= 0 {
		top = 20
	}

	counts := make(map[string]uint64)
	for _, ix := range indexes {
		for _, tc := range ix.Terms(field) {
			counts[tc.Term] += tc.Count
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > top {
		out = out[:top]
	}
	return out, nil
}
