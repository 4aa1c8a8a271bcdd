package ops

import (
	"slices"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/memindex"
)

// StatsResult contains statistics for a numeric field.
type StatsResult struct {
	Field  string
	Count  uint64
	Min    *float64
	Max    *float64
	Avg    *float64
	Median *float64
}

// Stats computes statistics over the numeric values of field across
// partitions. Fields mapped to strings are rejected.
func Stats(schema *mapping.Schema, indexes []*memindex.Index, field string) (*StatsResult, error) {
	if _, err := schema.Mapper(field); err != nil {
		return nil, err
	}
	var vals []float64
	for _, ix := range indexes {
		for _, v := range ix.Values(field) {
			switch v.Type {
			case mapping.LongValue:
				vals = append(vals, float64(v.Long))
			case mapping.DoubleValue:
				vals = append(vals, v.Double)
			default:
				return nil, errs.Unsupported(field, "stats only available for numeric fields, got %s", v.Type)
			}
		}
	}

	result := &StatsResult{Field: field, Count: uint64(len(vals))}
	if len(vals) == 0 {
		return result, nil
	}
	slices.Sort(vals)
	lo, hi := vals[0], vals[len(vals)-1]
	var sum float64
	for _, v := range vals {
		sum += v
	}
	avg := sum / float64(len(vals))

	// For even count, average middle two values
	mid := len(vals) / 2
	median := vals[mid]
	if len(vals)%2 == 0 {
		median = (vals[mid-1] + vals[mid]) / 2
	}

	result.Min, result.Max, result.Avg, result.Median = &lo, &hi, &avg, &median
	return result, nil
}
