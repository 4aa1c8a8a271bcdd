package search

import (
	"github.com/colindex/colindex/colindex/condition"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
)

// Compiled is a search ready for execution.
type Compiled struct {
	Query        plan.Query
	Sort         []mapping.SortField
	ExplainSteps []string
	// PureNegations counts the repaired pure negation conditions.
	PureNegations int
}

// Compile compiles the query and the filter against schema and resolves
// the sort. A query and a filter combine into one boolean in which the
// filter does not score. A filter alone scores every match equally, and a
// search with neither matches everything.
func (s *Search) Compile(schema *mapping.Schema, opts ...condition.Option) (*Compiled, error) {
	out := &Compiled{}
	var query, filter plan.Query

	if s.Query != nil {
		res, err := condition.Compile(schema, s.Query, opts...)
		if err != nil {
			return nil, err
		}
		query = res.Query
		out.ExplainSteps = append(out.ExplainSteps, res.ExplainSteps...)
		out.PureNegations += res.PureNegations
	}
	if s.Filter != nil {
		res, err := condition.Compile(schema, s.Filter, opts...)
		if err != nil {
			return nil, err
		}
		filter = res.Query
		out.ExplainSteps = append(out.ExplainSteps, res.ExplainSteps...)
		out.PureNegations += res.PureNegations
	}

	sort, err := s.SortFields(schema)
	if err != nil {
		return nil, err
	}
	out.Sort = sort

	switch {
	case query != nil && filter != nil:
		out.Query = plan.Boolean{Boost: 1}.Add(plan.Must, query).Add(plan.Filter, filter)
	case query != nil:
		out.Query = query
	case filter != nil:
		out.Query = plan.ConstantScore{Query: filter, Boost: 1}
	default:
		out.Query = plan.MatchAll{Boost: 1}
	}
	out.ExplainSteps = append(out.ExplainSteps, "SEARCH "+out.Query.String())
	return out, nil
}
