// Package search assembles search specifications from their JSON form,
// validates them against a schema and compiles them into one plan query.
package search

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/colindex/colindex/colindex/condition"
	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
)

// SortClause orders results by one field.
type SortClause struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse,omitempty"`
}

func (c SortClause) String() string {
	if c.Reverse {
		return c.Field + " desc"
	}
	return c.Field + " asc"
}

// Sort is an ordered list of sort clauses. Earlier clauses take precedence.
type Sort struct {
	Fields []SortClause `json:"fields"`
}

// Search is a complete search specification. Query conditions are scored,
// filter conditions only restrict. Either may be nil. A Search is not
// modified after New or FromJSON returns it.
type Search struct {
	Query   condition.Condition
	Filter  condition.Condition
	Sort    *Sort
	Refresh bool
}

// New returns a search after checking its sort clauses.
func New(query, filter condition.Condition, sort []SortClause, refresh bool) (*Search, error) {
	s := &Search{Query: query, Filter: filter, Refresh: refresh}
	if len(sort) > 0 {
		for _, c := range sort {
			if strings.TrimSpace(c.Field) == "" {
				return nil, errs.QueryParse("Sort field name required")
			}
		}
		s.Sort = &Sort{Fields: append([]SortClause(nil), sort...)}
	}
	return s, nil
}

type wire struct {
	Query   json.RawMessage `json:"query,omitempty"`
	Filter  json.RawMessage `json:"filter,omitempty"`
	Sort    json.RawMessage `json:"sort,omitempty"`
	Refresh bool            `json:"refresh,omitempty"`
}

// FromJSON parses {query, filter, sort, refresh}. The sort member may be
// {"fields": [...]} or a bare list of {field, reverse} objects.
func FromJSON(data []byte) (*Search, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return nil, errs.Wrap(errs.ErrQueryParse, "invalid search", err)
	}

	var query, filter condition.Condition
	var err error
	if present(w.Query) {
		if query, err = condition.Unmarshal(w.Query); err != nil {
			return nil, err
		}
	}
	if present(w.Filter) {
		if filter, err = condition.Unmarshal(w.Filter); err != nil {
			return nil, err
		}
	}
	var clauses []SortClause
	if present(w.Sort) {
		if clauses, err = parseSort(w.Sort); err != nil {
			return nil, err
		}
	}
	return New(query, filter, clauses, w.Refresh)
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func parseSort(raw json.RawMessage) ([]SortClause, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if bytes.TrimSpace(raw)[0] == '[' {
		var list []SortClause
		if err := dec.Decode(&list); err != nil {
			return nil, errs.Wrap(errs.ErrQueryParse, "invalid sort", err)
		}
		return list, nil
	}
	var s Sort
	if err := dec.Decode(&s); err != nil {
		return nil, errs.Wrap(errs.ErrQueryParse, "invalid sort", err)
	}
	return s.Fields, nil
}

// MarshalJSON writes the canonical form FromJSON reads.
func (s *Search) MarshalJSON() ([]byte, error) {
	var w wire
	var err error
	if s.Query != nil {
		if w.Query, err = json.Marshal(s.Query); err != nil {
			return nil, err
		}
	}
	if s.Filter != nil {
		if w.Filter, err = json.Marshal(s.Filter); err != nil {
			return nil, err
		}
	}
	if s.Sort != nil {
		if w.Sort, err = json.Marshal(s.Sort); err != nil {
			return nil, err
		}
	}
	w.Refresh = s.Refresh
	return json.Marshal(w)
}

func (s *Search) String() string {
	var parts []string
	if s.Query != nil {
		parts = append(parts, "query="+s.Query.String())
	}
	if s.Filter != nil {
		parts = append(parts, "filter="+s.Filter.String())
	}
	if s.Sort != nil {
		fields := make([]string, len(s.Sort.Fields))
		for i, c := range s.Sort.Fields {
			fields[i] = c.String()
		}
		parts = append(parts, "sort=["+strings.Join(fields, ", ")+"]")
	}
	if s.Refresh {
		parts = append(parts, "refresh=true")
	}
	return "Search{" + strings.Join(parts, ", ") + "}"
}

// RequiresRelevance reports whether results are ordered by score.
func (s *Search) RequiresRelevance() bool { return s.Query != nil }

// UsesSorting reports whether results are ordered by field values.
func (s *Search) UsesSorting() bool { return s.Sort != nil && len(s.Sort.Fields) > 0 }

// RequiresPostProcessing reports whether partition results must be merged
// in a global order rather than concatenated.
func (s *Search) RequiresPostProcessing() bool { return s.RequiresRelevance() || s.UsesSorting() }

// RequiresFullScan reports whether neither the query nor the filter holds a
// selective condition, so every partition has to be visited.
func (s *Search) RequiresFullScan() bool {
	return !selective(s.Query) && !selective(s.Filter)
}

// selective reports whether c restricts rows through a field condition in a
// positive position. Match-all, pure negations and empty booleans do not.
// Should clauses restrict only when there are no must clauses; otherwise
// they just score.
func selective(c condition.Condition) bool {
	switch x := c.(type) {
	case nil, condition.All:
		return false
	case condition.Boolean:
		for _, m := range x.Must {
			if selective(m) {
				return true
			}
		}
		if len(x.Must) > 0 || len(x.Should) == 0 {
			return false
		}
		for _, sh := range x.Should {
			if !selective(sh) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// SortFields resolves every sort clause against schema. Sorting needs a
// mapper declared as sorted.
func (s *Search) SortFields(schema *mapping.Schema) ([]mapping.SortField, error) {
	if !s.UsesSorting() {
		return nil, nil
	}
	out := make([]mapping.SortField, 0, len(s.Sort.Fields))
	for _, c := range s.Sort.Fields {
		m, err := schema.Mapper(c.Field)
		if err != nil {
			return nil, err
		}
		if !m.Sorted() {
			return nil, errs.Unsupported(c.Field, "Field '%s' is not sorted", c.Field)
		}
		sf, err := m.SortField(c.Reverse)
		if err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, nil
}

// Validate checks that s compiles against schema without executing it.
func (s *Search) Validate(schema *mapping.Schema) error {
	_, err := s.Compile(schema)
	return err
}

// Validate parses a JSON search and checks it against schema. It is the
// statement preparation entry point.
func Validate(data []byte, schema *mapping.Schema) error {
	s, err := FromJSON(data)
	if err != nil {
		return err
	}
	return s.Validate(schema)
}
