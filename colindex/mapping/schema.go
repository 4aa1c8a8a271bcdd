package mapping

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/colindex/colindex/colindex/analysis"
	"github.com/colindex/colindex/colindex/errs"
)

// SchemaOptions holds the analyzer settings of a schema.
type SchemaOptions struct {
	// DefaultAnalyzer is used by text mappers that name no analyzer.
	// Empty means analysis.Default.
	DefaultAnalyzer string
	// Analyzers declares custom analyzers by name.
	Analyzers map[string]analysis.Config
}

// Schema is the ordered set of mappers of an index. It is immutable once
// built and safe for concurrent use.
type Schema struct {
	mappers         []Mapper
	byName          map[string]Mapper
	defaultAnalyzer string
	analyzers       map[string]analysis.Analyzer
	analyzerConfigs map[string]analysis.Config
}

var validFieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSchema validates mappers and binds every text mapper to its analyzer.
func NewSchema(opts SchemaOptions, mappers ...Mapper) (*Schema, error) {
	s := &Schema{
		byName:          make(map[string]Mapper, len(mappers)),
		analyzers:       make(map[string]analysis.Analyzer, len(opts.Analyzers)),
		analyzerConfigs: make(map[string]analysis.Config, len(opts.Analyzers)),
	}
	for name, cfg := range opts.Analyzers {
		if _, ok := analysis.Prebuilt(name); ok {
			return nil, errs.Configuration("Analyzer '%s' shadows a prebuilt analyzer", name)
		}
		a, err := analysis.Build(name, cfg)
		if err != nil {
			return nil, err
		}
		s.analyzers[name] = a
		s.analyzerConfigs[name] = cfg
	}

	s.defaultAnalyzer = opts.DefaultAnalyzer
	if s.defaultAnalyzer == "" {
		s.defaultAnalyzer = analysis.Default
	}
	def, err := s.lookupAnalyzer(s.defaultAnalyzer)
	if err != nil {
		return nil, err
	}

	if len(mappers) == 0 {
		return nil, errs.Configuration("schema must have at least one field")
	}
	for _, m := range mappers {
		name := m.Name()
		if !validFieldNameRe.MatchString(name) {
			return nil, errs.Configuration("invalid field name: %s (must match ^[A-Za-z_][A-Za-z0-9_]*$)", name)
		}
		if _, dup := s.byName[name]; dup {
			return nil, errs.Configuration("duplicate field '%s'", name)
		}
		if tm, ok := m.(*TextMapper); ok {
			a := def
			if tm.AnalyzerName() != "" {
				if a, err = s.lookupAnalyzer(tm.AnalyzerName()); err != nil {
					return nil, err
				}
			}
			m = tm.bind(a)
		}
		s.mappers = append(s.mappers, m)
		s.byName[name] = m
	}
	return s, nil
}

func (s *Schema) lookupAnalyzer(name string) (analysis.Analyzer, error) {
	if a, ok := s.analyzers[name]; ok {
		return a, nil
	}
	if a, ok := analysis.Prebuilt(name); ok {
		return a, nil
	}
	return nil, errs.Configuration("Unknown analyzer '%s'", name)
}

// Mapper returns the mapper of field. Dotted sub-fields such as "place.lat"
// resolve to the mapper that produces them.
func (s *Schema) Mapper(field string) (Mapper, error) {
	name := field
	for {
		if m, ok := s.byName[name]; ok {
			return m, nil
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			return nil, errs.NoMapper(field)
		}
		name = name[:i]
	}
}

// Mappers returns the mappers in declaration order.
func (s *Schema) Mappers() []Mapper {
	out := make([]Mapper, len(s.mappers))
	copy(out, s.mappers)
	return out
}

// DefaultAnalyzer returns the name of the default analyzer.
func (s *Schema) DefaultAnalyzer() string { return s.defaultAnalyzer }

// Analyzer returns the named analyzer, or the default one when name is
// empty or unknown.
func (s *Schema) Analyzer(name string) analysis.Analyzer {
	if name != "" {
		if a, err := s.lookupAnalyzer(name); err == nil {
			return a
		}
	}
	a, _ := s.lookupAnalyzer(s.defaultAnalyzer)
	return a
}

// Fields runs every mapper over row.
func (s *Schema) Fields(row Columns) ([]Field, error) {
	var out []Field
	for _, m := range s.mappers {
		fs, err := m.Fields(row)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

// Columns returns every source column read by the schema, sorted.
func (s *Schema) Columns() []string {
	seen := make(map[string]struct{})
	for _, m := range s.mappers {
		for _, c := range m.Columns() {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ValidateColumns checks that every column the schema reads is declared in
// types and that its type is supported by each mapper reading it.
func (s *Schema) ValidateColumns(types map[string]NativeType) error {
	for _, m := range s.mappers {
		for _, c := range m.Columns() {
			t, ok := types[c]
			if !ok {
				return errs.Configuration("No column definition '%s' for mapper '%s'", c, m.Name())
			}
			if !m.Supports(t) {
				return errs.Configuration("Type '%s' in column '%s' is not supported by mapper '%s'", t, c, m.Name())
			}
		}
	}
	return nil
}

type schemaJSON struct {
	DefaultAnalyzer string                     `json:"default_analyzer"`
	Analyzers       map[string]analysis.Config `json:"analyzers,omitempty"`
	Fields          []fieldJSON                `json:"fields"`
}

type fieldJSON struct {
	Name   string `json:"name"`
	Mapper string `json:"mapper"`
}

// ToJSON returns a canonical description of the schema. Two schemas with the
// same mappers in the same order produce the same bytes.
func (s *Schema) ToJSON() ([]byte, error) {
	doc := schemaJSON{DefaultAnalyzer: s.defaultAnalyzer, Analyzers: s.analyzerConfigs}
	if len(doc.Analyzers) == 0 {
		doc.Analyzers = nil
	}
	for _, m := range s.mappers {
		doc.Fields = append(doc.Fields, fieldJSON{Name: m.Name(), Mapper: m.String()})
	}
	return json.Marshal(doc)
}

func (s *Schema) String() string {
	parts := make([]string, 0, len(s.mappers))
	for _, m := range s.mappers {
		parts = append(parts, m.Name()+"="+m.String())
	}
	return "Schema{default_analyzer=" + s.defaultAnalyzer + ", fields={" + strings.Join(parts, ", ") + "}}"
}
