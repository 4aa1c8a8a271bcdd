package mapping

import (
	"fmt"

	"github.com/colindex/colindex/colindex/analysis"
	"github.com/colindex/colindex/colindex/errs"
)

// TextOptions configures a text mapper.
type TextOptions struct {
	Column  string
	Indexed *bool
	// Analyzer names a prebuilt or schema-declared analyzer. Empty means the
	// schema default.
	Analyzer string
}

// TextMapper tokenizes string values with an analyzer and indexes every
// resulting term. Text fields can not be sorted.
type TextMapper struct {
	single
	analyzerName string
	analyzer     analysis.Analyzer
}

func NewTextMapper(name string, opts TextOptions) (*TextMapper, error) {
	s, err := newSingle(KindText, name, opts.Column, opts.Indexed, nil, textTypes)
	if err != nil {
		return nil, err
	}
	return &TextMapper{single: s, analyzerName: opts.Analyzer}, nil
}

func (*TextMapper) isMapper() {}

// AnalyzerName returns the configured analyzer name, empty for the default.
func (m *TextMapper) AnalyzerName() string { return m.analyzerName }

// Analyzer returns the analyzer bound by the schema.
func (m *TextMapper) Analyzer() analysis.Analyzer {
	if m.analyzer == nil {
		a, _ := analysis.Prebuilt(analysis.Default)
		return a
	}
	return m.analyzer
}

// bind returns a copy of m that analyzes with a.
func (m *TextMapper) bind(a analysis.Analyzer) *TextMapper {
	c := *m
	c.analyzer = a
	return &c
}

func (m *TextMapper) Base(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errs.Normalization(m.name, "Field '%s' requires a string, but found '%s'", m.name, display(v))
	}
	return s, nil
}

func (m *TextMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

// Terms analyzes v into the terms a text condition matches.
func (m *TextMapper) Terms(v any) ([]string, error) {
	s, err := m.Base(v)
	if err != nil {
		return nil, err
	}
	return m.Analyzer().Analyze(s), nil
}

func (m *TextMapper) Fields(row Columns) ([]Field, error) {
	col, ok := row.Get(m.column)
	if !ok || col.Value == nil || !m.indexed {
		return nil, nil
	}
	if err := m.checkColumn(col); err != nil {
		return nil, err
	}
	terms, err := m.Terms(col.Value)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(terms))
	for _, t := range terms {
		out = append(out, Field{Name: m.name, Value: StringOf(t), Indexed: true})
	}
	return out, nil
}

func (m *TextMapper) SortField(bool) (SortField, error) {
	return SortField{}, errs.Unsupported(m.name, "Text mapper '%s' does not support sorting", m.name)
}

func (m *TextMapper) String() string {
	return fmt.Sprintf("TextMapper{%s}", m.describe("analyzer="+m.Analyzer().Name()))
}
