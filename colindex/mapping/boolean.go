package mapping

import (
	"fmt"
	"strings"

	"github.com/colindex/colindex/colindex/errs"
)

// BooleanOptions configures a boolean mapper.
type BooleanOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
}

// BooleanMapper indexes booleans as the terms "true" and "false".
type BooleanMapper struct{ single }

func NewBooleanMapper(name string, opts BooleanOptions) (*BooleanMapper, error) {
	s, err := newSingle(KindBoolean, name, opts.Column, opts.Indexed, opts.Sorted,
		typeSet(textTypes, []NativeType{NativeBoolean}))
	if err != nil {
		return nil, err
	}
	return &BooleanMapper{s}, nil
}

func (*BooleanMapper) isMapper() {}

func (m *BooleanMapper) Base(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
	}
	return "", errs.Normalization(m.name, "Field '%s' requires a boolean, but found '%s'", m.name, display(v))
}

func (m *BooleanMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *BooleanMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *BooleanMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *BooleanMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(StringValue, reverse)
}

func (m *BooleanMapper) String() string { return fmt.Sprintf("BooleanMapper{%s}", m.describe()) }
