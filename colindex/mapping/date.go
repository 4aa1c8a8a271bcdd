package mapping

import (
	"fmt"
	"time"

	"github.com/colindex/colindex/colindex/dateparse"
	"github.com/colindex/colindex/colindex/errs"
)

// DateOptions configures a date mapper.
type DateOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
	// Pattern is a date pattern such as "yyyy/MM/dd" or "timestamp".
	Pattern string
}

// DateMapper indexes instants as epoch milliseconds.
type DateMapper struct {
	single
	parser *dateparse.Parser
}

func NewDateMapper(name string, opts DateOptions) (*DateMapper, error) {
	s, err := newSingle(KindDate, name, opts.Column, opts.Indexed, opts.Sorted,
		typeSet(textTypes, []NativeType{NativeTimestamp, NativeDate, NativeBigint, NativeInt}))
	if err != nil {
		return nil, err
	}
	p, err := dateparse.New(opts.Pattern)
	if err != nil {
		return nil, err
	}
	return &DateMapper{single: s, parser: p}, nil
}

func (*DateMapper) isMapper() {}

func (m *DateMapper) Pattern() string { return m.parser.Pattern() }

// Format renders t in the mapper's pattern, so Base reads it back.
func (m *DateMapper) Format(t time.Time) string { return m.parser.Format(t) }

// Base returns v as epoch milliseconds.
func (m *DateMapper) Base(v any) (int64, error) {
	t, ok, err := m.parser.Parse(v)
	if err != nil || !ok {
		return 0, errs.Normalization(m.name, "Field '%s' requires a date, but found '%s'", m.name, display(v))
	}
	return t.UnixMilli(), nil
}

func (m *DateMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	millis, err := m.Base(v)
	if err != nil {
		return nil, err
	}
	return time.UnixMilli(millis).UTC(), nil
}

func (m *DateMapper) Term(v any) (Value, error) {
	n, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return LongOf(n), nil
}

func (m *DateMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *DateMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(LongValue, reverse)
}

func (m *DateMapper) String() string {
	return fmt.Sprintf("DateMapper{%s}", m.describe("pattern="+m.parser.Pattern()))
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x != nil {
			return *x, true
		}
	}
	return time.Time{}, false
}
