package mapping

import (
	"fmt"
	"math"

	"github.com/colindex/colindex/colindex/errs"
)

// NumericOptions configures the integer, long, float and double mappers.
type NumericOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
	Boost   *float64
}

var numericTypes = typeSet(textTypes, integerTypes, decimalTypes)

type numeric struct {
	single
	boost float64
}

func newNumeric(kind Kind, name string, opts NumericOptions, types []NativeType) (numeric, error) {
	s, err := newSingle(kind, name, opts.Column, opts.Indexed, opts.Sorted, types)
	if err != nil {
		return numeric{}, err
	}
	n := numeric{single: s, boost: DefaultBoost}
	if opts.Boost != nil {
		if *opts.Boost <= 0 || math.IsNaN(*opts.Boost) {
			return numeric{}, errs.Configuration("%s mapper '%s' requires a positive boost, but found %v", kind, name, *opts.Boost)
		}
		n.boost = *opts.Boost
	}
	return n, nil
}

// Boost is the relevance multiplier applied to conditions on this field.
func (n *numeric) Boost() float64 { return n.boost }

func (n *numeric) describe() string {
	return n.single.describe("boost=" + formatFloat(n.boost))
}

// IntegerMapper maps numeric values to 32-bit integers. Fractions are
// truncated and numeric strings are parsed, so "2.7" becomes 2.
type IntegerMapper struct{ numeric }

func NewIntegerMapper(name string, opts NumericOptions) (*IntegerMapper, error) {
	n, err := newNumeric(KindInteger, name, opts, numericTypes)
	if err != nil {
		return nil, err
	}
	return &IntegerMapper{n}, nil
}

func (*IntegerMapper) isMapper() {}

// Base returns the integer base value of v.
func (m *IntegerMapper) Base(v any) (int32, error) {
	n, ok := toLong(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errs.Normalization(m.name, "Field '%s' requires an integer, but found '%s'", m.name, display(v))
	}
	return int32(n), nil
}

func (m *IntegerMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *IntegerMapper) Term(v any) (Value, error) {
	n, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return LongOf(int64(n)), nil
}

func (m *IntegerMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *IntegerMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(LongValue, reverse)
}

func (m *IntegerMapper) String() string { return fmt.Sprintf("IntegerMapper{%s}", m.describe()) }

// LongMapper maps numeric values and timestamps to 64-bit integers.
type LongMapper struct{ numeric }

func NewLongMapper(name string, opts NumericOptions) (*LongMapper, error) {
	n, err := newNumeric(KindLong, name, opts, typeSet(numericTypes, []NativeType{NativeTimestamp}))
	if err != nil {
		return nil, err
	}
	return &LongMapper{n}, nil
}

func (*LongMapper) isMapper() {}

func (m *LongMapper) Base(v any) (int64, error) {
	if t, ok := asTime(v); ok {
		return t.UnixMilli(), nil
	}
	n, ok := toLong(v)
	if !ok {
		return 0, errs.Normalization(m.name, "Field '%s' requires a long, but found '%s'", m.name, display(v))
	}
	return n, nil
}

func (m *LongMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *LongMapper) Term(v any) (Value, error) {
	n, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return LongOf(n), nil
}

func (m *LongMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *LongMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(LongValue, reverse)
}

func (m *LongMapper) String() string { return fmt.Sprintf("LongMapper{%s}", m.describe()) }

// FloatMapper maps numeric values to 32-bit floats.
type FloatMapper struct{ numeric }

func NewFloatMapper(name string, opts NumericOptions) (*FloatMapper, error) {
	n, err := newNumeric(KindFloat, name, opts, numericTypes)
	if err != nil {
		return nil, err
	}
	return &FloatMapper{n}, nil
}

func (*FloatMapper) isMapper() {}

func (m *FloatMapper) Base(v any) (float32, error) {
	f, ok := toDouble(v)
	if !ok || math.Abs(f) > math.MaxFloat32 {
		return 0, errs.Normalization(m.name, "Field '%s' requires a float, but found '%s'", m.name, display(v))
	}
	return float32(f), nil
}

func (m *FloatMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *FloatMapper) Term(v any) (Value, error) {
	f, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return DoubleOf(float64(f)), nil
}

func (m *FloatMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *FloatMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(DoubleValue, reverse)
}

func (m *FloatMapper) String() string { return fmt.Sprintf("FloatMapper{%s}", m.describe()) }

// DoubleMapper maps numeric values to 64-bit floats.
type DoubleMapper struct{ numeric }

func NewDoubleMapper(name string, opts NumericOptions) (*DoubleMapper, error) {
	n, err := newNumeric(KindDouble, name, opts, numericTypes)
	if err != nil {
		return nil, err
	}
	return &DoubleMapper{n}, nil
}

func (*DoubleMapper) isMapper() {}

func (m *DoubleMapper) Base(v any) (float64, error) {
	f, ok := toDouble(v)
	if !ok {
		return 0, errs.Normalization(m.name, "Field '%s' requires a double, but found '%s'", m.name, display(v))
	}
	return f, nil
}

func (m *DoubleMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *DoubleMapper) Term(v any) (Value, error) {
	f, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return DoubleOf(f), nil
}

func (m *DoubleMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *DoubleMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(DoubleValue, reverse)
}

func (m *DoubleMapper) String() string { return fmt.Sprintf("DoubleMapper{%s}", m.describe()) }
