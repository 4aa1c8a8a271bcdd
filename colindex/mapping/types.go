package mapping

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// NativeType is the type a column store declares for a column.
type NativeType string

const (
	NativeASCII     NativeType = "ascii"
	NativeText      NativeType = "text"
	NativeVarchar   NativeType = "varchar"
	NativeTinyint   NativeType = "tinyint"
	NativeSmallint  NativeType = "smallint"
	NativeInt       NativeType = "int"
	NativeBigint    NativeType = "bigint"
	NativeVarint    NativeType = "varint"
	NativeCounter   NativeType = "counter"
	NativeFloat     NativeType = "float"
	NativeDouble    NativeType = "double"
	NativeDecimal   NativeType = "decimal"
	NativeBoolean   NativeType = "boolean"
	NativeBlob      NativeType = "blob"
	NativeTimestamp NativeType = "timestamp"
	NativeDate      NativeType = "date"
	NativeUUID      NativeType = "uuid"
	NativeTimeUUID  NativeType = "timeuuid"
	NativeInet      NativeType = "inet"
)

var (
	textTypes    = []NativeType{NativeASCII, NativeText, NativeVarchar}
	integerTypes = []NativeType{NativeTinyint, NativeSmallint, NativeInt, NativeBigint, NativeVarint, NativeCounter}
	decimalTypes = []NativeType{NativeFloat, NativeDouble, NativeDecimal}
)

func typeSet(groups ...[]NativeType) []NativeType {
	var out []NativeType
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Column is one cell supplied by the column store. A nil Value means the
// cell is absent. An empty Type means the store did not declare one, and the
// value is validated by its Go type alone.
type Column struct {
	Name  string
	Type  NativeType
	Value any
}

// Columns is the set of cells of one row.
type Columns []Column

// Get returns the named column.
func (c Columns) Get(name string) (Column, bool) {
	for _, col := range c {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ValueOf returns the named column's value, or nil when the column is
// missing or null.
func (c Columns) ValueOf(name string) any {
	col, ok := c.Get(name)
	if !ok {
		return nil
	}
	return col.Value
}

// ValueType tags a Value.
type ValueType uint8

const (
	StringValue ValueType = iota + 1
	LongValue
	DoubleValue
)

func (t ValueType) String() string {
	switch t {
	case StringValue:
		return "string"
	case LongValue:
		return "long"
	case DoubleValue:
		return "double"
	default:
		return "missing"
	}
}

// Value is the base value a mapper produces: a term, a long point or a
// double point. The zero Value is "missing".
type Value struct {
	Type   ValueType `json:"t,omitempty"`
	Str    string    `json:"s,omitempty"`
	Long   int64     `json:"l,omitempty"`
	Double float64   `json:"d,omitempty"`
}

func StringOf(s string) Value  { return Value{Type: StringValue, Str: s} }
func LongOf(n int64) Value     { return Value{Type: LongValue, Long: n} }
func DoubleOf(f float64) Value { return Value{Type: DoubleValue, Double: f} }

// IsMissing reports whether v carries no value.
func (v Value) IsMissing() bool { return v.Type == 0 }

// Compare orders values of the same type naturally. Values of different
// types order by type tag so that the order stays total.
func (v Value) Compare(o Value) int {
	if v.Type != o.Type {
		return cmp.Compare(v.Type, o.Type)
	}
	switch v.Type {
	case StringValue:
		return strings.Compare(v.Str, o.Str)
	case LongValue:
		return cmp.Compare(v.Long, o.Long)
	case DoubleValue:
		return cmp.Compare(v.Double, o.Double)
	}
	return 0
}

func (v Value) String() string {
	switch v.Type {
	case StringValue:
		return v.Str
	case LongValue:
		return strconv.FormatInt(v.Long, 10)
	case DoubleValue:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	}
	return "<missing>"
}

// Field is one indexable or sortable representation of a row.
type Field struct {
	Name    string
	Value   Value
	Indexed bool
	Sorted  bool
}

func (f Field) String() string {
	return fmt.Sprintf("%s:%s=%s", f.Name, f.Value.Type, f.Value)
}

// SortField describes how rows are ordered by one field's sort values.
type SortField struct {
	Field   string
	Type    ValueType
	Reverse bool
}

func (s SortField) String() string {
	if s.Reverse {
		return s.Field + " desc"
	}
	return s.Field + " asc"
}
