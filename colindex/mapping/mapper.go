// Package mapping normalizes stored column values into the indexable and
// sortable representations a search engine consumes.
//
// Mapper is a closed set of variants. Callers that need per-kind behavior
// (the condition compiler, for one) type-switch over the concrete mapper
// types declared in this package.
package mapping

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/colindex/colindex/colindex/errs"
)

// Kind identifies a mapper variant in schema configurations.
type Kind string

const (
	KindString     Kind = "string"
	KindText       Kind = "text"
	KindInet       Kind = "inet"
	KindUUID       Kind = "uuid"
	KindInteger    Kind = "integer"
	KindLong       Kind = "long"
	KindFloat      Kind = "float"
	KindDouble     Kind = "double"
	KindBoolean    Kind = "boolean"
	KindBlob       Kind = "blob"
	KindBigInteger Kind = "bigint"
	KindDate       Kind = "date"
	KindGeoPoint   Kind = "geo_point"
	KindBitemporal Kind = "bitemporal"
)

const (
	DefaultIndexed = true
	DefaultSorted  = false
	DefaultBoost   = 1.0
)

// Mapper translates the columns of a row into fields.
type Mapper interface {
	// Name is the destination field name.
	Name() string
	Kind() Kind
	Indexed() bool
	Sorted() bool
	// Columns lists the source columns the mapper reads.
	Columns() []string
	// Supports reports whether the mapper accepts a column of type t.
	Supports(t NativeType) bool
	// Normalize converts one column's value to the mapper's base value.
	Normalize(column string, value any) (any, error)
	// Fields builds the indexable and sortable representations of a row.
	// A row without values for the mapper's columns yields no fields.
	Fields(row Columns) ([]Field, error)
	// SortField describes sorting by this mapper's field.
	SortField(reverse bool) (SortField, error)
	String() string

	isMapper()
}

// Termer is implemented by single-column mappers whose indexed
// representation of a value is exactly one term or point.
type Termer interface {
	Mapper
	Term(value any) (Value, error)
}

// single holds what every single-column mapper shares.
type single struct {
	name    string
	column  string
	kind    Kind
	indexed bool
	sorted  bool
	types   []NativeType
}

func newSingle(kind Kind, name, column string, indexed, sorted *bool, types []NativeType) (single, error) {
	if strings.TrimSpace(name) == "" {
		return single{}, errs.Configuration("%s mapper requires a name", kind)
	}
	if column == "" {
		column = name
	}
	s := single{
		name:    name,
		column:  column,
		kind:    kind,
		indexed: DefaultIndexed,
		sorted:  DefaultSorted,
		types:   types,
	}
	if indexed != nil {
		s.indexed = *indexed
	}
	if sorted != nil {
		s.sorted = *sorted
	}
	return s, nil
}

func (s *single) Name() string      { return s.name }
func (s *single) Kind() Kind        { return s.kind }
func (s *single) Indexed() bool     { return s.indexed }
func (s *single) Sorted() bool      { return s.sorted }
func (s *single) Column() string    { return s.column }
func (s *single) Columns() []string { return []string{s.column} }

func (s *single) Supports(t NativeType) bool {
	return t == "" || slices.Contains(s.types, t)
}

func (s *single) checkColumn(col Column) error {
	if !s.Supports(col.Type) {
		return unsupportedType(s.name, col)
	}
	return nil
}

func (s *single) checkName(column string) error {
	if column != "" && column != s.column {
		return errs.Normalization(s.name, "Mapper '%s' does not read column '%s'", s.name, column)
	}
	return nil
}

// fields converts the mapper's column through term into one field.
func (s *single) fields(row Columns, term func(any) (Value, error)) ([]Field, error) {
	col, ok := row.Get(s.column)
	if !ok || col.Value == nil {
		return nil, nil
	}
	if err := s.checkColumn(col); err != nil {
		return nil, err
	}
	if !s.indexed && !s.sorted {
		return nil, nil
	}
	v, err := term(col.Value)
	if err != nil {
		return nil, err
	}
	return []Field{{Name: s.name, Value: v, Indexed: s.indexed, Sorted: s.sorted}}, nil
}

func (s *single) sortField(t ValueType, reverse bool) (SortField, error) {
	return SortField{Field: s.name, Type: t, Reverse: reverse}, nil
}

func (s *single) describe(extra ...string) string {
	parts := []string{
		"field=" + s.name,
		"indexed=" + strconv.FormatBool(s.indexed),
		"sorted=" + strconv.FormatBool(s.sorted),
		"column=" + s.column,
	}
	return strings.Join(append(parts, extra...), ", ")
}

func unsupportedType(mapper string, col Column) error {
	return errs.Normalization(mapper, "Type '%s' in column '%s' is not supported by mapper '%s'", col.Type, col.Name, mapper)
}

// display renders a rejected value for error messages.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case *big.Int:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
