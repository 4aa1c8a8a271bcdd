package mapping

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/numenc"
)

// DefaultDigits is the decimal capacity of a bigint mapper with no digits
// option.
const DefaultDigits = 32

// BigIntegerOptions configures a bigint mapper.
type BigIntegerOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
	Digits  *int
}

// BigIntegerMapper indexes arbitrary-precision integers of up to Digits
// decimal digits as fixed-width strings whose byte order is numeric order.
type BigIntegerMapper struct {
	single
	enc *numenc.Encoder
}

func NewBigIntegerMapper(name string, opts BigIntegerOptions) (*BigIntegerMapper, error) {
	s, err := newSingle(KindBigInteger, name, opts.Column, opts.Indexed, opts.Sorted, typeSet(textTypes, integerTypes))
	if err != nil {
		return nil, err
	}
	digits := DefaultDigits
	if opts.Digits != nil {
		digits = *opts.Digits
	}
	enc, err := numenc.New(digits)
	if err != nil {
		return nil, errs.Configuration("bigint mapper '%s' requires digits > 0, but found %d", name, digits)
	}
	return &BigIntegerMapper{single: s, enc: enc}, nil
}

func (*BigIntegerMapper) isMapper() {}

func (m *BigIntegerMapper) Digits() int { return m.enc.Digits() }

// Base returns the encoded form of v.
func (m *BigIntegerMapper) Base(v any) (string, error) {
	n, err := numenc.ToBigInt(v)
	if err != nil {
		return "", errs.Normalization(m.name, "Field '%s' requires an integer, but found '%s'", m.name, display(v))
	}
	s, err := m.enc.Encode(n)
	if err != nil {
		if errs.IsKind(err, errs.ErrEncodingRange) {
			return "", errs.EncodingRange(m.name, "Field '%s' with value '%s' has more than %d digits", m.name, n.String(), m.enc.Digits())
		}
		return "", err
	}
	return s, nil
}

// Decode returns the integer an encoded term represents.
func (m *BigIntegerMapper) Decode(s string) (*big.Int, error) { return m.enc.Decode(s) }

func (m *BigIntegerMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *BigIntegerMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *BigIntegerMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *BigIntegerMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(StringValue, reverse)
}

func (m *BigIntegerMapper) String() string {
	return fmt.Sprintf("BigIntegerMapper{%s}", m.describe("digits="+strconv.Itoa(m.enc.Digits())))
}
