// Package numenc encodes arbitrary-precision signed integers as fixed-width
// strings whose byte-wise order matches numeric order.
//
// An Encoder with capacity D accepts integers in [-(10^D-1), 10^D-1]. A value
// is shifted by 10^D into [1, 2*10^D-1], written in base 36 using the ASCII
// ordered alphabet 0-9a-z, and left padded with '0' to the width of
// 2*10^D-1. Equal widths make lexicographic and numeric order coincide.
package numenc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/colindex/colindex/colindex/errs"
)

const radix = 36

// Encoder is immutable and safe for concurrent use.
type Encoder struct {
	digits int
	shift  *big.Int // 10^digits
	max    *big.Int // 10^digits - 1
	width  int
}

// New builds an encoder for integers of up to digits decimal digits.
func New(digits int) (*Encoder, error) {
	if digits <= 0 {
		return nil, errs.Configuration("digits must be strictly positive, but found %d", digits)
	}
	shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	max := new(big.Int).Sub(shift, big.NewInt(1))
	top := new(big.Int).Sub(new(big.Int).Lsh(shift, 1), big.NewInt(1))
	return &Encoder{
		digits: digits,
		shift:  shift,
		max:    max,
		width:  len(top.Text(radix)),
	}, nil
}

// Digits returns the decimal capacity.
func (e *Encoder) Digits() int { return e.digits }

// Width returns the length of every encoded string.
func (e *Encoder) Width() int { return e.width }

// Max returns the largest encodable magnitude, 10^D-1.
func (e *Encoder) Max() *big.Int { return new(big.Int).Set(e.max) }

// Encode returns the fixed-width representation of v.
func (e *Encoder) Encode(v *big.Int) (string, error) {
	if v == nil {
		return "", errs.Newf(errs.ErrNormalization, "can not encode a nil integer")
	}
	if v.CmpAbs(e.max) > 0 {
		return "", errs.EncodingRange("", "Value '%s' has more than %d digits", v.String(), e.digits)
	}
	shifted := new(big.Int).Add(v, e.shift)
	s := shifted.Text(radix)
	if len(s) < e.width {
		s = strings.Repeat("0", e.width-len(s)) + s
	}
	return s, nil
}

// Decode reverses Encode.
func (e *Encoder) Decode(s string) (*big.Int, error) {
	if len(s) != e.width {
		return nil, errs.Newf(errs.ErrNormalization, "encoded value '%s' must be %d characters long", s, e.width)
	}
	shifted, ok := new(big.Int).SetString(s, radix)
	if !ok || shifted.Sign() < 0 || s != strings.ToLower(s) {
		return nil, errs.Newf(errs.ErrNormalization, "encoded value '%s' is not a base %d string", s, radix)
	}
	v := shifted.Sub(shifted, e.shift)
	if v.CmpAbs(e.max) > 0 {
		return nil, errs.EncodingRange("", "encoded value '%s' is outside the %d digit range", s, e.digits)
	}
	return v, nil
}

// EncodeValue accepts whole numbers only: Go integer kinds, *big.Int, big.Int
// and integer-valued strings (leading zeros and a sign are allowed). Floats,
// booleans and dates are rejected.
func (e *Encoder) EncodeValue(value any) (string, error) {
	v, err := ToBigInt(value)
	if err != nil {
		return "", err
	}
	return e.Encode(v)
}

// ToBigInt converts whole-number values to *big.Int.
func ToBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			break
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case string:
		return parseBigInt(v)
	case json.Number:
		return parseBigInt(string(v))
	case bool, float32, float64, time.Time:
		return nil, errs.Newf(errs.ErrNormalization, "'%v' is not an integer", v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, errs.Newf(errs.ErrNormalization, "'%s' is not an integer", fmt.Sprint(value))
}

func parseBigInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errs.Newf(errs.ErrNormalization, "'%s' is not an integer", s)
	}
	return n, nil
}
