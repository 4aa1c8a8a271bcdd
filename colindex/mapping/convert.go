package mapping

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// toLong converts numbers and numeric strings to int64, truncating any
// fractional part toward zero. Booleans, dates and anything else fail.
func toLong(v any) (int64, bool) {
	switch x := v.(type) {
	case string:
		return parseLong(x)
	case json.Number:
		return parseLong(string(x))
	case *big.Int:
		if x == nil || !x.IsInt64() {
			return 0, false
		}
		return x.Int64(), true
	case float32:
		return truncate(float64(x))
	case float64:
		return truncate(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func parseLong(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return truncate(f)
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}

// toDouble converts numbers and numeric strings to float64. NaN and
// infinities are rejected so that double points keep a total order.
func toDouble(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case *big.Int:
		if x == nil {
			return 0, false
		}
		f, _ = new(big.Float).SetInt(x).Float64()
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(rv.Uint())
		default:
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
