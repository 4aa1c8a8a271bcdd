package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
)

// InferType returns the native type a Go value is stored as when the
// caller declares none.
func InferType(v any) (mapping.NativeType, error) {
	switch v.(type) {
	case string:
		return mapping.NativeText, nil
	case int8, int16, int32, int64, int, uint8, uint16, uint32:
		return mapping.NativeBigint, nil
	case uint64, uint, *big.Int:
		return mapping.NativeVarint, nil
	case float32:
		return mapping.NativeFloat, nil
	case float64:
		return mapping.NativeDouble, nil
	case bool:
		return mapping.NativeBoolean, nil
	case []byte:
		return mapping.NativeBlob, nil
	case time.Time:
		return mapping.NativeTimestamp, nil
	case uuid.UUID:
		return mapping.NativeUUID, nil
	case netip.Addr:
		return mapping.NativeInet, nil
	}
	return "", errs.Newf(errs.ErrNormalization, "unsupported column value %T", v)
}

// EncodeValue writes a column value as the text stored in the cells table.
func EncodeValue(t mapping.NativeType, v any) (string, error) {
	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case *big.Int:
		return x.String(), nil
	case uuid.UUID:
		return x.String(), nil
	case netip.Addr:
		return x.String(), nil
	case string:
		return x, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(errs.ErrNormalization, fmt.Sprintf("encode %s value", t), err)
	}
	return string(b), nil
}

// DecodeValue reads a stored cell back into the Go value mappers expect for
// its native type.
func DecodeValue(t mapping.NativeType, s string) (any, error) {
	bad := func(err error) error {
		return errs.Wrap(errs.ErrNormalization, fmt.Sprintf("decode %s value %q", t, s), err)
	}
	switch t {
	case mapping.NativeASCII, mapping.NativeText, mapping.NativeVarchar,
		mapping.NativeInet, mapping.NativeUUID, mapping.NativeTimeUUID, mapping.NativeDecimal:
		return s, nil
	case mapping.NativeTinyint, mapping.NativeSmallint, mapping.NativeInt, mapping.NativeBigint, mapping.NativeCounter:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, bad(err)
		}
		return n, nil
	case mapping.NativeVarint:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, bad(fmt.Errorf("not an integer"))
		}
		return n, nil
	case mapping.NativeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, bad(err)
		}
		return float32(f), nil
	case mapping.NativeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, bad(err)
		}
		return f, nil
	case mapping.NativeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, bad(err)
		}
		return b, nil
	case mapping.NativeBlob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, bad(err)
		}
		return b, nil
	case mapping.NativeTimestamp, mapping.NativeDate:
		tm, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, bad(err)
		}
		return tm, nil
	}
	return nil, errs.Newf(errs.ErrNormalization, "unknown native type '%s'", t)
}
