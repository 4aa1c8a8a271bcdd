package mapping

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/colindex/colindex/colindex/errs"
)

// BlobOptions configures a blob mapper.
type BlobOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
}

// BlobMapper indexes byte sequences as lower-case hex terms. Hex strings
// with or without a 0x prefix are accepted.
type BlobMapper struct{ single }

func NewBlobMapper(name string, opts BlobOptions) (*BlobMapper, error) {
	s, err := newSingle(KindBlob, name, opts.Column, opts.Indexed, opts.Sorted,
		typeSet(textTypes, []NativeType{NativeBlob}))
	if err != nil {
		return nil, err
	}
	return &BlobMapper{s}, nil
}

func (*BlobMapper) isMapper() {}

func (m *BlobMapper) Base(v any) (string, error) {
	switch x := v.(type) {
	case []byte:
		return hex.EncodeToString(x), nil
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		b, err := hex.DecodeString(s)
		if err == nil {
			return hex.EncodeToString(b), nil
		}
	}
	return "", errs.Normalization(m.name, "Field '%s' requires an hex string, but found '%s'", m.name, display(v))
}

func (m *BlobMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *BlobMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *BlobMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *BlobMapper) SortField(reverse bool) (SortField, error) {
	return m.sortField(StringValue, reverse)
}

func (m *BlobMapper) String() string { return fmt.Sprintf("BlobMapper{%s}", m.describe()) }
