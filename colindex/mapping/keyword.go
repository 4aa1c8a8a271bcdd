package mapping

import (
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colindex/colindex/colindex/errs"
)

// KeywordOptions configures the string, inet and uuid mappers.
type KeywordOptions struct {
	Column  string
	Indexed *bool
	Sorted  *bool
	// CaseSensitive applies to the string mapper only. Default true.
	CaseSensitive *bool
}

// keyword mappers index their base value as one untokenized term, which is
// also their sort value.
type keyword struct {
	single
}

func (k *keyword) sort(reverse bool) (SortField, error) { return k.sortField(StringValue, reverse) }

// StringMapper indexes the textual form of a value as a single term.
type StringMapper struct {
	keyword
	caseSensitive bool
}

func NewStringMapper(name string, opts KeywordOptions) (*StringMapper, error) {
	types := typeSet(textTypes, integerTypes, decimalTypes,
		[]NativeType{NativeBoolean, NativeUUID, NativeTimeUUID, NativeInet, NativeTimestamp, NativeDate})
	s, err := newSingle(KindString, name, opts.Column, opts.Indexed, opts.Sorted, types)
	if err != nil {
		return nil, err
	}
	m := &StringMapper{keyword: keyword{s}, caseSensitive: true}
	if opts.CaseSensitive != nil {
		m.caseSensitive = *opts.CaseSensitive
	}
	return m, nil
}

func (*StringMapper) isMapper() {}

func (m *StringMapper) CaseSensitive() bool { return m.caseSensitive }

func (m *StringMapper) Base(v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		return "", errs.Normalization(m.name, "Field '%s' requires a string, but found '%s'", m.name, display(v))
	case time.Time:
		s = x.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		if x == nil {
			return "", errs.Normalization(m.name, "Field '%s' requires a string, but found '%s'", m.name, display(v))
		}
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'g', -1, 32)
	case fmt.Stringer:
		s = x.String()
	case nil:
		return "", errs.Normalization(m.name, "Field '%s' requires a string, but found '%s'", m.name, display(v))
	default:
		s = fmt.Sprint(x)
	}
	if !m.caseSensitive {
		s = strings.ToLower(s)
	}
	return s, nil
}

func (m *StringMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *StringMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *StringMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *StringMapper) SortField(reverse bool) (SortField, error) { return m.sort(reverse) }

func (m *StringMapper) String() string {
	return fmt.Sprintf("StringMapper{%s}", m.describe("case_sensitive="+strconv.FormatBool(m.caseSensitive)))
}

// InetMapper indexes IP addresses in their canonical textual form.
type InetMapper struct{ keyword }

func NewInetMapper(name string, opts KeywordOptions) (*InetMapper, error) {
	s, err := newSingle(KindInet, name, opts.Column, opts.Indexed, opts.Sorted,
		typeSet(textTypes, []NativeType{NativeInet}))
	if err != nil {
		return nil, err
	}
	return &InetMapper{keyword{s}}, nil
}

func (*InetMapper) isMapper() {}

func (m *InetMapper) Base(v any) (string, error) {
	switch x := v.(type) {
	case netip.Addr:
		if x.IsValid() {
			return x.Unmap().String(), nil
		}
	case net.IP:
		if addr, ok := netip.AddrFromSlice(x); ok {
			return addr.Unmap().String(), nil
		}
	case string:
		if addr, err := netip.ParseAddr(strings.TrimSpace(x)); err == nil {
			return addr.Unmap().String(), nil
		}
	}
	return "", errs.Normalization(m.name, "Field '%s' requires an inet address, but found '%s'", m.name, display(v))
}

func (m *InetMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *InetMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *InetMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *InetMapper) SortField(reverse bool) (SortField, error) { return m.sort(reverse) }

func (m *InetMapper) String() string { return fmt.Sprintf("InetMapper{%s}", m.describe()) }

// UUIDMapper indexes UUIDs in their canonical lower-case form.
type UUIDMapper struct{ keyword }

func NewUUIDMapper(name string, opts KeywordOptions) (*UUIDMapper, error) {
	s, err := newSingle(KindUUID, name, opts.Column, opts.Indexed, opts.Sorted,
		typeSet(textTypes, []NativeType{NativeUUID, NativeTimeUUID}))
	if err != nil {
		return nil, err
	}
	return &UUIDMapper{keyword{s}}, nil
}

func (*UUIDMapper) isMapper() {}

func (m *UUIDMapper) Base(v any) (string, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String(), nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case string:
		if id, err := uuid.Parse(strings.TrimSpace(x)); err == nil {
			return id.String(), nil
		}
	}
	return "", errs.Normalization(m.name, "Field '%s' requires an UUID, but found '%s'", m.name, display(v))
}

func (m *UUIDMapper) Normalize(column string, v any) (any, error) {
	if err := m.checkName(column); err != nil {
		return nil, err
	}
	return m.Base(v)
}

func (m *UUIDMapper) Term(v any) (Value, error) {
	s, err := m.Base(v)
	if err != nil {
		return Value{}, err
	}
	return StringOf(s), nil
}

func (m *UUIDMapper) Fields(row Columns) ([]Field, error) { return m.fields(row, m.Term) }

func (m *UUIDMapper) SortField(reverse bool) (SortField, error) { return m.sort(reverse) }

func (m *UUIDMapper) String() string { return fmt.Sprintf("UUIDMapper{%s}", m.describe()) }
