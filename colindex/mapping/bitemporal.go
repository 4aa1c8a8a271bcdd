package mapping

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/colindex/colindex/colindex/dateparse"
	"github.com/colindex/colindex/colindex/errs"
)

// Sub-field suffixes of the bitemporal points.
const (
	VtFromSuffix = ".vt_from"
	VtToSuffix   = ".vt_to"
	TtFromSuffix = ".tt_from"
	TtToSuffix   = ".tt_to"
)

// Open is the instant, in epoch millis, that stands for "still valid".
const Open int64 = math.MaxInt64

// BitemporalOptions configures a bitemporal mapper. The four column names are
// required.
type BitemporalOptions struct {
	VtFrom  string
	VtTo    string
	TtFrom  string
	TtTo    string
	Pattern string
	// NowValue is the stored value that marks an open-ended period. Cells
	// holding it are indexed as Open.
	NowValue any
}

// BitemporalMapper maps the valid time and transaction time periods stored
// in four columns to four long points.
type BitemporalMapper struct {
	name    string
	columns [4]string
	parser  *dateparse.Parser
	now     int64
	types   []NativeType
}

// Instants is one row's bitemporal periods in epoch millis.
type Instants struct {
	VtFrom, VtTo, TtFrom, TtTo int64
}

func NewBitemporalMapper(name string, opts BitemporalOptions) (*BitemporalMapper, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Configuration("%s mapper requires a name", KindBitemporal)
	}
	cols := [4]string{opts.VtFrom, opts.VtTo, opts.TtFrom, opts.TtTo}
	for i, label := range []string{"vt_from", "vt_to", "tt_from", "tt_to"} {
		if strings.TrimSpace(cols[i]) == "" {
			return nil, errs.Configuration("%s column name is required", label)
		}
	}
	p, err := dateparse.New(opts.Pattern)
	if err != nil {
		return nil, err
	}
	m := &BitemporalMapper{
		name:    name,
		columns: cols,
		parser:  p,
		now:     Open,
		types:   typeSet(textTypes, []NativeType{NativeTimestamp, NativeDate, NativeBigint, NativeInt}),
	}
	if opts.NowValue != nil {
		t, ok, err := p.Parse(opts.NowValue)
		if err != nil || !ok {
			return nil, errs.Configuration("now_value '%v' does not match pattern '%s'", opts.NowValue, p.Pattern())
		}
		m.now = t.UnixMilli()
	}
	return m, nil
}

func (*BitemporalMapper) isMapper() {}

func (m *BitemporalMapper) Name() string      { return m.name }
func (m *BitemporalMapper) Kind() Kind        { return KindBitemporal }
func (m *BitemporalMapper) Indexed() bool     { return true }
func (m *BitemporalMapper) Sorted() bool      { return false }
func (m *BitemporalMapper) Columns() []string { return m.columns[:] }
func (m *BitemporalMapper) Pattern() string   { return m.parser.Pattern() }

// NowValue returns the instant, in epoch millis, that marks an open period.
func (m *BitemporalMapper) NowValue() int64 { return m.now }

func (m *BitemporalMapper) Supports(t NativeType) bool {
	return t == "" || slices.Contains(m.types, t)
}

// Parse converts a date value to epoch millis, mapping the now value to Open.
func (m *BitemporalMapper) Parse(v any) (int64, error) {
	t, ok, err := m.parser.Parse(v)
	if err != nil || !ok {
		return 0, errs.Normalization(m.name, "Field '%s' requires a date, but found '%s'", m.name, display(v))
	}
	millis := t.UnixMilli()
	if millis == m.now {
		return Open, nil
	}
	return millis, nil
}

func (m *BitemporalMapper) Normalize(column string, v any) (any, error) {
	if !slices.Contains(m.columns[:], column) {
		return nil, errs.Normalization(m.name, "Mapper '%s' does not read column '%s'", m.name, column)
	}
	return m.Parse(v)
}

// Instants reads a row's periods. ok is false when the row has none of the
// four columns.
func (m *BitemporalMapper) Instants(row Columns) (in Instants, ok bool, err error) {
	var present int
	for _, c := range m.columns {
		if row.ValueOf(c) != nil {
			present++
		}
	}
	if present == 0 {
		return Instants{}, false, nil
	}
	var vals [4]int64
	for i, c := range m.columns {
		col, _ := row.Get(c)
		if col.Value == nil {
			return Instants{}, false, errs.Normalization(m.name, "Column '%s' required by bitemporal mapper '%s'", c, m.name)
		}
		if !m.Supports(col.Type) {
			return Instants{}, false, unsupportedType(m.name, col)
		}
		if vals[i], err = m.Parse(col.Value); err != nil {
			return Instants{}, false, err
		}
	}
	in = Instants{VtFrom: vals[0], VtTo: vals[1], TtFrom: vals[2], TtTo: vals[3]}
	if in.VtFrom > in.VtTo {
		return Instants{}, false, errs.Normalization(m.name, "vt_from:'%s' is after vt_to:'%s'", m.format(in.VtFrom), m.format(in.VtTo))
	}
	if in.TtFrom > in.TtTo {
		return Instants{}, false, errs.Normalization(m.name, "tt_from:'%s' is after tt_to:'%s'", m.format(in.TtFrom), m.format(in.TtTo))
	}
	return in, true, nil
}

func (m *BitemporalMapper) format(millis int64) string {
	if millis == Open {
		return "now"
	}
	return strconv.FormatInt(millis, 10)
}

func (m *BitemporalMapper) Fields(row Columns) ([]Field, error) {
	in, ok, err := m.Instants(row)
	if err != nil || !ok {
		return nil, err
	}
	return []Field{
		{Name: m.name + VtFromSuffix, Value: LongOf(in.VtFrom), Indexed: true},
		{Name: m.name + VtToSuffix, Value: LongOf(in.VtTo), Indexed: true},
		{Name: m.name + TtFromSuffix, Value: LongOf(in.TtFrom), Indexed: true},
		{Name: m.name + TtToSuffix, Value: LongOf(in.TtTo), Indexed: true},
	}, nil
}

func (m *BitemporalMapper) SortField(bool) (SortField, error) {
	return SortField{}, errs.Unsupported(m.name, "Bitemporal mapper '%s' does not support sorting", m.name)
}

func (m *BitemporalMapper) String() string {
	return fmt.Sprintf("BitemporalMapper{field=%s, vt_from=%s, vt_to=%s, tt_from=%s, tt_to=%s, pattern=%s}",
		m.name, m.columns[0], m.columns[1], m.columns[2], m.columns[3], m.parser.Pattern())
}
