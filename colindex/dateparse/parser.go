// Package dateparse parses column values into instants using the date
// patterns accepted in schema configurations (yyyy/MM/dd style), or the
// special pattern "timestamp" for epoch milliseconds.
package dateparse

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/colindex/colindex/colindex/errs"
)

const (
	// DefaultPattern is used when a mapper declares no pattern.
	DefaultPattern = "yyyy/MM/dd HH:mm:ss.SSS Z"
	// TimestampPattern parses integers and integer strings as epoch millis.
	TimestampPattern = "timestamp"
)

// Parser is immutable and safe for concurrent use.
type Parser struct {
	pattern   string
	layout    string
	timestamp bool
}

// New compiles pattern. An empty pattern selects DefaultPattern.
func New(pattern string) (*Parser, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if pattern == TimestampPattern {
		return &Parser{pattern: pattern, timestamp: true}, nil
	}
	layout, err := toLayout(pattern)
	if err != nil {
		return nil, err
	}
	return &Parser{pattern: pattern, layout: layout}, nil
}

// Pattern returns the pattern the parser was built with.
func (p *Parser) Pattern() string { return p.pattern }

// Parse converts value to an instant. A nil value yields ok=false and no
// error. Instants are interpreted in UTC unless the pattern carries a zone.
func (p *Parser) Parse(value any) (t time.Time, ok bool, err error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v, true, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, false, nil
		}
		return *v, true, nil
	case string:
		return p.parseString(v)
	case float32, float64:
		f := reflect.ValueOf(v).Float()
		if !p.timestamp || f != math.Trunc(f) {
			return time.Time{}, false, p.invalid(v)
		}
		return time.UnixMilli(int64(f)).UTC(), true, nil
	case bool:
		return time.Time{}, false, p.invalid(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return p.parseInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return time.Time{}, false, p.invalid(value)
		}
		return p.parseInt(int64(u))
	case reflect.String:
		return p.parseString(rv.String())
	case reflect.Ptr:
		if rv.IsNil() {
			return time.Time{}, false, nil
		}
		return p.Parse(rv.Elem().Interface())
	}
	return time.Time{}, false, p.invalid(value)
}

// Format renders t with the parser's pattern.
func (p *Parser) Format(t time.Time) string {
	if p.timestamp {
		return strconv.FormatInt(t.UnixMilli(), 10)
	}
	return t.UTC().Format(p.layout)
}

func (p *Parser) parseInt(n int64) (time.Time, bool, error) {
	if p.timestamp {
		return time.UnixMilli(n).UTC(), true, nil
	}
	return p.parseString(strconv.FormatInt(n, 10))
}

func (p *Parser) parseString(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if p.timestamp {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false, p.invalid(s)
		}
		return time.UnixMilli(n).UTC(), true, nil
	}
	t, err := time.ParseInLocation(p.layout, s, time.UTC)
	if err != nil {
		return time.Time{}, false, errs.Wrap(errs.ErrNormalization,
			fmt.Sprintf("Unparseable date '%s' with pattern '%s'", s, p.pattern), err)
	}
	return t, true, nil
}

func (p *Parser) invalid(value any) error {
	return errs.Newf(errs.ErrNormalization, "Unparseable date '%v' with pattern '%s'", value, p.pattern)
}

// layoutTokens maps pattern letters, longest first, to Go layout chunks.
var layoutTokens = []struct {
	pattern string
	layout  string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
	{"XXX", "Z07:00"},
	{"Z", "-0700"},
	{"z", "MST"},
}

func toLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", errs.Configuration("unterminated quote in date pattern '%s'", pattern)
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			matched := false
			for _, tok := range layoutTokens {
				if strings.HasPrefix(pattern[i:], tok.pattern) {
					b.WriteString(tok.layout)
					i += len(tok.pattern)
					matched = true
					break
				}
			}
			if !matched {
				return "", errs.Configuration("unsupported letter '%c' in date pattern '%s'", c, pattern)
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}
