// Package condition defines the declarative search conditions and compiles
// them against a schema into plan queries.
package condition

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// DefaultBoost is the boost of a condition that declares none. A zero Boost
// field is read as DefaultBoost.
const DefaultBoost = 1.0

// Condition is a node of a search condition tree.
type Condition interface {
	// GetBoost returns the effective boost.
	GetBoost() float64
	String() string
	isCondition()
}

func boostOf(b float64) float64 {
	if b == 0 {
		return DefaultBoost
	}
	return b
}

// All matches every row.
type All struct {
	Boost float64
}

func (All) isCondition()                   {}
func (c All) GetBoost() float64            { return boostOf(c.Boost) }
func (c All) String() string               { return "AllCondition{boost=" + formatBoost(c.GetBoost()) + "}" }
func (c All) MarshalJSON() ([]byte, error) { return marshal(c) }

// Boolean combines sub-conditions. Rows must match every Must condition and
// no Not condition. Should conditions add to the score, and at least one of
// them must match when there are no Must conditions.
type Boolean struct {
	Must   []Condition
	Should []Condition
	Not    []Condition
	Boost  float64
}

func (Boolean) isCondition()        {}
func (c Boolean) GetBoost() float64 { return boostOf(c.Boost) }
func (c Boolean) String() string {
	return fmt.Sprintf("BooleanCondition{boost=%s, must=%s, should=%s, not=%s}",
		formatBoost(c.GetBoost()), listString(c.Must), listString(c.Should), listString(c.Not))
}
func (c Boolean) MarshalJSON() ([]byte, error) { return marshal(c) }

// PureNegation reports whether c only excludes rows.
func (c Boolean) PureNegation() bool {
	return len(c.Must) == 0 && len(c.Should) == 0 && len(c.Not) > 0
}

// Range matches values between Lower and Upper. A nil bound is open.
type Range struct {
	Field        string
	Lower        any
	Upper        any
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

func (Range) isCondition()        {}
func (c Range) GetBoost() float64 { return boostOf(c.Boost) }
func (c Range) String() string {
	return fmt.Sprintf("RangeCondition{boost=%s, field=%s, lower=%s, upper=%s, includeLower=%t, includeUpper=%t}",
		formatBoost(c.GetBoost()), c.Field, display(c.Lower), display(c.Upper), c.IncludeLower, c.IncludeUpper)
}
func (c Range) MarshalJSON() ([]byte, error) { return marshal(c) }

// Contains matches rows whose field equals any of Values.
type Contains struct {
	Field  string
	Values []any
	Boost  float64
}

func (Contains) isCondition()        {}
func (c Contains) GetBoost() float64 { return boostOf(c.Boost) }
func (c Contains) String() string {
	vals := make([]string, len(c.Values))
	for i, v := range c.Values {
		vals[i] = display(v)
	}
	return fmt.Sprintf("ContainsCondition{boost=%s, field=%s, values=[%s]}",
		formatBoost(c.GetBoost()), c.Field, strings.Join(vals, ", "))
}
func (c Contains) MarshalJSON() ([]byte, error) { return marshal(c) }

// Match matches rows whose field equals Value.
type Match struct {
	Field string
	Value any
	Boost float64
}

func (Match) isCondition()        {}
func (c Match) GetBoost() float64 { return boostOf(c.Boost) }
func (c Match) String() string {
	return fmt.Sprintf("MatchCondition{boost=%s, field=%s, value=%s}", formatBoost(c.GetBoost()), c.Field, display(c.Value))
}
func (c Match) MarshalJSON() ([]byte, error) { return marshal(c) }

// Regexp matches rows whose whole term matches the regular expression Value.
type Regexp struct {
	Field string
	Value string
	Boost float64
}

func (Regexp) isCondition()        {}
func (c Regexp) GetBoost() float64 { return boostOf(c.Boost) }
func (c Regexp) String() string {
	return fmt.Sprintf("RegexpCondition{boost=%s, field=%s, value=%s}", formatBoost(c.GetBoost()), c.Field, c.Value)
}
func (c Regexp) MarshalJSON() ([]byte, error) { return marshal(c) }

// Prefix matches rows whose term starts with Value.
type Prefix struct {
	Field string
	Value string
	Boost float64
}

func (Prefix) isCondition()        {}
func (c Prefix) GetBoost() float64 { return boostOf(c.Boost) }
func (c Prefix) String() string {
	return fmt.Sprintf("PrefixCondition{boost=%s, field=%s, value=%s}", formatBoost(c.GetBoost()), c.Field, c.Value)
}
func (c Prefix) MarshalJSON() ([]byte, error) { return marshal(c) }

// Wildcard matches terms against a pattern where * is any sequence and ? any
// single character.
type Wildcard struct {
	Field string
	Value string
	Boost float64
}

func (Wildcard) isCondition()        {}
func (c Wildcard) GetBoost() float64 { return boostOf(c.Boost) }
func (c Wildcard) String() string {
	return fmt.Sprintf("WildcardCondition{boost=%s, field=%s, value=%s}", formatBoost(c.GetBoost()), c.Field, c.Value)
}
func (c Wildcard) MarshalJSON() ([]byte, error) { return marshal(c) }

// GeoBBox matches points inside a latitude/longitude box.
type GeoBBox struct {
	Field        string
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
	Boost        float64
}

func (GeoBBox) isCondition()        {}
func (c GeoBBox) GetBoost() float64 { return boostOf(c.Boost) }
func (c GeoBBox) String() string {
	return fmt.Sprintf("GeoBBoxCondition{boost=%s, field=%s, minLatitude=%s, maxLatitude=%s, minLongitude=%s, maxLongitude=%s}",
		formatBoost(c.GetBoost()), c.Field,
		formatDouble(c.MinLatitude), formatDouble(c.MaxLatitude), formatDouble(c.MinLongitude), formatDouble(c.MaxLongitude))
}
func (c GeoBBox) MarshalJSON() ([]byte, error) { return marshal(c) }

// GeoDistance matches points whose distance to the center lies between
// MinDistance and MaxDistance. Distances are strings such as "10km".
type GeoDistance struct {
	Field       string
	Latitude    float64
	Longitude   float64
	MaxDistance string
	MinDistance string
	Boost       float64
}

func (GeoDistance) isCondition()        {}
func (c GeoDistance) GetBoost() float64 { return boostOf(c.Boost) }
func (c GeoDistance) String() string {
	return fmt.Sprintf("GeoDistanceCondition{boost=%s, field=%s, latitude=%s, longitude=%s, minDistance=%s, maxDistance=%s}",
		formatBoost(c.GetBoost()), c.Field, formatDouble(c.Latitude), formatDouble(c.Longitude),
		orNull(c.MinDistance), orNull(c.MaxDistance))
}
func (c GeoDistance) MarshalJSON() ([]byte, error) { return marshal(c) }

// Bitemporal operations.
const (
	OpIntersects = "intersects"
	OpContains   = "contains"
	OpIsWithin   = "is_within"
)

// Bitemporal matches rows whose valid time and transaction time periods
// relate to the given periods by Operation. Nil bounds are open.
type Bitemporal struct {
	Field     string
	VtFrom    any
	VtTo      any
	TtFrom    any
	TtTo      any
	Operation string
	Boost     float64
}

func (Bitemporal) isCondition()        {}
func (c Bitemporal) GetBoost() float64 { return boostOf(c.Boost) }

// Op returns the operation, defaulting to intersects.
func (c Bitemporal) Op() string {
	if c.Operation == "" {
		return OpIntersects
	}
	return strings.ToLower(c.Operation)
}

func (c Bitemporal) String() string {
	return fmt.Sprintf("BitemporalCondition{boost=%s, field=%s, vtFrom=%s, vtTo=%s, ttFrom=%s, ttTo=%s, operation=%s}",
		formatBoost(c.GetBoost()), c.Field, display(c.VtFrom), display(c.VtTo), display(c.TtFrom), display(c.TtTo), c.Op())
}
func (c Bitemporal) MarshalJSON() ([]byte, error) { return marshal(c) }

func listString(cs []Condition) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatBoost(b float64) string { return formatDouble(b) }

func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case *big.Int:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}
