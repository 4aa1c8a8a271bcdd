// Package plan defines the query primitives a search engine executes. The
// condition compiler produces them; memindex runs them.
package plan

import (
	"strconv"
	"strings"
)

// Query is a node of an executable query tree.
type Query interface {
	// GetBoost is the score multiplier of the node.
	GetBoost() float64
	String() string
	isQuery()
}

// MatchAll matches every document with a constant score.
type MatchAll struct {
	Boost float64
}

func (MatchAll) isQuery()            {}
func (q MatchAll) GetBoost() float64 { return q.Boost }
func (q MatchAll) String() string    { return "*:*" + boostString(q.Boost) }

// Term matches documents whose field contains exactly Term.
type Term struct {
	Field string
	Term  string
	Boost float64
}

func (Term) isQuery()            {}
func (q Term) GetBoost() float64 { return q.Boost }
func (q Term) String() string    { return q.Field + ":" + q.Term + boostString(q.Boost) }

// TermRange matches terms between Lower and Upper in byte order. A nil bound
// is open.
type TermRange struct {
	Field        string
	Lower        *string
	Upper        *string
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

func (TermRange) isQuery()            {}
func (q TermRange) GetBoost() float64 { return q.Boost }
func (q TermRange) String() string {
	return rangeString(q.Field, q.Lower, q.Upper, q.IncludeLower, q.IncludeUpper, func(s string) string { return s }) + boostString(q.Boost)
}

// LongRange matches long points between Lower and Upper.
type LongRange struct {
	Field        string
	Lower        *int64
	Upper        *int64
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

func (LongRange) isQuery()            {}
func (q LongRange) GetBoost() float64 { return q.Boost }
func (q LongRange) String() string {
	return rangeString(q.Field, q.Lower, q.Upper, q.IncludeLower, q.IncludeUpper, func(n int64) string {
		return strconv.FormatInt(n, 10)
	}) + boostString(q.Boost)
}

// Contains reports whether n lies in the range.
func (q LongRange) Contains(n int64) bool {
	if q.Lower != nil && (n < *q.Lower || (!q.IncludeLower && n == *q.Lower)) {
		return false
	}
	if q.Upper != nil && (n > *q.Upper || (!q.IncludeUpper && n == *q.Upper)) {
		return false
	}
	return true
}

// DoubleRange matches double points between Lower and Upper.
type DoubleRange struct {
	Field        string
	Lower        *float64
	Upper        *float64
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

func (DoubleRange) isQuery()            {}
func (q DoubleRange) GetBoost() float64 { return q.Boost }
func (q DoubleRange) String() string {
	return rangeString(q.Field, q.Lower, q.Upper, q.IncludeLower, q.IncludeUpper, func(f float64) string {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}) + boostString(q.Boost)
}

// Contains reports whether f lies in the range.
func (q DoubleRange) Contains(f float64) bool {
	if q.Lower != nil && (f < *q.Lower || (!q.IncludeLower && f == *q.Lower)) {
		return false
	}
	if q.Upper != nil && (f > *q.Upper || (!q.IncludeUpper && f == *q.Upper)) {
		return false
	}
	return true
}

// Regexp matches terms that the pattern matches in full.
type Regexp struct {
	Field   string
	Pattern string
	Boost   float64
}

func (Regexp) isQuery()            {}
func (q Regexp) GetBoost() float64 { return q.Boost }
func (q Regexp) String() string    { return q.Field + ":/" + q.Pattern + "/" + boostString(q.Boost) }

// Prefix matches terms starting with Prefix.
type Prefix struct {
	Field  string
	Prefix string
	Boost  float64
}

func (Prefix) isQuery()            {}
func (q Prefix) GetBoost() float64 { return q.Boost }
func (q Prefix) String() string    { return q.Field + ":" + q.Prefix + "*" + boostString(q.Boost) }

// Occur says how a clause takes part in a Boolean.
type Occur int

const (
	// Must clauses are required and scored.
	Must Occur = iota
	// Should clauses are optional and scored. A Boolean with no Must or
	// Filter clause needs at least one of them to match.
	Should
	// MustNot clauses exclude documents.
	MustNot
	// Filter clauses are required and not scored.
	Filter
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	case Filter:
		return "#"
	}
	return ""
}

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case Should:
		return "should"
	case MustNot:
		return "must_not"
	case Filter:
		return "filter"
	}
	return "?"
}

// Clause is one member of a Boolean.
type Clause struct {
	Occur Occur
	Query Query
}

// Boolean combines clauses. Documents only excluded by MustNot clauses never
// match, so a purely negative Boolean matches nothing.
type Boolean struct {
	Clauses []Clause
	Boost   float64
}

func (Boolean) isQuery()            {}
func (q Boolean) GetBoost() float64 { return q.Boost }

// Add appends a clause and returns the Boolean.
func (q Boolean) Add(o Occur, sub Query) Boolean {
	q.Clauses = append(q.Clauses[:len(q.Clauses):len(q.Clauses)], Clause{Occur: o, Query: sub})
	return q
}

// Count returns the number of clauses with occur o.
func (q Boolean) Count(o Occur) int {
	n := 0
	for _, c := range q.Clauses {
		if c.Occur == o {
			n++
		}
	}
	return n
}

func (q Boolean) String() string {
	parts := make([]string, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		s := c.Query.String()
		if _, nested := c.Query.(Boolean); nested {
			s = "(" + s + ")"
		}
		parts = append(parts, c.Occur.prefix()+s)
	}
	s := strings.Join(parts, " ")
	if b := boostString(q.Boost); b != "" {
		return "(" + s + ")" + b
	}
	return s
}

// ConstantScore matches what Query matches and scores every match Boost.
type ConstantScore struct {
	Query Query
	Boost float64
}

func (ConstantScore) isQuery()            {}
func (q ConstantScore) GetBoost() float64 { return q.Boost }
func (q ConstantScore) String() string {
	return "ConstantScore(" + q.Query.String() + ")" + boostString(q.Boost)
}

// GeoDistance matches documents whose point, stored as the Field+".lat" and
// Field+".lon" doc values, lies between MinDistance and MaxDistance meters
// from the center.
type GeoDistance struct {
	Field       string
	Latitude    float64
	Longitude   float64
	MinDistance float64
	MaxDistance float64
	Boost       float64
}

func (GeoDistance) isQuery()            {}
func (q GeoDistance) GetBoost() float64 { return q.Boost }
func (q GeoDistance) String() string {
	return "GeoDistance(" + q.Field +
		", latitude=" + strconv.FormatFloat(q.Latitude, 'g', -1, 64) +
		", longitude=" + strconv.FormatFloat(q.Longitude, 'g', -1, 64) +
		", min=" + strconv.FormatFloat(q.MinDistance, 'g', -1, 64) + "m" +
		", max=" + strconv.FormatFloat(q.MaxDistance, 'g', -1, 64) + "m)" + boostString(q.Boost)
}

func boostString(b float64) string {
	if b == 1 {
		return ""
	}
	s := strconv.FormatFloat(b, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return "^" + s
}

func rangeString[T any](field string, lower, upper *T, incLower, incUpper bool, format func(T) string) string {
	var b strings.Builder
	b.WriteString(field)
	b.WriteByte(':')
	if incLower {
		b.WriteByte('[')
	} else {
		b.WriteByte('{')
	}
	if lower == nil {
		b.WriteByte('*')
	} else {
		b.WriteString(format(*lower))
	}
	b.WriteString(" TO ")
	if upper == nil {
		b.WriteByte('*')
	} else {
		b.WriteString(format(*upper))
	}
	if incUpper {
		b.WriteByte(']')
	} else {
		b.WriteByte('}')
	}
	return b.String()
}

// Ptr returns a pointer to v, for building range bounds.
func Ptr[T any](v T) *T { return &v }

// Terms returns the term queries of q, walking booleans and constant
// score wrappers, in the order they appear.
func Terms(q Query) []Term {
	var out []Term
	var walk func(Query)
	walk = func(q Query) {
		switch x := q.(type) {
		case Term:
			out = append(out, x)
		case ConstantScore:
			walk(x.Query)
		case Boolean:
			for _, c := range x.Clauses {
				walk(c.Query)
			}
		}
	}
	walk(q)
	return out
}
