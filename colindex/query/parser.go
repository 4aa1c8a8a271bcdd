// Package query parses the compact where syntax into condition trees:
//
//	city:madrid AND age>=30 AND NOT name:bo*
//	(city:rome OR city:paris^2) AND created>-7d
//	age:20..30 has:email
//
// field:value matches a term, with * and ? making it a prefix or wildcard
// condition. field:lo..hi is an inclusive range where * leaves a bound
// open, and the comparison operators build one-sided ranges. Relative
// instants such as -7d resolve against the date field's pattern. A bare
// term searches the default field. Adjacent terms are joined by AND.
package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colindex/colindex/colindex/condition"
	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/mapping"
)

// Option configures Parse.
type Option func(*parser)

// WithSchema lets relative dates resolve against date field patterns.
func WithSchema(s *mapping.Schema) Option {
	return func(p *parser) { p.schema = s }
}

// WithDefaultField names the field bare terms search.
func WithDefaultField(field string) Option {
	return func(p *parser) { p.defaultField = field }
}

// WithNow fixes the instant relative dates are measured from.
func WithNow(now time.Time) Option {
	return func(p *parser) { p.now = now }
}

// Parse parses a where expression. An empty expression matches every row.
func Parse(input string, opts ...Option) (condition.Condition, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, now: time.Now()}
	for _, opt := range opts {
		opt(p)
	}
	if p.match(TokEOF) {
		return condition.All{}, nil
	}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, p.errorf("unexpected %s", p.current())
	}
	return c, nil
}

type parser struct {
	tokens       []Token
	pos          int
	schema       *mapping.Schema
	defaultField string
	now          time.Time
}

func (p *parser) parseOr() (condition.Condition, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	should := []condition.Condition{first}
	for p.match(TokOr) {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		should = append(should, next)
	}
	if len(should) == 1 {
		return first, nil
	}
	return condition.Boolean{Should: should}, nil
}

// parseAnd joins operands by explicit AND or juxtaposition. Negated
// operands become the not clauses of the conjunction.
func (p *parser) parseAnd() (condition.Condition, error) {
	var must, not []condition.Condition
	for {
		negated, c, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if negated {
			not = append(not, c)
		} else {
			must = append(must, c)
		}

		if p.match(TokAnd) {
			p.advance()
			continue
		}
		if p.startsOperand() {
			continue
		}
		break
	}
	if len(must) == 1 && len(not) == 0 {
		return must[0], nil
	}
	return condition.Boolean{Must: must, Not: not}, nil
}

func (p *parser) startsOperand() bool {
	switch p.current().Kind {
	case TokIdent, TokString, TokNumber, TokNot, TokLParen:
		return true
	}
	return false
}

// parseNot returns the operand and whether it was negated.
func (p *parser) parseNot() (bool, condition.Condition, error) {
	if !p.match(TokNot) {
		c, err := p.parsePrimary()
		return false, c, err
	}
	p.advance()

	// NOT archived is archived:false when archived stands alone.
	if p.match(TokIdent) && !isFielded(p.peek(1).Kind) {
		field := p.current().Value
		p.advance()
		return false, condition.Match{Field: field, Value: false}, nil
	}

	negated, inner, err := p.parseNot()
	if err != nil {
		return false, nil, err
	}
	return !negated, inner, nil
}

func isFielded(k TokenKind) bool {
	switch k {
	case TokColon, TokGt, TokGte, TokLt, TokLte:
		return true
	}
	return false
}

func (p *parser) parsePrimary() (condition.Condition, error) {
	var c condition.Condition
	var err error
	if p.match(TokLParen) {
		p.advance()
		if c, err = p.parseOr(); err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, p.errorf("expected ')', got %s", p.current())
		}
		p.advance()
	} else if c, err = p.parsePredicate(); err != nil {
		return nil, err
	}
	return p.parseBoost(c)
}

func (p *parser) parseBoost(c condition.Condition) (condition.Condition, error) {
	if !p.match(TokCaret) {
		return c, nil
	}
	p.advance()
	if !p.match(TokNumber) {
		return nil, p.errorf("expected boost after '^', got %s", p.current())
	}
	boost, err := strconv.ParseFloat(p.current().Value, 64)
	if err != nil || boost <= 0 {
		return nil, p.errorf("invalid boost %s", p.current())
	}
	p.advance()
	return withBoost(c, boost), nil
}

func (p *parser) parsePredicate() (condition.Condition, error) {
	tok := p.current()
	switch tok.Kind {
	case TokIdent, TokString, TokNumber:
	case TokEOF:
		return nil, p.errorf("unexpected end of query")
	default:
		return nil, p.errorf("expected term, got %s", tok)
	}
	p.advance()

	switch {
	case p.match(TokColon):
		p.advance()
		if tok.Value == "has" && tok.Kind == TokIdent {
			field, err := p.expectValue()
			if err != nil {
				return nil, err
			}
			return condition.Range{Field: field.Value}, nil
		}
		return p.parseFieldPredicate(tok.Value)
	case p.match(TokGt), p.match(TokGte), p.match(TokLt), p.match(TokLte):
		return p.parseComparison(tok.Value)
	case p.match(TokDotDot):
		return nil, p.errorf("range requires field:start..end notation")
	}

	if p.defaultField == "" {
		return nil, p.errorf("term %s needs a field", tok)
	}
	return termCondition(p.defaultField, tok), nil
}

func (p *parser) parseFieldPredicate(field string) (condition.Condition, error) {
	lo, err := p.expectValue()
	if err != nil {
		return nil, err
	}
	if !p.match(TokDotDot) {
		return termCondition(field, lo), nil
	}
	p.advance()
	hi, err := p.expectValue()
	if err != nil {
		return nil, err
	}
	lower, err := p.bound(field, lo)
	if err != nil {
		return nil, err
	}
	upper, err := p.bound(field, hi)
	if err != nil {
		return nil, err
	}
	return condition.Range{Field: field, Lower: lower, Upper: upper, IncludeLower: true, IncludeUpper: true}, nil
}

func (p *parser) parseComparison(field string) (condition.Condition, error) {
	op := p.current().Kind
	p.advance()
	tok, err := p.expectValue()
	if err != nil {
		return nil, err
	}
	v, err := p.bound(field, tok)
	if err != nil {
		return nil, err
	}
	r := condition.Range{Field: field}
	switch op {
	case TokGt, TokGte:
		r.Lower, r.IncludeLower = v, op == TokGte
	default:
		r.Upper, r.IncludeUpper = v, op == TokLte
	}
	return r, nil
}

// bound converts a range bound token. A bare * is an open bound and
// relative durations resolve to instants.
func (p *parser) bound(field string, tok Token) (any, error) {
	if tok.Kind == TokIdent && tok.Value == "*" {
		return nil, nil
	}
	if tok.Kind == TokIdent {
		if d, ok := parseRelativeDuration(tok.Value); ok {
			return p.relativeDate(field, tok, d)
		}
	}
	return value(tok), nil
}

func (p *parser) relativeDate(field string, tok Token, d time.Duration) (any, error) {
	if p.schema == nil {
		return nil, p.errorf("relative date %s on '%s' needs a schema", tok, field)
	}
	m, err := p.schema.Mapper(field)
	if err != nil {
		return nil, err
	}
	dm, ok := m.(*mapping.DateMapper)
	if !ok {
		return nil, errs.MapperMismatch(field, "date", string(m.Kind()))
	}
	return dm.Format(p.now.Add(d)), nil
}

func (p *parser) current() Token {
	return p.peek(0)
}

func (p *parser) peek(offset int) Token {
	if pos := p.pos + offset; pos < len(p.tokens) {
		return p.tokens[pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) expectValue() (Token, error) {
	tok := p.current()
	switch tok.Kind {
	case TokIdent, TokString, TokNumber:
		p.advance()
		return tok, nil
	}
	return Token{}, p.errorf("expected value, got %s", tok)
}

func (p *parser) errorf(format string, args ...any) error {
	return errs.New(errs.ErrQueryParse, fmt.Sprintf(format, args...)+" at "+strconv.Itoa(p.current().Pos))
}

// termCondition builds the condition for field:value. Unquoted values
// holding * or ? are patterns.
func termCondition(field string, tok Token) condition.Condition {
	if tok.Kind != TokIdent {
		return condition.Match{Field: field, Value: value(tok)}
	}
	s := tok.Value
	switch classifyPattern(s) {
	case patternPrefix:
		return condition.Prefix{Field: field, Value: strings.TrimSuffix(s, "*")}
	case patternWildcard:
		return condition.Wildcard{Field: field, Value: s}
	}
	return condition.Match{Field: field, Value: s}
}

// value keeps numbers as json.Number so mappers read them exactly.
func value(tok Token) any {
	if tok.Kind == TokNumber {
		return json.Number(tok.Value)
	}
	return tok.Value
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
)

func classifyPattern(s string) patternKind {
	if !strings.ContainsAny(s, "*?") {
		return patternExact
	}
	if strings.Count(s, "*") == 1 && strings.HasSuffix(s, "*") && !strings.Contains(s, "?") && len(s) > 1 {
		return patternPrefix
	}
	return patternWildcard
}

// parseRelativeDuration reads offsets from now such as 7d or -2w.
// Months and years are 30 and 365 days.
func parseRelativeDuration(s string) (time.Duration, bool) {
	sign := time.Duration(1)
	if strings.HasPrefix(s, "-") {
		sign, s = -1, s[1:]
	}
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return 0, false
	}
	amount, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, false
	}

	const day = 24 * time.Hour
	var unit time.Duration
	switch strings.ToLower(s[i:]) {
	case "h", "hour", "hours":
		unit = time.Hour
	case "d", "day", "days":
		unit = day
	case "w", "week", "weeks":
		unit = 7 * day
	case "m", "month", "months":
		unit = 30 * day
	case "y", "year", "years":
		unit = 365 * day
	default:
		return 0, false
	}
	return sign * time.Duration(amount) * unit, true
}

// withBoost returns c with its boost replaced.
func withBoost(c condition.Condition, boost float64) condition.Condition {
	switch x := c.(type) {
	case condition.All:
		x.Boost = boost
		return x
	case condition.Boolean:
		x.Boost = boost
		return x
	case condition.Range:
		x.Boost = boost
		return x
	case condition.Match:
		x.Boost = boost
		return x
	case condition.Prefix:
		x.Boost = boost
		return x
	case condition.Wildcard:
		x.Boost = boost
		return x
	}
	return c
}
