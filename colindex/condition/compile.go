package condition

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/geo"
	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
)

// CompileOutput is the result of compiling a condition tree.
type CompileOutput struct {
	Query        plan.Query
	ExplainSteps []string
	// PureNegations counts the Boolean conditions that were given a
	// match-all clause because they only excluded rows.
	PureNegations int
}

// Option configures a compilation.
type Option func(*Compiler)

// WithLogger sets the logger that receives compilation warnings.
func WithLogger(l *logging.Logger) Option {
	return func(c *Compiler) { c.logger = logging.OrNoop(l) }
}

// WithContext sets the context passed to the logger.
func WithContext(ctx context.Context) Option {
	return func(c *Compiler) { c.ctx = ctx }
}

// Compiler turns conditions into plan queries against one schema. A
// Compiler is used for a single compilation.
type Compiler struct {
	schema        *mapping.Schema
	logger        *logging.Logger
	ctx           context.Context
	explainSteps  []string
	pureNegations int
}

// Compile compiles cond against schema. It fails without a partial result
// when any node can not be compiled.
func Compile(schema *mapping.Schema, cond Condition, opts ...Option) (*CompileOutput, error) {
	c := &Compiler{
		schema: schema,
		logger: logging.NoopLogger(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cond == nil {
		return nil, errs.QueryParse("condition required")
	}

	q, err := c.compile(cond)
	c.logger.LogCompile(c.ctx, len(c.explainSteps), err)
	if err != nil {
		return nil, err
	}
	return &CompileOutput{
		Query:         q,
		ExplainSteps:  c.explainSteps,
		PureNegations: c.pureNegations,
	}, nil
}

func (c *Compiler) explain(format string, args ...any) {
	c.explainSteps = append(c.explainSteps, fmt.Sprintf(format, args...))
}

func (c *Compiler) compile(cond Condition) (plan.Query, error) {
	switch x := cond.(type) {
	case All:
		c.explain("MATCH_ALL")
		return plan.MatchAll{Boost: x.GetBoost()}, nil
	case Boolean:
		return c.compileBoolean(x)
	case Range:
		return c.compileRange(x)
	case Contains:
		return c.compileContains(x)
	case Match:
		return c.compileMatch(x)
	case Regexp:
		return c.compileRegexp(x)
	case Prefix:
		return c.compilePrefix(x)
	case Wildcard:
		return c.compileWildcard(x)
	case GeoBBox:
		return c.compileGeoBBox(x)
	case GeoDistance:
		return c.compileGeoDistance(x)
	case Bitemporal:
		return c.compileBitemporal(x)
	default:
		return nil, errs.QueryParse("unknown condition type: %T", cond)
	}
}

func (c *Compiler) compileBoolean(b Boolean) (plan.Query, error) {
	if len(b.Must) == 0 && len(b.Should) == 0 && len(b.Not) == 0 {
		c.explain("MATCH_ALL empty boolean")
		return plan.MatchAll{Boost: b.GetBoost()}, nil
	}
	q := plan.Boolean{Boost: b.GetBoost()}
	groups := []struct {
		occur plan.Occur
		conds []Condition
	}{
		{plan.Must, b.Must},
		{plan.Should, b.Should},
		{plan.MustNot, b.Not},
	}
	for _, g := range groups {
		for _, sub := range g.conds {
			sq, err := c.compile(sub)
			if err != nil {
				return nil, err
			}
			q = q.Add(g.occur, sq)
		}
	}
	if b.PureNegation() {
		c.pureNegations++
		c.logger.LogPureNegation(c.ctx, len(b.Not))
		c.explain("PURE_NEGATION add *:* to %d exclusions", len(b.Not))
		q = q.Add(plan.Must, plan.MatchAll{Boost: 1})
	}
	c.explain("BOOLEAN must=%d should=%d not=%d", len(b.Must), len(b.Should), len(b.Not))
	return q, nil
}

// mapper resolves field, reporting unknown fields as schema errors.
func (c *Compiler) mapper(field string) (mapping.Mapper, error) {
	if strings.TrimSpace(field) == "" {
		return nil, errs.QueryParse("Field name required")
	}
	return c.schema.Mapper(field)
}

func mismatch(field, expected string, m mapping.Mapper) error {
	return errs.MapperMismatch(field, expected, string(m.Kind()))
}

// numericBoost returns the boost a numeric mapper adds to its conditions.
func numericBoost(m mapping.Mapper) float64 {
	if b, ok := m.(interface{ Boost() float64 }); ok {
		return b.Boost()
	}
	return 1
}

// bitemporalPoint reports whether field names one of the long points of a
// bitemporal mapper.
func bitemporalPoint(m *mapping.BitemporalMapper, field string) bool {
	for _, s := range []string{mapping.VtFromSuffix, mapping.VtToSuffix, mapping.TtFromSuffix, mapping.TtToSuffix} {
		if field == m.Name()+s {
			return true
		}
	}
	return false
}

// longOf normalizes v for mappers whose points are longs.
func longOf(m mapping.Mapper, field string, v any) (int64, bool, error) {
	switch x := m.(type) {
	case *mapping.IntegerMapper:
		n, err := x.Base(v)
		return int64(n), true, err
	case *mapping.LongMapper:
		n, err := x.Base(v)
		return n, true, err
	case *mapping.DateMapper:
		n, err := x.Base(v)
		return n, true, err
	case *mapping.BitemporalMapper:
		if !bitemporalPoint(x, field) {
			return 0, false, nil
		}
		n, err := x.Parse(v)
		return n, true, err
	}
	return 0, false, nil
}

// doubleOf normalizes v for mappers whose points are doubles.
func doubleOf(m mapping.Mapper, v any) (float64, bool, error) {
	switch x := m.(type) {
	case *mapping.FloatMapper:
		f, err := x.Base(v)
		return float64(f), true, err
	case *mapping.DoubleMapper:
		f, err := x.Base(v)
		return f, true, err
	}
	return 0, false, nil
}

// termOf normalizes v for mappers that index one string term.
func termOf(m mapping.Mapper, v any) (string, bool, error) {
	switch x := m.(type) {
	case *mapping.TextMapper:
		s, err := x.Base(v)
		return s, true, err
	case mapping.Termer:
		val, err := x.Term(v)
		if err != nil {
			return "", true, err
		}
		if val.Type != mapping.StringValue {
			return "", false, nil
		}
		return val.Str, true, nil
	}
	return "", false, nil
}

func (c *Compiler) compileRange(r Range) (plan.Query, error) {
	m, err := c.mapper(r.Field)
	if err != nil {
		return nil, err
	}
	field := m.Name()
	if bm, ok := m.(*mapping.BitemporalMapper); ok {
		if !bitemporalPoint(bm, r.Field) {
			return nil, mismatch(r.Field, "single-column", m)
		}
		field = r.Field
	}

	var q plan.Query
	switch {
	case isLong(m):
		lr := plan.LongRange{Field: field, IncludeLower: r.IncludeLower, IncludeUpper: r.IncludeUpper,
			Boost: r.GetBoost() * numericBoost(m)}
		if r.Lower != nil {
			n, _, err := longOf(m, r.Field, r.Lower)
			if err != nil {
				return nil, err
			}
			lr.Lower = &n
		}
		if r.Upper != nil {
			n, _, err := longOf(m, r.Field, r.Upper)
			if err != nil {
				return nil, err
			}
			lr.Upper = &n
		}
		q = lr
	case isDouble(m):
		dr := plan.DoubleRange{Field: field, IncludeLower: r.IncludeLower, IncludeUpper: r.IncludeUpper,
			Boost: r.GetBoost() * numericBoost(m)}
		if r.Lower != nil {
			f, _, err := doubleOf(m, r.Lower)
			if err != nil {
				return nil, err
			}
			dr.Lower = &f
		}
		if r.Upper != nil {
			f, _, err := doubleOf(m, r.Upper)
			if err != nil {
				return nil, err
			}
			dr.Upper = &f
		}
		q = dr
	case isTerm(m):
		tr := plan.TermRange{Field: field, IncludeLower: r.IncludeLower, IncludeUpper: r.IncludeUpper, Boost: r.GetBoost()}
		if r.Lower != nil {
			s, _, err := termOf(m, r.Lower)
			if err != nil {
				return nil, err
			}
			tr.Lower = &s
		}
		if r.Upper != nil {
			s, _, err := termOf(m, r.Upper)
			if err != nil {
				return nil, err
			}
			tr.Upper = &s
		}
		q = tr
	default:
		return nil, mismatch(r.Field, "single-column", m)
	}
	c.explain("RANGE %s", q)
	return q, nil
}

func isLong(m mapping.Mapper) bool {
	switch m.(type) {
	case *mapping.IntegerMapper, *mapping.LongMapper, *mapping.DateMapper, *mapping.BitemporalMapper:
		return true
	}
	return false
}

func isDouble(m mapping.Mapper) bool {
	switch m.(type) {
	case *mapping.FloatMapper, *mapping.DoubleMapper:
		return true
	}
	return false
}

func isTerm(m mapping.Mapper) bool {
	switch m.(type) {
	case *mapping.StringMapper, *mapping.TextMapper, *mapping.InetMapper, *mapping.UUIDMapper,
		*mapping.BooleanMapper, *mapping.BlobMapper, *mapping.BigIntegerMapper:
		return true
	}
	return false
}

// equality builds the query matching rows whose field equals v.
func (c *Compiler) equality(m mapping.Mapper, field string, v any, boost float64) (plan.Query, error) {
	if v == nil {
		return nil, errs.Normalization(field, "Field '%s' can not be compared with null", field)
	}
	name := m.Name()
	if bm, ok := m.(*mapping.BitemporalMapper); ok {
		if !bitemporalPoint(bm, field) {
			return nil, mismatch(field, "single-column", m)
		}
		name = field
	}
	switch {
	case isLong(m):
		n, _, err := longOf(m, field, v)
		if err != nil {
			return nil, err
		}
		return plan.LongRange{Field: name, Lower: &n, Upper: &n, IncludeLower: true, IncludeUpper: true,
			Boost: boost * numericBoost(m)}, nil
	case isDouble(m):
		f, _, err := doubleOf(m, v)
		if err != nil {
			return nil, err
		}
		return plan.DoubleRange{Field: name, Lower: &f, Upper: &f, IncludeLower: true, IncludeUpper: true,
			Boost: boost * numericBoost(m)}, nil
	}
	if tm, ok := m.(*mapping.TextMapper); ok {
		terms, err := tm.Terms(v)
		if err != nil {
			return nil, err
		}
		if len(terms) == 1 {
			return plan.Term{Field: name, Term: terms[0], Boost: boost}, nil
		}
		q := plan.Boolean{Boost: boost}
		for _, t := range terms {
			q = q.Add(plan.Must, plan.Term{Field: name, Term: t, Boost: 1})
		}
		return q, nil
	}
	if isTerm(m) {
		s, _, err := termOf(m, v)
		if err != nil {
			return nil, err
		}
		return plan.Term{Field: name, Term: s, Boost: boost}, nil
	}
	return nil, mismatch(field, "single-column", m)
}

func (c *Compiler) compileContains(ct Contains) (plan.Query, error) {
	m, err := c.mapper(ct.Field)
	if err != nil {
		return nil, err
	}
	if len(ct.Values) == 0 {
		return nil, errs.Normalization(ct.Field, "Field values required for contains condition on '%s'", ct.Field)
	}
	q := plan.Boolean{Boost: ct.GetBoost()}
	for _, v := range ct.Values {
		sq, err := c.equality(m, ct.Field, v, 1)
		if err != nil {
			return nil, err
		}
		q = q.Add(plan.Should, sq)
	}
	c.explain("CONTAINS %s", q)
	return q, nil
}

func (c *Compiler) compileMatch(mc Match) (plan.Query, error) {
	m, err := c.mapper(mc.Field)
	if err != nil {
		return nil, err
	}
	q, err := c.equality(m, mc.Field, mc.Value, mc.GetBoost())
	if err != nil {
		return nil, err
	}
	c.explain("MATCH %s", q)
	return q, nil
}

// stringMapper resolves a field whose terms are plain strings, as regexp,
// prefix and wildcard conditions require.
func (c *Compiler) stringMapper(field string) (mapping.Mapper, error) {
	m, err := c.mapper(field)
	if err != nil {
		return nil, err
	}
	switch m.(type) {
	case *mapping.StringMapper, *mapping.TextMapper, *mapping.InetMapper, *mapping.UUIDMapper:
		return m, nil
	}
	return nil, mismatch(field, "string", m)
}

// literal applies the mapper's case folding to a pattern.
func literal(m mapping.Mapper, s string) string {
	if sm, ok := m.(*mapping.StringMapper); ok && !sm.CaseSensitive() {
		return strings.ToLower(s)
	}
	return s
}

func (c *Compiler) compileRegexp(rc Regexp) (plan.Query, error) {
	m, err := c.stringMapper(rc.Field)
	if err != nil {
		return nil, err
	}
	pattern := literal(m, rc.Value)
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, errs.Normalization(rc.Field, "Invalid regular expression '%s' for field '%s': %v", rc.Value, rc.Field, err)
	}
	q := plan.Regexp{Field: m.Name(), Pattern: pattern, Boost: rc.GetBoost()}
	c.explain("REGEXP %s", q)
	return q, nil
}

func (c *Compiler) compilePrefix(pc Prefix) (plan.Query, error) {
	m, err := c.stringMapper(pc.Field)
	if err != nil {
		return nil, err
	}
	q := plan.Prefix{Field: m.Name(), Prefix: literal(m, pc.Value), Boost: pc.GetBoost()}
	c.explain("PREFIX %s", q)
	return q, nil
}

// WildcardToRegexp translates a wildcard pattern to an anchored-free
// regular expression matching the same terms.
func WildcardToRegexp(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

func (c *Compiler) compileWildcard(wc Wildcard) (plan.Query, error) {
	m, err := c.stringMapper(wc.Field)
	if err != nil {
		return nil, err
	}
	q := plan.Regexp{Field: m.Name(), Pattern: WildcardToRegexp(literal(m, wc.Value)), Boost: wc.GetBoost()}
	c.explain("WILDCARD %s", q)
	return q, nil
}

func (c *Compiler) geoMapper(field string) (*mapping.GeoPointMapper, error) {
	m, err := c.mapper(field)
	if err != nil {
		return nil, err
	}
	gm, ok := m.(*mapping.GeoPointMapper)
	if !ok {
		return nil, mismatch(field, string(mapping.KindGeoPoint), m)
	}
	return gm, nil
}

func (c *Compiler) compileGeoBBox(g GeoBBox) (plan.Query, error) {
	m, err := c.geoMapper(g.Field)
	if err != nil {
		return nil, err
	}
	for _, chk := range []error{
		geo.CheckLatitude("min_latitude", g.MinLatitude),
		geo.CheckLatitude("max_latitude", g.MaxLatitude),
		geo.CheckLongitude("min_longitude", g.MinLongitude),
		geo.CheckLongitude("max_longitude", g.MaxLongitude),
	} {
		if chk != nil {
			return nil, chk
		}
	}
	if g.MinLatitude > g.MaxLatitude {
		return nil, errs.Normalization(g.Field, "min_latitude '%s' must be less than max_latitude '%s'",
			formatDouble(g.MinLatitude), formatDouble(g.MaxLatitude))
	}
	if g.MinLongitude > g.MaxLongitude {
		return nil, errs.Normalization(g.Field, "min_longitude '%s' must be less than max_longitude '%s'",
			formatDouble(g.MinLongitude), formatDouble(g.MaxLongitude))
	}
	inner := plan.Boolean{Boost: 1}.
		Add(plan.Must, plan.DoubleRange{Field: m.Name() + mapping.GeoBBoxLatSuffix,
			Lower: plan.Ptr(g.MinLatitude), Upper: plan.Ptr(g.MaxLatitude), IncludeLower: true, IncludeUpper: true, Boost: 1}).
		Add(plan.Must, plan.DoubleRange{Field: m.Name() + mapping.GeoBBoxLonSuffix,
			Lower: plan.Ptr(g.MinLongitude), Upper: plan.Ptr(g.MaxLongitude), IncludeLower: true, IncludeUpper: true, Boost: 1})
	q := plan.ConstantScore{Query: inner, Boost: g.GetBoost()}
	c.explain("GEO_BBOX %s", q)
	return q, nil
}

func (c *Compiler) compileGeoDistance(g GeoDistance) (plan.Query, error) {
	m, err := c.geoMapper(g.Field)
	if err != nil {
		return nil, err
	}
	if err := geo.CheckLatitude("latitude", g.Latitude); err != nil {
		return nil, err
	}
	if err := geo.CheckLongitude("longitude", g.Longitude); err != nil {
		return nil, err
	}
	maxDist, err := geo.ParseDistance(g.MaxDistance)
	if err != nil {
		return nil, err
	}
	var minDist geo.Distance
	if g.MinDistance != "" {
		if minDist, err = geo.ParseDistance(g.MinDistance); err != nil {
			return nil, err
		}
	}
	if minDist > maxDist {
		return nil, errs.Normalization(g.Field, "min_distance '%s' must be less than max_distance '%s'", g.MinDistance, g.MaxDistance)
	}

	inner := plan.Boolean{Boost: 1}
	level := geo.CoveringLevel(g.Latitude, maxDist.Meters(), m.MaxLevels())
	if cells := geo.Covering(g.Latitude, g.Longitude, level); cells != nil {
		cover := plan.Boolean{Boost: 1}
		for _, cell := range cells {
			cover = cover.Add(plan.Should, plan.Term{Field: m.Name() + mapping.GeoDistSuffix, Term: cell, Boost: 1})
		}
		inner = inner.Add(plan.Filter, cover)
		c.explain("GEO_CELLS %s level=%d cells=%d", m.Name(), level, len(cells))
	}
	inner = inner.Add(plan.Must, plan.GeoDistance{
		Field:       m.Name(),
		Latitude:    g.Latitude,
		Longitude:   g.Longitude,
		MinDistance: minDist.Meters(),
		MaxDistance: maxDist.Meters(),
		Boost:       1,
	})
	q := plan.ConstantScore{Query: inner, Boost: g.GetBoost()}
	c.explain("GEO_DISTANCE %s", q)
	return q, nil
}

func (c *Compiler) compileBitemporal(b Bitemporal) (plan.Query, error) {
	m, err := c.mapper(b.Field)
	if err != nil {
		return nil, err
	}
	bm, ok := m.(*mapping.BitemporalMapper)
	if !ok {
		return nil, mismatch(b.Field, string(mapping.KindBitemporal), m)
	}

	bound := func(v any, def int64) (int64, error) {
		if v == nil {
			return def, nil
		}
		return bm.Parse(v)
	}
	var vals [4]int64
	for i, p := range []struct {
		v   any
		def int64
	}{{b.VtFrom, 0}, {b.VtTo, mapping.Open}, {b.TtFrom, 0}, {b.TtTo, mapping.Open}} {
		if vals[i], err = bound(p.v, p.def); err != nil {
			return nil, err
		}
	}
	vtFrom, vtTo, ttFrom, ttTo := vals[0], vals[1], vals[2], vals[3]
	if vtFrom > vtTo {
		return nil, errs.Normalization(b.Field, "vt_from:'%s' is after vt_to:'%s'", display(b.VtFrom), display(b.VtTo))
	}
	if ttFrom > ttTo {
		return nil, errs.Normalization(b.Field, "tt_from:'%s' is after tt_to:'%s'", display(b.TtFrom), display(b.TtTo))
	}

	name := bm.Name()
	atMost := func(suffix string, n int64) plan.Query {
		return plan.LongRange{Field: name + suffix, Upper: plan.Ptr(n), IncludeUpper: true, Boost: 1}
	}
	atLeast := func(suffix string, n int64) plan.Query {
		return plan.LongRange{Field: name + suffix, Lower: plan.Ptr(n), IncludeLower: true, Boost: 1}
	}

	inner := plan.Boolean{Boost: 1}
	switch b.Op() {
	case OpIntersects:
		inner = inner.
			Add(plan.Must, atMost(mapping.VtFromSuffix, vtTo)).
			Add(plan.Must, atLeast(mapping.VtToSuffix, vtFrom)).
			Add(plan.Must, atMost(mapping.TtFromSuffix, ttTo)).
			Add(plan.Must, atLeast(mapping.TtToSuffix, ttFrom))
	case OpContains:
		inner = inner.
			Add(plan.Must, atMost(mapping.VtFromSuffix, vtFrom)).
			Add(plan.Must, atLeast(mapping.VtToSuffix, vtTo)).
			Add(plan.Must, atMost(mapping.TtFromSuffix, ttFrom)).
			Add(plan.Must, atLeast(mapping.TtToSuffix, ttTo))
	case OpIsWithin:
		inner = inner.
			Add(plan.Must, atLeast(mapping.VtFromSuffix, vtFrom)).
			Add(plan.Must, atMost(mapping.VtToSuffix, vtTo)).
			Add(plan.Must, atLeast(mapping.TtFromSuffix, ttFrom)).
			Add(plan.Must, atMost(mapping.TtToSuffix, ttTo))
	default:
		return nil, errs.QueryParse("Unsupported bitemporal operation '%s'", b.Operation)
	}
	q := plan.ConstantScore{Query: inner, Boost: b.GetBoost()}
	c.explain("BITEMPORAL %s %s", b.Op(), q)
	return q, nil
}
