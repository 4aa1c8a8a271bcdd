package memindex

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/geo"
	"github.com/colindex/colindex/colindex/mapping"
	"github.com/colindex/colindex/colindex/plan"
	"github.com/colindex/colindex/colindex/search"
)

// matches is the result of evaluating one query node.
type matches struct {
	docs   *roaring.Bitmap
	scores map[uint32]float64
}

func constant(docs *roaring.Bitmap, score float64) matches {
	m := matches{docs: docs, scores: make(map[uint32]float64, docs.GetCardinality())}
	it := docs.Iterator()
	for it.HasNext() {
		m.scores[it.Next()] = score
	}
	return m
}

// idf is the BM25 inverse document frequency of a term found in df of
// total documents.
func idf(total, df uint64) float64 {
	return math.Log(1 + (float64(total)-float64(df)+0.5)/(float64(df)+0.5))
}

// termIDF scores a term matching n local documents. With corpus stats the
// frequency is taken over every partition instead.
func (ix *Index) termIDF(st search.TermStats, field, term string, n uint64) float64 {
	if st != nil {
		return idf(st.DocCount(), st.DocFreq(field, term))
	}
	return idf(ix.live.GetCardinality(), n)
}

func (ix *Index) eval(q plan.Query, st search.TermStats) (matches, error) {
	switch x := q.(type) {
	case plan.MatchAll:
		return constant(ix.live.Clone(), x.Boost), nil

	case plan.Term:
		docs := roaring.New()
		if bm := ix.postings[x.Field][x.Term]; bm != nil {
			docs = roaring.And(bm, ix.live)
		}
		return constant(docs, x.Boost*ix.termIDF(st, x.Field, x.Term, docs.GetCardinality())), nil

	case plan.TermRange:
		return constant(ix.terms(x.Field, func(t string) bool { return inTermRange(x, t) }), x.Boost), nil

	case plan.Prefix:
		return constant(ix.terms(x.Field, func(t string) bool { return strings.HasPrefix(t, x.Prefix) }), x.Boost), nil

	case plan.Regexp:
		re, err := regexp.Compile("^(?:" + x.Pattern + ")$")
		if err != nil {
			return matches{}, errs.Wrap(errs.ErrQueryParse, fmt.Sprintf("regexp %q", x.Pattern), err)
		}
		return constant(ix.terms(x.Field, re.MatchString), x.Boost), nil

	case plan.LongRange:
		return constant(ix.points(x.Field, func(v mapping.Value) bool {
			return v.Type == mapping.LongValue && x.Contains(v.Long)
		}), x.Boost), nil

	case plan.DoubleRange:
		return constant(ix.points(x.Field, func(v mapping.Value) bool {
			return v.Type == mapping.DoubleValue && x.Contains(v.Double)
		}), x.Boost), nil

	case plan.GeoDistance:
		return constant(ix.geoDistance(x), x.Boost), nil

	case plan.ConstantScore:
		inner, err := ix.eval(x.Query, st)
		if err != nil {
			return matches{}, err
		}
		return constant(inner.docs, x.Boost), nil

	case plan.Boolean:
		return ix.evalBoolean(x, st)
	}
	return matches{}, errs.QueryParse("unsupported query %T", q)
}

// evalBoolean intersects the required clauses, adds the optional ones and
// removes the prohibited ones. Without required clauses at least one
// optional clause has to match, so a purely negative boolean matches
// nothing.
func (ix *Index) evalBoolean(b plan.Boolean, st search.TermStats) (matches, error) {
	var required *roaring.Bitmap
	scores := make(map[uint32]float64)
	var should []matches
	var not []*roaring.Bitmap

	for _, c := range b.Clauses {
		m, err := ix.eval(c.Query, st)
		if err != nil {
			return matches{}, err
		}
		switch c.Occur {
		case plan.Must, plan.Filter:
			if required == nil {
				required = m.docs.Clone()
			} else {
				required.And(m.docs)
			}
			if c.Occur == plan.Must {
				for id, s := range m.scores {
					scores[id] += s
				}
			}
		case plan.Should:
			should = append(should, m)
		case plan.MustNot:
			not = append(not, m.docs)
		}
	}

	docs := required
	if docs == nil {
		docs = roaring.New()
		for _, m := range should {
			docs.Or(m.docs)
		}
	}
	for _, m := range should {
		for id, s := range m.scores {
			scores[id] += s
		}
	}
	for _, n := range not {
		docs.AndNot(n)
	}

	out := matches{docs: docs, scores: make(map[uint32]float64, docs.GetCardinality())}
	it := docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		out.scores[id] = scores[id] * b.Boost
	}
	return out, nil
}

func (ix *Index) terms(field string, match func(string) bool) *roaring.Bitmap {
	out := roaring.New()
	for t, bm := range ix.postings[field] {
		if match(t) {
			out.Or(bm)
		}
	}
	out.And(ix.live)
	return out
}

func (ix *Index) points(field string, match func(mapping.Value) bool) *roaring.Bitmap {
	out := roaring.New()
	it := ix.live.Iterator()
	for it.HasNext() {
		id := it.Next()
		for _, v := range ix.docs[id].values[field] {
			if match(v) {
				out.Add(id)
				break
			}
		}
	}
	return out
}

func (ix *Index) geoDistance(q plan.GeoDistance) *roaring.Bitmap {
	out := roaring.New()
	it := ix.live.Iterator()
	for it.HasNext() {
		id := it.Next()
		lats := ix.docs[id].values[q.Field+mapping.GeoLatSuffix]
		lons := ix.docs[id].values[q.Field+mapping.GeoLonSuffix]
		if len(lats) == 0 || len(lons) == 0 {
			continue
		}
		d := geo.Haversine(q.Latitude, q.Longitude, lats[0].Double, lons[0].Double)
		if d >= q.MinDistance && d <= q.MaxDistance {
			out.Add(id)
		}
	}
	return out
}

func inTermRange(r plan.TermRange, t string) bool {
	if r.Lower != nil {
		c := strings.Compare(t, *r.Lower)
		if c < 0 || (c == 0 && !r.IncludeLower) {
			return false
		}
	}
	if r.Upper != nil {
		c := strings.Compare(t, *r.Upper)
		if c > 0 || (c == 0 && !r.IncludeUpper) {
			return false
		}
	}
	return true
}
