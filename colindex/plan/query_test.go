package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryStrings(t *testing.T) {
	cases := []struct {
		q    Query
		want string
	}{
		{MatchAll{Boost: 1}, "*:*"},
		{Term{Field: "name", Term: "bob", Boost: 0.5}, "name:bob^0.5"},
		{TermRange{Field: "name", Lower: Ptr("a"), IncludeLower: true, Boost: 1}, "name:[a TO *}"},
		{LongRange{Field: "age", Lower: Ptr(int64(1)), Upper: Ptr(int64(9)), IncludeLower: true, IncludeUpper: true, Boost: 2}, "age:[1 TO 9]^2.0"},
		{DoubleRange{Field: "p", Upper: Ptr(2.5), Boost: 1}, "p:{* TO 2.5}"},
		{Regexp{Field: "name", Pattern: "b.*", Boost: 1}, "name:/b.*/"},
		{Prefix{Field: "name", Prefix: "bo", Boost: 1}, "name:bo*"},
		{ConstantScore{Query: Term{Field: "a", Term: "b", Boost: 1}, Boost: 1}, "ConstantScore(a:b)"},
		{
			Boolean{Boost: 1, Clauses: []Clause{
				{Must, MatchAll{Boost: 1}},
				{MustNot, Term{Field: "name", Term: "bob", Boost: 1}},
				{Should, Boolean{Boost: 1, Clauses: []Clause{{Filter, Term{Field: "x", Term: "y", Boost: 1}}}}},
			}},
			"+*:* -name:bob (#x:y)",
		},
		{GeoDistance{Field: "place", Latitude: 40.5, Longitude: -3.5, MaxDistance: 1000, Boost: 1}, "GeoDistance(place, latitude=40.5, longitude=-3.5, min=0m, max=1000m)"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.q.String())
	}
}

func TestRangeContains(t *testing.T) {
	r := LongRange{Lower: Ptr(int64(2)), Upper: Ptr(int64(5)), IncludeLower: false, IncludeUpper: true}
	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
	assert.True(t, LongRange{}.Contains(-100))

	d := DoubleRange{Lower: Ptr(1.0), IncludeLower: true}
	assert.True(t, d.Contains(1))
	assert.False(t, d.Contains(0.99))
}

func TestBooleanAddDoesNotAlias(t *testing.T) {
	base := Boolean{Boost: 1}.Add(Must, MatchAll{Boost: 1})
	a := base.Add(Should, Term{Field: "a", Term: "1", Boost: 1})
	b := base.Add(MustNot, Term{Field: "b", Term: "2", Boost: 1})
	assert.Len(t, base.Clauses, 1)
	assert.Equal(t, Should, a.Clauses[1].Occur)
	assert.Equal(t, MustNot, b.Clauses[1].Occur)
	assert.Equal(t, 1, b.Count(MustNot))
}
