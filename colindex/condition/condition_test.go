package condition

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func TestUnmarshalConditionTree(t *testing.T) {
	c, err := Unmarshal([]byte(`{
		"type": "boolean",
		"must": [{"type": "match", "field": "name", "value": "bob"}],
		"not": [{"type": "range", "field": "age", "lower": 18, "include_lower": true}],
		"boost": 0.5
	}`))
	require.NoError(t, err)

	b, ok := c.(Boolean)
	require.True(t, ok)
	assert.Equal(t, 0.5, b.Boost)
	require.Len(t, b.Must, 1)
	assert.Equal(t, Match{Field: "name", Value: "bob", Boost: 1}, b.Must[0])
	require.Len(t, b.Not, 1)
	assert.Equal(t, Range{Field: "age", Lower: json.Number("18"), IncludeLower: true, Boost: 1}, b.Not[0])
}

func TestConditionJSONRoundTrip(t *testing.T) {
	in := Boolean{
		Should: []Condition{
			GeoDistance{Field: "place", Latitude: 40.5, Longitude: -3.5, MaxDistance: "10km", Boost: 1},
			Bitemporal{Field: "period", VtFrom: json.Number("1"), Operation: OpContains, Boost: 1},
			Contains{Field: "name", Values: []any{"a", "b"}, Boost: 2},
		},
		Boost: 1,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in.String(), out.String())
}

func TestUnmarshalRejects(t *testing.T) {
	cases := map[string]string{
		"unknown type":     `{"type": "fuzzy", "field": "name", "value": "x"}`,
		"missing type":     `{"field": "name"}`,
		"missing field":    `{"type": "match", "value": "x"}`,
		"missing value":    `{"type": "match", "field": "name"}`,
		"empty values":     `{"type": "contains", "field": "name", "values": []}`,
		"non string regex": `{"type": "regexp", "field": "name", "value": 3}`,
		"partial bbox":     `{"type": "geo_bbox", "field": "place", "min_latitude": 1}`,
		"no max distance":  `{"type": "geo_distance", "field": "place", "latitude": 1, "longitude": 1}`,
		"negative boost":   `{"type": "all", "boost": -1}`,
		"unknown member":   `{"type": "all", "colour": "red"}`,
		"not json":         `{"type": `,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(data))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.ErrQueryParse), err.Error())
		})
	}
}

func TestUnknownTypeMessage(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type": "fuzzy", "field": "name", "value": "x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown condition type 'fuzzy'")
}

func TestWildcardToRegexp(t *testing.T) {
	assert.Equal(t, "a.*b.", WildcardToRegexp("a*b?"))
	assert.Equal(t, `\(x\)\+`, WildcardToRegexp("(x)+"))
}

// explainText renders a compilation the way the golden files store it.
func explainText(out *CompileOutput) []byte {
	var b strings.Builder
	b.WriteString("query: " + out.Query.String() + "\n")
	b.WriteString("steps:\n")
	for _, s := range out.ExplainSteps {
		b.WriteString("- " + s + "\n")
	}
	return []byte(b.String())
}

func TestCompileGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	cases := []struct {
		name string
		cond Condition
	}{
		{"pure_negation", Boolean{Not: []Condition{Match{Field: "name", Value: "bob"}}}},
		{"geo_bbox", GeoBBox{Field: "place", MinLatitude: -10, MaxLatitude: 10, MinLongitude: -20, MaxLongitude: 20, Boost: 0.5}},
		{"bitemporal_intersects", Bitemporal{Field: "period", VtFrom: 100, VtTo: 200}},
		{"contains_text", Contains{Field: "title", Values: []any{"houses", "cats"}, Boost: 0.7}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g.Assert(t, c.name, explainText(compile(t, c.cond)))
		})
	}
}
