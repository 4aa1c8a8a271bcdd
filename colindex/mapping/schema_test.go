package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/analysis"
	"github.com/colindex/colindex/colindex/errs"
)

const testSchemaYAML = `
default_analyzer: english
analyzers:
  spanish_custom:
    type: snowball
    language: spanish
    stopwords: [el, la]
fields:
  title:
    type: text
  body:
    type: text
    analyzer: spanish_custom
  name:
    type: string
    case_sensitive: false
    sorted: true
  age:
    type: integer
    boost: 2
  place:
    type: geo_point
    latitude: lat
    longitude: lon
  period:
    type: bitemporal
    vt_from: vt_from
    vt_to: vt_to
    tt_from: tt_from
    tt_to: tt_to
    pattern: timestamp
`

func TestParseSchemaKeepsFieldOrder(t *testing.T) {
	s, err := ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	var names []string
	for _, m := range s.Mappers() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"title", "body", "name", "age", "place", "period"}, names)
	assert.Equal(t, "english", s.DefaultAnalyzer())

	age, err := s.Mapper("age")
	require.NoError(t, err)
	assert.Equal(t, 2.0, age.(*IntegerMapper).Boost())
}

func TestSchemaBindsAnalyzers(t *testing.T) {
	s, err := ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	title, err := s.Mapper("title")
	require.NoError(t, err)
	terms, err := title.(*TextMapper).Terms("The houses")
	require.NoError(t, err)
	assert.Equal(t, []string{"hous"}, terms)

	body, err := s.Mapper("body")
	require.NoError(t, err)
	terms, err = body.(*TextMapper).Terms("El gato")
	require.NoError(t, err)
	assert.Equal(t, []string{"gat"}, terms)
}

func TestSchemaResolvesSubFields(t *testing.T) {
	s, err := ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	for _, field := range []string{"place", "place.dist", "place.bbox.lat", "period.vt_from"} {
		m, err := s.Mapper(field)
		require.NoError(t, err, field)
		assert.Contains(t, []Kind{KindGeoPoint, KindBitemporal}, m.Kind())
	}

	_, err = s.Mapper("missing.lat")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ErrSchemaResolution))
	assert.Contains(t, err.Error(), "No mapper found for field 'missing.lat'")
}

func TestSchemaRejectsBadConfigurations(t *testing.T) {
	cases := map[string]string{
		"unknown type":     "fields:\n  a:\n    type: nope\n",
		"missing type":     "fields:\n  a:\n    column: b\n",
		"unknown analyzer": "fields:\n  a:\n    type: text\n    analyzer: klingon\n",
		"bad digits":       "fields:\n  a:\n    type: bigint\n    digits: 0\n",
		"missing geo col":  "fields:\n  a:\n    type: geo_point\n    latitude: lat\n",
		"bad field name":   "fields:\n  a-b:\n    type: string\n",
		"no fields":        "fields: {}\n",
		"bad language":     "analyzers:\n  x:\n    type: snowball\n    language: klingon\nfields:\n  a:\n    type: string\n",
	}
	for name, doc := range cases {
		_, err := ParseSchema([]byte(doc))
		require.Error(t, err, name)
		assert.True(t, errs.IsKind(err, errs.ErrConfiguration), "%s: %v", name, err)
	}
}

func TestSchemaFieldsAndValidateColumns(t *testing.T) {
	name, err := NewStringMapper("name", KeywordOptions{})
	require.NoError(t, err)
	age, err := NewIntegerMapper("age", NumericOptions{})
	require.NoError(t, err)
	s, err := NewSchema(SchemaOptions{}, name, age)
	require.NoError(t, err)
	assert.Equal(t, analysis.Default, s.DefaultAnalyzer())
	assert.Equal(t, []string{"age", "name"}, s.Columns())

	fields, err := s.Fields(Columns{{Name: "name", Value: "bob"}, {Name: "age", Value: 30}})
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "name", Value: StringOf("bob"), Indexed: true},
		{Name: "age", Value: LongOf(30), Indexed: true},
	}, fields)

	require.NoError(t, s.ValidateColumns(map[string]NativeType{"name": NativeText, "age": NativeInt}))
	err = s.ValidateColumns(map[string]NativeType{"name": NativeText, "age": NativeUUID})
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))
	err = s.ValidateColumns(map[string]NativeType{"name": NativeText})
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))

	_, err = NewSchema(SchemaOptions{}, name, name)
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))
}

func TestSchemaJSONIsStable(t *testing.T) {
	a, err := ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)
	b, err := ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	ja, err := a.ToJSON()
	require.NoError(t, err)
	jb, err := b.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
	assert.Contains(t, string(ja), `"default_analyzer":"english"`)
	assert.Contains(t, string(ja), `IntegerMapper{field=age, indexed=true, sorted=false, column=age, boost=2.0}`)
}

func TestParseSchemaAcceptsJSON(t *testing.T) {
	s, err := ParseSchema([]byte(`{"fields": {"b": {"type": "long"}, "a": {"type": "double", "sorted": true}}}`))
	require.NoError(t, err)
	ms := s.Mappers()
	require.Len(t, ms, 2)
	assert.Equal(t, "b", ms[0].Name())
	assert.True(t, ms[1].Sorted())
}
