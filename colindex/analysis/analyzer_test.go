package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func analyze(t *testing.T, name, text string) []string {
	t.Helper()
	a, ok := Prebuilt(name)
	require.True(t, ok, "prebuilt %s", name)
	return a.Analyze(text)
}

func TestStandardAnalyzer(t *testing.T) {
	assert.Equal(t, []string{"the", "quick", "brown", "fox", "42"}, analyze(t, Standard, "The QUICK brown-fox, 42!"))
}

func TestKeywordAnalyzerKeepsInput(t *testing.T) {
	assert.Equal(t, []string{"Hello World"}, analyze(t, Keyword, "Hello World"))
	assert.Empty(t, analyze(t, Keyword, ""))
}

func TestWhitespaceAnalyzerKeepsCase(t *testing.T) {
	assert.Equal(t, []string{"Hello", "World-Wide"}, analyze(t, Whitespace, " Hello  World-Wide "))
}

func TestSimpleAndStop(t *testing.T) {
	assert.Equal(t, []string{"rock", "n", "roll"}, analyze(t, Simple, "Rock'n'Roll"))
	assert.Equal(t, []string{"quick", "fox"}, analyze(t, Stop, "the quick and the fox"))
}

func TestEnglishStemming(t *testing.T) {
	assert.Equal(t, []string{"hous"}, analyze(t, "english", "houses"))
	assert.Equal(t, []string{"cat"}, analyze(t, "english", "Cats"))
	assert.Equal(t, []string{"run", "dog"}, analyze(t, "english", "the running dogs"))
}

func TestUnknownPrebuilt(t *testing.T) {
	_, ok := Prebuilt("klingon")
	assert.False(t, ok)
}

func TestBuildCustom(t *testing.T) {
	a, err := Build("my_spanish", Config{Type: "snowball", Language: "spanish", Stopwords: []string{"el", "la"}})
	require.NoError(t, err)
	assert.Equal(t, "my_spanish", a.Name())
	terms := a.Analyze("El gato")
	require.Len(t, terms, 1)
	assert.Equal(t, "gat", terms[0])

	b, err := Build("strict", Config{Type: "standard", Stopwords: []string{"Foo"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, b.Analyze("foo bar"))

	_, err = Build("bad", Config{Type: "snowball", Language: "klingon"})
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))

	_, err = Build("bad", Config{Type: "nope"})
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))

	_, err = Build("bad", Config{})
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))
}
