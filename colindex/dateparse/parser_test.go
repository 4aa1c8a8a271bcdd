package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func mustParser(t *testing.T, pattern string) *Parser {
	t.Helper()
	p, err := New(pattern)
	require.NoError(t, err)
	return p
}

func TestParseNil(t *testing.T) {
	p := mustParser(t, "yyyy/MM/dd")
	for _, v := range []any{nil, (*time.Time)(nil), (*int64)(nil)} {
		_, ok, err := p.Parse(v)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestParseValidValues(t *testing.T) {
	p := mustParser(t, "yyyy/MM/dd")

	got, ok, err := p.Parse("2015/11/03")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2015/11/03", p.Format(got))

	in := time.Date(2015, 11, 3, 0, 0, 0, 0, time.UTC)
	got, ok, err = p.Parse(in)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2015/11/03", p.Format(got))

	compact := mustParser(t, "yyyyMMdd")
	got, ok, err = compact.Parse(int64(20151103))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "20151103", compact.Format(got))
}

func TestParseInvalidValues(t *testing.T) {
	p := mustParser(t, "yyyyMMdd")
	for _, v := range []any{"2015/11/03", int64(-20152345), int64(201523455859), true, 1.5} {
		_, _, err := p.Parse(v)
		assert.True(t, errs.IsKind(err, errs.ErrNormalization), "value %v", v)
	}
}

func TestTimestampPattern(t *testing.T) {
	p := mustParser(t, TimestampPattern)

	got, ok, err := p.Parse("2635421542648178234")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(2635421542648178234).UTC(), got)

	got, ok, err = p.Parse(int64(1446508800000))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1446508800000), got.UnixMilli())
	assert.Equal(t, "1446508800000", p.Format(got))

	_, _, err = p.Parse("2015/03/02")
	assert.True(t, errs.IsKind(err, errs.ErrNormalization))
}

func TestDefaultPattern(t *testing.T) {
	p := mustParser(t, "")
	assert.Equal(t, DefaultPattern, p.Pattern())
	got, ok, err := p.Parse("2015/11/03 10:20:30.456 +0100")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2015, 11, 3, 9, 20, 30, 456000000, time.UTC), got.UTC())
}

func TestQuotedLiteralsAndBadPatterns(t *testing.T) {
	p := mustParser(t, "yyyy-MM-dd'T'HH:mm:ss")
	got, ok, err := p.Parse("2020-02-29T23:59:58")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 29, got.Day())

	_, err = New("yyyy-MM-dd'T")
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))

	_, err = New("yyyy-QQ")
	assert.True(t, errs.IsKind(err, errs.ErrConfiguration))
}
