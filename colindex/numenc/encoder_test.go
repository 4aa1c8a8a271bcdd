package numenc

import (
	"math/big"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func mustEncoder(t *testing.T, digits int) *Encoder {
	t.Helper()
	e, err := New(digits)
	require.NoError(t, err)
	return e
}

func TestNewRejectsNonPositiveDigits(t *testing.T) {
	for _, d := range []int{0, -1} {
		_, err := New(d)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.ErrConfiguration))
	}
}

func TestKnownEncodings(t *testing.T) {
	e := mustEncoder(t, 8)
	assert.Equal(t, 6, e.Width())

	cases := map[int64]string{
		0:         "1njchs",
		1:         "1njcht",
		-1:        "1njchr",
		99999999:  "3b2ozj",
		-99999999: "000001",
	}
	for v, want := range cases {
		got, err := e.Encode(big.NewInt(v))
		require.NoError(t, err)
		assert.Equal(t, want, got, "encode(%d)", v)
	}

	e3 := mustEncoder(t, 3)
	got, err := e3.EncodeValue(999)
	require.NoError(t, err)
	assert.Equal(t, "1jj", got)
}

func TestOrderPreservation(t *testing.T) {
	e := mustEncoder(t, 8)
	enc := func(v int64) string {
		s, err := e.Encode(big.NewInt(v))
		require.NoError(t, err)
		return s
	}
	assert.Less(t, enc(-1), enc(0))
	assert.Less(t, enc(0), enc(1))
	assert.Less(t, enc(-99999999), enc(99999999))
	assert.Less(t, enc(9), enc(10))
	assert.Less(t, enc(-10), enc(-9))

	rng := rand.New(rand.NewSource(42))
	values := make([]int64, 500)
	for i := range values {
		values[i] = rng.Int63n(2*99999999+1) - 99999999
	}
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = enc(v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	sort.Strings(encoded)
	for i, v := range values {
		assert.Equal(t, enc(v), encoded[i])
	}
}

func TestRoundTrip(t *testing.T) {
	for _, digits := range []int{1, 3, 8, 32} {
		e := mustEncoder(t, digits)
		max := e.Max()
		min := new(big.Int).Neg(max)
		samples := []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(-1), max, min}
		if digits > 1 {
			samples = append(samples, big.NewInt(7), big.NewInt(-7))
		}
		for _, v := range samples {
			s, err := e.Encode(v)
			require.NoError(t, err)
			assert.Len(t, s, e.Width())
			back, err := e.Decode(s)
			require.NoError(t, err)
			assert.Equal(t, 0, v.Cmp(back), "digits=%d v=%s", digits, v)
		}
	}
}

func TestRangeRejection(t *testing.T) {
	for _, digits := range []int{1, 8, 32} {
		e := mustEncoder(t, digits)
		limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)

		_, err := e.Encode(limit)
		assert.True(t, errs.IsKind(err, errs.ErrEncodingRange), "digits=%d", digits)

		_, err = e.Encode(new(big.Int).Neg(limit))
		assert.True(t, errs.IsKind(err, errs.ErrEncodingRange), "digits=%d", digits)
	}
}

func TestEncodeValueInputs(t *testing.T) {
	e := mustEncoder(t, 8)

	fromString, err := e.EncodeValue("0000042")
	require.NoError(t, err)
	fromInt, err := e.EncodeValue(int32(42))
	require.NoError(t, err)
	fromUint, err := e.EncodeValue(uint8(42))
	require.NoError(t, err)
	assert.Equal(t, fromInt, fromString)
	assert.Equal(t, fromInt, fromUint)

	for _, bad := range []any{3.0, float32(1), true, time.Now(), "4.5", "abc", nil} {
		_, err := e.EncodeValue(bad)
		assert.True(t, errs.IsKind(err, errs.ErrNormalization), "value %v", bad)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	e := mustEncoder(t, 8)
	for _, bad := range []string{"", "1njch", "1njchs0", "1NJCHS", "1nj-hs"} {
		_, err := e.Decode(bad)
		assert.Error(t, err, "decode(%q)", bad)
	}
	_, err := e.Decode("zzzzzz")
	assert.True(t, errs.IsKind(err, errs.ErrEncodingRange))
}
