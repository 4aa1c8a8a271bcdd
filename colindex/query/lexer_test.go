package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colindex/colindex/colindex/errs"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexOperators(t *testing.T) {
	tokens, err := Lex(`age>=30 & (x<2 | y<=3) !z^2 age:1..5`)
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{
		TokIdent, TokGte, TokNumber, TokAnd,
		TokLParen, TokIdent, TokLt, TokNumber, TokOr, TokIdent, TokLte, TokNumber, TokRParen,
		TokNot, TokIdent, TokCaret, TokNumber,
		TokIdent, TokColon, TokNumber, TokDotDot, TokNumber,
		TokEOF,
	}, kinds(tokens))
}

func TestLexWords(t *testing.T) {
	tokens, err := Lex(`created:2024-01-01 since>-7d price:-1.5 and Or NOT path:/a/b*`)
	require.NoError(t, err)

	want := []Token{
		{Kind: TokIdent, Value: "created"},
		{Kind: TokColon},
		{Kind: TokIdent, Value: "2024-01-01"},
		{Kind: TokIdent, Value: "since"},
		{Kind: TokGt},
		{Kind: TokIdent, Value: "-7d"},
		{Kind: TokIdent, Value: "price"},
		{Kind: TokColon},
		{Kind: TokNumber, Value: "-1.5"},
		{Kind: TokAnd},
		{Kind: TokOr},
		{Kind: TokNot},
		{Kind: TokIdent, Value: "path"},
		{Kind: TokColon},
		{Kind: TokIdent, Value: "/a/b*"},
		{Kind: TokEOF},
	}
	require.Len(t, tokens, len(want))
	for i := range want {
		assert.Equal(t, want[i].Kind, tokens[i].Kind, "token %d", i)
		assert.Equal(t, want[i].Value, tokens[i].Value, "token %d", i)
	}
}

func TestLexStringsAndPositions(t *testing.T) {
	tokens, err := Lex(`name:"ann \"the\" b\tc"`)
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, TokString, tokens[2].Kind)
	assert.Equal(t, "ann \"the\" b\tc", tokens[2].Value)
	assert.Equal(t, 5, tokens[2].Pos)
	assert.Equal(t, `"ann \"the\" b\tc"`, tokens[2].String())
}

func TestLexErrors(t *testing.T) {
	for _, input := range []string{`name:"open`, `a = b`, `#x`} {
		_, err := Lex(input)
		assert.True(t, errs.IsKind(err, errs.ErrQueryParse), "%q: %v", input, err)
	}
}
