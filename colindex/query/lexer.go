package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/colindex/colindex/colindex/errs"
)

// Token represents a lexical token
type Token struct {
	Kind  TokenKind
	Value string
	// Pos is the rune offset of the token in the input.
	Pos int
}

// TokenKind is the type of token
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokColon
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
	TokGt
	TokGte
	TokLt
	TokLte
	TokDotDot
	TokCaret
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokColon:
		return "Colon"
	case TokAnd:
		return "And"
	case TokOr:
		return "Or"
	case TokNot:
		return "Not"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokGt:
		return "Gt"
	case TokGte:
		return "Gte"
	case TokLt:
		return "Lt"
	case TokLte:
		return "Lte"
	case TokDotDot:
		return "DotDot"
	case TokCaret:
		return "Caret"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

func (t Token) String() string {
	switch t.Kind {
	case TokIdent, TokNumber:
		return t.Value
	case TokString:
		return strconv.Quote(t.Value)
	case TokEOF:
		return "end of query"
	}
	return t.Kind.String()
}

// Lexer tokenizes a where expression
type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Lex tokenizes the entire input
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	single := func(k TokenKind) (Token, error) {
		l.pos++
		return Token{Kind: k, Pos: start}, nil
	}
	switch ch {
	case ':':
		return single(TokColon)
	case '(':
		return single(TokLParen)
	case ')':
		return single(TokRParen)
	case '&':
		return single(TokAnd)
	case '|':
		return single(TokOr)
	case '!':
		return single(TokNot)
	case '^':
		return single(TokCaret)
	case '"':
		return l.scanString()
	}

	if ch == '.' && l.peek(1) == '.' {
		l.pos += 2
		return Token{Kind: TokDotDot, Pos: start}, nil
	}
	if ch == '>' || ch == '<' {
		kind := TokGt
		if ch == '<' {
			kind = TokLt
		}
		l.pos++
		if l.peek(0) == '=' {
			l.pos++
			kind++ // TokGte follows TokGt, TokLte follows TokLt
		}
		return Token{Kind: kind, Pos: start}, nil
	}

	if isIdentStart(ch) || unicode.IsDigit(ch) {
		return l.scanWord()
	}
	return Token{}, errs.QueryParse("unexpected character '%c' at %d", ch, start)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	if pos := l.pos + offset; pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			l.pos++
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			switch l.input[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(l.input[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{}, errs.QueryParse("unterminated string at %d", start)
}

// scanWord reads an identifier, a number or a bare value such as
// 2024-01-01 or 7d. A ".." ends the word so that ranges lex as three tokens.
func (l *Lexer) scanWord() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		if l.input[l.pos] == '.' && l.peek(1) == '.' {
			break
		}
		l.pos++
	}
	value := string(l.input[start:l.pos])

	switch strings.ToUpper(value) {
	case "AND":
		return Token{Kind: TokAnd, Pos: start}, nil
	case "OR":
		return Token{Kind: TokOr, Pos: start}, nil
	case "NOT":
		return Token{Kind: TokNot, Pos: start}, nil
	}
	if isNumber(value) {
		return Token{Kind: TokNumber, Value: value, Pos: start}, nil
	}
	return Token{Kind: TokIdent, Value: value, Pos: start}, nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	if first == '-' && len(s) > 1 {
		first = s[1]
	}
	if first < '0' || first > '9' {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch == '*' || ch == '?' || ch == '/' || ch == '-'
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '*' || ch == '?' || ch == '/' || ch == '-' || ch == '.'
}
