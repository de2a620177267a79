package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mypl-lang/mypl/token"
)

func allTokens(t *testing.T, src string) []token.Token {
	t.Helper()
	lx := New(src)
	var toks []token.Token
	for {
		tok, err := lx.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOS {
			return toks
		}
	}
}

func TestNextTokenKeywordsAndPunctuation(t *testing.T) {
	src := `struct Point { int x; } void main() { if (x == 1) { } }`
	toks := allTokens(t, src)
	want := []token.Kind{
		token.STRUCT, token.ID, token.LBRACE, token.INT, token.ID, token.SEMICOLON, token.RBRACE,
		token.VOID, token.ID, token.LPAREN, token.RPAREN, token.LBRACE,
		token.IF, token.LPAREN, token.ID, token.EQUAL, token.INT_VAL, token.RPAREN, token.LBRACE, token.RBRACE,
		token.RBRACE, token.EOS,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d: %q", i, toks[i].Lexeme)
	}
}

func TestBangAloneIsIllegal(t *testing.T) {
	lx := New("!")
	_, err := lx.Next()
	require.Error(t, err)
}

func TestNotEqualTwoChar(t *testing.T) {
	toks := allTokens(t, "!=")
	require.Equal(t, token.NOT_EQUAL, toks[0].Kind)
}

func TestLeadingZeroIsIllegal(t *testing.T) {
	lx := New("01")
	_, err := lx.Next()
	require.Error(t, err)
}

func TestZeroAloneIsIntVal(t *testing.T) {
	toks := allTokens(t, "0")
	require.Equal(t, token.INT_VAL, toks[0].Kind)
	require.Equal(t, "0", toks[0].Lexeme)
}

func TestStringLiteral(t *testing.T) {
	toks := allTokens(t, `"hello, world"`)
	require.Equal(t, token.STRING_VAL, toks[0].Kind)
	require.Equal(t, "hello, world", toks[0].Lexeme)
}

func TestUnterminatedStringIsLexerError(t *testing.T) {
	lx := New(`"hello`)
	_, err := lx.Next()
	require.Error(t, err)
}

func TestDoubleLiteral(t *testing.T) {
	toks := allTokens(t, "3.14")
	require.Equal(t, token.DOUBLE_VAL, toks[0].Kind)
	require.Equal(t, "3.14", toks[0].Lexeme)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := allTokens(t, "int x; # trailing comment\nint y;")
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.NotContains(t, kinds, token.ILLEGAL)
}
