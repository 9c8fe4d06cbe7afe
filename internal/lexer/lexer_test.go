package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/lexer"
	"github.com/lKGreat/cyscaledb/internal/token"
)

func scanAll(t *testing.T, sql string) []token.Token {
	t.Helper()
	l := lexer.New(sql)
	var toks []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err, "scanning %q", sql)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

// TestScanBasicStatement covers spec.md §8 property 1: a SELECT with a
// backtick identifier, a string literal, and a multi-character
// operator scans into the expected token-kind sequence.
func TestScanBasicStatement(t *testing.T) {
	toks := scanAll(t, "SELECT `id`, name FROM users WHERE age >= 18 AND name != 'bob'")
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, token.SELECT, kinds[0])
	require.Equal(t, token.IDENT, kinds[1]) // `id`
	require.Equal(t, token.COMMA, kinds[2])
	require.Equal(t, token.IDENT, kinds[3]) // name
	require.Equal(t, token.FROM, kinds[4])
	require.Equal(t, token.EOF, kinds[len(kinds)-1])
}

// TestCommentForms covers the three comment spellings MySQL accepts.
func TestCommentForms(t *testing.T) {
	for _, sql := range []string{
		"SELECT 1 -- trailing comment",
		"SELECT 1 # trailing comment",
		"SELECT /* inline */ 1",
	} {
		toks := scanAll(t, sql)
		require.Equal(t, token.SELECT, toks[0].Kind, sql)
		require.Equal(t, token.INT, toks[1].Kind, sql)
		require.Equal(t, token.EOF, toks[len(toks)-1].Kind, sql)
	}
}

// TestStringEscapes covers backslash-escape handling inside a
// single-quoted string literal.
func TestStringEscapes(t *testing.T) {
	toks := scanAll(t, `'it''s a \n test'`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "it's a \n test", toks[0].Lexeme)
}

// TestUnterminatedStringIsSyntaxError asserts a malformed literal
// surfaces as *lexer.SyntaxError rather than panicking or looping.
func TestUnterminatedStringIsSyntaxError(t *testing.T) {
	l := lexer.New("'unterminated")
	_, err := l.Next()
	require.Error(t, err)
	var se *lexer.SyntaxError
	require.ErrorAs(t, err, &se)
}

// TestMultiCharOperators scans a line mixing spec.md's arrow and
// comparison operator spellings and checks that `->>` comes out as a
// single ARROW2 token.
func TestMultiCharOperators(t *testing.T) {
	toks := scanAll(t, "a ->> b <=> c <> d")
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, token.ARROW2)
}
