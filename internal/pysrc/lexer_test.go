package pysrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}

	return out
}

func TestTokenizeSimpleAssignment(t *testing.T) {
	tokens, err := Tokenize("x = 1\n")
	require.NoError(t, err)

	require.Equal(t,
		[]TokenKind{TokenName, TokenOp, TokenNumber, TokenNewline, TokenEOF},
		kinds(tokens))
	assert.Equal(t, "x", tokens[0].Text)
	assert.Equal(t, "=", tokens[1].Text)
	assert.Equal(t, "1", tokens[2].Text)
}

func TestTokenizeIndentDedent(t *testing.T) {
	tokens, err := Tokenize("if x:\n    y\n")
	require.NoError(t, err)

	require.Equal(t,
		[]TokenKind{
			TokenKeyword, TokenName, TokenOp, TokenNewline,
			TokenIndent, TokenName, TokenNewline, TokenDedent,
			TokenEOF,
		},
		kinds(tokens))
}

func TestTokenizeDedentMismatch(t *testing.T) {
	_, err := Tokenize("if x:\n    y\n  z\n")

	var perr *m.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestTokenizeImplicitLineJoining(t *testing.T) {
	tokens, err := Tokenize("f(1,\n   2)\n")
	require.NoError(t, err)

	// No newline or indent tokens inside the parentheses.
	require.Equal(t,
		[]TokenKind{
			TokenName, TokenOp, TokenNumber, TokenOp,
			TokenNumber, TokenOp, TokenNewline, TokenEOF,
		},
		kinds(tokens))
}

func TestTokenizeBackslashContinuation(t *testing.T) {
	tokens, err := Tokenize("x = 1 + \\\n    2\n")
	require.NoError(t, err)

	require.Equal(t,
		[]TokenKind{
			TokenName, TokenOp, TokenNumber, TokenOp,
			TokenNumber, TokenNewline, TokenEOF,
		},
		kinds(tokens))
}

func TestTokenizeCommentsAndBlankLinesDropped(t *testing.T) {
	tokens, err := Tokenize("# leading comment\n\nx = 1  # trailing\n\n")
	require.NoError(t, err)

	require.Equal(t,
		[]TokenKind{TokenName, TokenOp, TokenNumber, TokenNewline, TokenEOF},
		kinds(tokens))
}

func TestTokenizeStringLexemePreserved(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"double quoted", `s = "hi"` + "\n", `"hi"`},
		{"single quoted", "s = 'hi'\n", "'hi'"},
		{"raw prefix", `s = r"a\b"` + "\n", `r"a\b"`},
		{"f-string", `s = f"{x}"` + "\n", `f"{x}"`},
		{"triple quoted", "s = \"\"\"a\nb\"\"\"\n", "\"\"\"a\nb\"\"\""},
		{"escaped quote", `s = "a\"b"` + "\n", `"a\"b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.src)
			require.NoError(t, err)

			require.Equal(t, TokenString, tokens[2].Kind)
			assert.Equal(t, tt.want, tokens[2].Text)
		})
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize("s = \"oops\n")

	var perr *m.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestTokenizeKeywordClassification(t *testing.T) {
	tokens, err := Tokenize("for x in items:\n    pass\n")
	require.NoError(t, err)

	assert.Equal(t, TokenKeyword, tokens[0].Kind)
	assert.Equal(t, TokenName, tokens[1].Kind)
	assert.Equal(t, TokenKeyword, tokens[2].Kind)
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	tokens, err := Tokenize("x //= y ** 2 != z\n")
	require.NoError(t, err)

	texts := []string{}
	for _, tok := range tokens {
		if tok.Kind == TokenOp {
			texts = append(texts, tok.Text)
		}
	}

	assert.Equal(t, []string{"//=", "**", "!="}, texts)
}

func TestTokenizeMissingTrailingNewline(t *testing.T) {
	tokens, err := Tokenize("x = 1")
	require.NoError(t, err)

	require.Equal(t,
		[]TokenKind{TokenName, TokenOp, TokenNumber, TokenNewline, TokenEOF},
		kinds(tokens))
}

func TestTokenizeTabIndentation(t *testing.T) {
	tokens, err := Tokenize("if x:\n\ty\n")
	require.NoError(t, err)

	require.Contains(t, kinds(tokens), TokenIndent)
	require.Contains(t, kinds(tokens), TokenDedent)
}
