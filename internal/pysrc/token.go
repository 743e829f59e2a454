// Package pysrc parses and renders the Python subset handled by the
// compression pipeline. Trees are stored in an arena of nodes addressed by
// index so transforms can replace nodes without aliasing hazards.
package pysrc

// TokenKind classifies lexer output.
type TokenKind uint8

// Token kinds produced by the Lexer.
const (
	TokenEOF TokenKind = iota
	TokenNewline
	TokenIndent
	TokenDedent
	TokenName
	TokenKeyword
	TokenNumber
	TokenString
	TokenOp
)

// Token is one lexical unit with its source position (1-based).
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
}

// keywords is the reserved-word set of the subject language. Names in this
// set lex as TokenKeyword and are never valid identifiers.
var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// IsKeyword reports whether name is reserved in the subject language.
func IsKeyword(name string) bool { return keywords[name] }

// multiCharOps are matched longest-first before single-character operators.
var multiCharOps = []string{
	"**=", "//=", "<<=", ">>=", "...",
	"->", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

const singleCharOps = "+-*/%@<>=()[]{},:.;&|^~"
