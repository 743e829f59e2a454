package pysrc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

const tabWidth = 8

// lexer turns source text into a token stream with synthetic INDENT/DEDENT
// tokens, the way the subject language's tokenizer does.
type lexer struct {
	src     string
	pos     int
	line    int
	col     int
	indents []int
	parens  int
	tokens  []Token
}

// Tokenize scans src and returns its full token list, ending with TokenEOF.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1, indents: []int{0}}
	if err := lx.run(); err != nil {
		return nil, err
	}

	return lx.tokens, nil
}

func (lx *lexer) errf(msg string) error {
	return &m.ParseError{Line: lx.line, Col: lx.col, Msg: msg}
}

func (lx *lexer) emit(kind TokenKind, text string) {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Text: text, Line: lx.line, Col: lx.col})
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		if err := lx.lexLine(); err != nil {
			return err
		}
	}

	// Close the final logical line and any open blocks.
	if n := len(lx.tokens); n > 0 && lx.tokens[n-1].Kind != TokenNewline {
		lx.emit(TokenNewline, "\n")
	}

	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(TokenDedent, "")
	}

	lx.emit(TokenEOF, "")

	return nil
}

// lexLine handles one physical line starting at an indentation boundary.
func (lx *lexer) lexLine() error {
	width, rest := lx.measureIndent()
	if rest {
		// Blank or comment-only line: no tokens at all.
		lx.skipToLineEnd()
		lx.consumeNewline()

		return nil
	}

	if lx.parens == 0 {
		if err := lx.applyIndent(width); err != nil {
			return err
		}
	}

	return lx.lexTokens()
}

// measureIndent counts leading whitespace columns and reports whether the
// remainder of the line is blank or a comment.
func (lx *lexer) measureIndent() (int, bool) {
	width := 0
	i := lx.pos

	for i < len(lx.src) {
		switch lx.src[i] {
		case ' ':
			width++
		case '\t':
			width += tabWidth - width%tabWidth
		default:
			goto done
		}
		i++
	}

done:
	lx.pos = i
	lx.col = width + 1

	if i >= len(lx.src) || lx.src[i] == '\n' || lx.src[i] == '\r' || lx.src[i] == '#' {
		return width, true
	}

	return width, false
}

func (lx *lexer) applyIndent(width int) error {
	top := lx.indents[len(lx.indents)-1]

	switch {
	case width > top:
		lx.indents = append(lx.indents, width)
		lx.emit(TokenIndent, "")
	case width < top:
		for len(lx.indents) > 1 && lx.indents[len(lx.indents)-1] > width {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.emit(TokenDedent, "")
		}

		if lx.indents[len(lx.indents)-1] != width {
			return lx.errf("unindent does not match any outer indentation level")
		}
	}

	return nil
}

// lexTokens scans tokens until the logical line ends.
func (lx *lexer) lexTokens() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == ' ' || c == '\t':
			lx.advance(1)
		case c == '#':
			lx.skipToLineEnd()
		case c == '\r':
			lx.advance(1)
		case c == '\n':
			if lx.parens > 0 {
				lx.consumeNewline()
				continue
			}

			lx.emit(TokenNewline, "\n")
			lx.consumeNewline()

			return nil
		case c == '\\' && lx.peekAt(1) == '\n':
			lx.advance(1)
			lx.consumeNewline()
		case isStringStart(lx.src[lx.pos:]):
			if err := lx.lexString(); err != nil {
				return err
			}
		case isIdentStart(rune(c)) || c >= utf8.RuneSelf:
			lx.lexName()
		case c >= '0' && c <= '9' || c == '.' && lx.peekDigit(1):
			lx.lexNumber()
		default:
			if err := lx.lexOp(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (lx *lexer) advance(n int) {
	lx.pos += n
	lx.col += n
}

func (lx *lexer) consumeNewline() {
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '\n' {
		lx.pos++
		lx.line++
		lx.col = 1
	}
}

func (lx *lexer) skipToLineEnd() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

func (lx *lexer) peekAt(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}

	return 0
}

func (lx *lexer) peekDigit(n int) bool {
	c := lx.peekAt(n)
	return c >= '0' && c <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isStringStart reports whether s begins a string literal, including ones
// with r/b/u/f prefixes.
func isStringStart(s string) bool {
	i := 0
	for i < len(s) && i < 2 && strings.ContainsRune("rRbBuUfF", rune(s[i])) {
		i++
	}

	return i < len(s) && (s[i] == '\'' || s[i] == '"')
}

func (lx *lexer) lexName() {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}

		lx.pos += size
		lx.col++
	}

	text := lx.src[start:lx.pos]
	if IsKeyword(text) {
		lx.emit(TokenKeyword, text)
	} else {
		lx.emit(TokenName, text)
	}
}

func (lx *lexer) lexNumber() {
	start := lx.pos

	if lx.src[lx.pos] == '0' && strings.ContainsRune("xXoObB", rune(lx.peekAt(1))) {
		lx.advance(2)
		for lx.pos < len(lx.src) && (isHexDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
			lx.advance(1)
		}
	} else {
		lx.scanDigits()

		if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
			lx.advance(1)
			lx.scanDigits()
		}

		if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
			lx.advance(1)
			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.advance(1)
			}
			lx.scanDigits()
		}
	}

	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'j' || lx.src[lx.pos] == 'J') {
		lx.advance(1)
	}

	lx.emit(TokenNumber, lx.src[start:lx.pos])
}

func (lx *lexer) scanDigits() {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '9' || lx.src[lx.pos] == '_') {
		lx.advance(1)
	}
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// lexString scans a complete string literal, keeping the raw lexeme
// (prefix and quotes included) so the renderer can reproduce it verbatim.
func (lx *lexer) lexString() error {
	start := lx.pos

	for lx.pos < len(lx.src) && strings.ContainsRune("rRbBuUfF", rune(lx.src[lx.pos])) {
		lx.advance(1)
	}

	quote := lx.src[lx.pos]
	triple := strings.HasPrefix(lx.src[lx.pos:], strings.Repeat(string(quote), 3))

	if triple {
		lx.advance(3)
	} else {
		lx.advance(1)
	}

	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]

		switch {
		case c == '\\':
			lx.advance(2)
			continue
		case c == '\n':
			if !triple {
				return lx.errf("unterminated string literal")
			}

			lx.pos++
			lx.line++
			lx.col = 1

			continue
		case c == quote:
			if !triple {
				lx.advance(1)
				lx.emit(TokenString, lx.src[start:lx.pos])

				return nil
			}

			if strings.HasPrefix(lx.src[lx.pos:], strings.Repeat(string(quote), 3)) {
				lx.advance(3)
				lx.emit(TokenString, lx.src[start:lx.pos])

				return nil
			}

			lx.advance(1)
		default:
			lx.advance(1)
		}
	}

	return lx.errf("unterminated string literal")
}

func (lx *lexer) lexOp() error {
	for _, op := range multiCharOps {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.emit(TokenOp, op)
			lx.advance(len(op))

			return nil
		}
	}

	c := lx.src[lx.pos]
	if !strings.ContainsRune(singleCharOps, rune(c)) {
		return lx.errf("unexpected character " + string(c))
	}

	switch c {
	case '(', '[', '{':
		lx.parens++
	case ')', ']', '}':
		if lx.parens > 0 {
			lx.parens--
		}
	}

	lx.emit(TokenOp, string(c))
	lx.advance(1)

	return nil
}
