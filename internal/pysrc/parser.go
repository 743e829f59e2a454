package pysrc

import (
	"fmt"
	"strings"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// parser is a recursive-descent parser over the token stream produced by
// Tokenize. Nodes are written straight into the arena.
type parser struct {
	toks []Token
	pos  int
	tree *Tree
}

// Parse builds a Tree for the given source text. The returned tree's Root is
// always a KindModule node.
func Parse(src string) (*Tree, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, tree: &Tree{Root: NoNode}}

	root, err := p.parseModule()
	if err != nil {
		return nil, err
	}

	p.tree.Root = root

	return p.tree, nil
}

func (p *parser) cur() Token  { return p.toks[p.pos] }
func (p *parser) next() Token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) at(kind TokenKind, text string) bool {
	t := p.cur()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) accept(kind TokenKind, text string) bool {
	if p.at(kind, text) {
		p.pos++
		return true
	}

	return false
}

func (p *parser) expect(kind TokenKind, text string) (Token, error) {
	if !p.at(kind, text) {
		return Token{}, p.errf("expected %q, found %q", text, p.cur().Text)
	}

	return p.next(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	t := p.cur()

	return &m.ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) add(n Node) NodeID { return p.tree.Add(n) }

func (p *parser) node(kind Kind) Node {
	n := NewNode(kind)
	n.Line = p.cur().Line

	return n
}

// --- statements ---

func (p *parser) parseModule() (NodeID, error) {
	mod := p.node(KindModule)

	for !p.at(TokenEOF, "") {
		if p.accept(TokenNewline, "") {
			continue
		}

		stmts, err := p.parseStmt()
		if err != nil {
			return NoNode, err
		}

		mod.Body = append(mod.Body, stmts...)
	}

	return p.add(mod), nil
}

// parseStmt returns one or more statements (a simple-statement line can hold
// several, separated by semicolons).
func (p *parser) parseStmt() ([]NodeID, error) {
	if p.at(TokenOp, "@") || p.at(TokenKeyword, "def") || p.at(TokenKeyword, "class") ||
		(p.at(TokenKeyword, "async") && p.peekIs(1, TokenKeyword, "def")) {
		id, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}

		return []NodeID{id}, nil
	}

	if p.cur().Kind == TokenKeyword {
		switch p.cur().Text {
		case "if":
			id, err := p.parseIf()
			return wrap(id, err)
		case "while":
			id, err := p.parseWhile()
			return wrap(id, err)
		case "for":
			id, err := p.parseFor()
			return wrap(id, err)
		case "async":
			if p.peekIs(1, TokenKeyword, "with") {
				id, err := p.parseWith()
				return wrap(id, err)
			}

			id, err := p.parseFor()

			return wrap(id, err)
		case "with":
			id, err := p.parseWith()
			return wrap(id, err)
		case "try":
			id, err := p.parseTry()
			return wrap(id, err)
		}
	}

	return p.parseSimpleLine()
}

func wrap(id NodeID, err error) ([]NodeID, error) {
	if err != nil {
		return nil, err
	}

	return []NodeID{id}, nil
}

func (p *parser) peekIs(n int, kind TokenKind, text string) bool {
	if p.pos+n >= len(p.toks) {
		return false
	}

	t := p.toks[p.pos+n]

	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) parseSimpleLine() ([]NodeID, error) {
	var stmts []NodeID

	for {
		id, err := p.parseSmall()
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, id)

		if p.accept(TokenOp, ";") {
			if p.at(TokenNewline, "") || p.at(TokenEOF, "") {
				break
			}

			continue
		}

		break
	}

	if !p.accept(TokenNewline, "") && !p.at(TokenEOF, "") {
		return nil, p.errf("expected end of line, found %q", p.cur().Text)
	}

	return stmts, nil
}

func (p *parser) parseSmall() (NodeID, error) {
	if p.cur().Kind == TokenKeyword {
		switch p.cur().Text {
		case "pass":
			p.next()
			return p.add(p.node(KindPass)), nil
		case "break":
			p.next()
			return p.add(p.node(KindBreak)), nil
		case "continue":
			p.next()
			return p.add(p.node(KindContinue)), nil
		case "return":
			return p.parseReturn()
		case "raise":
			return p.parseRaise()
		case "import":
			return p.parseImport()
		case "from":
			return p.parseImportFrom()
		case "global", "nonlocal":
			return p.parseGlobal()
		case "del":
			return p.parseDel()
		case "assert":
			return p.parseAssert()
		case "yield":
			y, err := p.parseYield()
			if err != nil {
				return NoNode, err
			}

			stmt := p.node(KindExprStmt)
			stmt.Value = y

			return p.add(stmt), nil
		}
	}

	return p.parseExprStmt()
}

func (p *parser) atLineEnd() bool {
	return p.at(TokenNewline, "") || p.at(TokenOp, ";") || p.at(TokenEOF, "")
}

func (p *parser) parseReturn() (NodeID, error) {
	n := p.node(KindReturn)
	p.next()

	if !p.atLineEnd() {
		v, err := p.parseTestlist()
		if err != nil {
			return NoNode, err
		}

		n.Value = v
	}

	return p.add(n), nil
}

func (p *parser) parseRaise() (NodeID, error) {
	n := p.node(KindRaise)
	p.next()

	if !p.atLineEnd() {
		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		if p.accept(TokenKeyword, "from") {
			cause, err := p.parseTest()
			if err != nil {
				return NoNode, err
			}

			n.Target = cause
		}
	}

	return p.add(n), nil
}

func (p *parser) parseDottedName() (string, error) {
	var b strings.Builder

	t, err := p.expectName()
	if err != nil {
		return "", err
	}

	b.WriteString(t)

	for p.accept(TokenOp, ".") {
		t, err := p.expectName()
		if err != nil {
			return "", err
		}

		b.WriteString(".")
		b.WriteString(t)
	}

	return b.String(), nil
}

func (p *parser) expectName() (string, error) {
	if p.cur().Kind != TokenName {
		return "", p.errf("expected identifier, found %q", p.cur().Text)
	}

	return p.next().Text, nil
}

func (p *parser) parseAlias() (NodeID, error) {
	n := p.node(KindAlias)

	name, err := p.parseDottedName()
	if err != nil {
		return NoNode, err
	}

	n.Name = name

	if p.accept(TokenKeyword, "as") {
		as, err := p.expectName()
		if err != nil {
			return NoNode, err
		}

		n.Raw = as
	}

	return p.add(n), nil
}

func (p *parser) parseImport() (NodeID, error) {
	n := p.node(KindImport)
	p.next()

	for {
		a, err := p.parseAlias()
		if err != nil {
			return NoNode, err
		}

		n.Args = append(n.Args, a)

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	return p.add(n), nil
}

func (p *parser) parseImportFrom() (NodeID, error) {
	n := p.node(KindImportFrom)
	p.next()

	var mod strings.Builder

	for p.at(TokenOp, ".") || p.at(TokenOp, "...") {
		mod.WriteString(p.next().Text)
	}

	if p.cur().Kind == TokenName {
		dotted, err := p.parseDottedName()
		if err != nil {
			return NoNode, err
		}

		mod.WriteString(dotted)
	}

	n.Name = mod.String()

	if _, err := p.expect(TokenKeyword, "import"); err != nil {
		return NoNode, err
	}

	if p.accept(TokenOp, "*") {
		star := p.node(KindAlias)
		star.Name = "*"
		n.Args = append(n.Args, p.add(star))

		return p.add(n), nil
	}

	parens := p.accept(TokenOp, "(")

	for {
		a, err := p.parseAlias()
		if err != nil {
			return NoNode, err
		}

		n.Args = append(n.Args, a)

		if !p.accept(TokenOp, ",") {
			break
		}

		if parens && p.at(TokenOp, ")") {
			break
		}
	}

	if parens {
		if _, err := p.expect(TokenOp, ")"); err != nil {
			return NoNode, err
		}
	}

	return p.add(n), nil
}

func (p *parser) parseGlobal() (NodeID, error) {
	n := p.node(KindGlobal)
	n.Raw = p.next().Text

	for {
		name, err := p.expectName()
		if err != nil {
			return NoNode, err
		}

		n.Ops = append(n.Ops, name)

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	return p.add(n), nil
}

func (p *parser) parseDel() (NodeID, error) {
	n := p.node(KindDel)
	p.next()

	for {
		t, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		p.setCtx(t, CtxDel)
		n.Args = append(n.Args, t)

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	return p.add(n), nil
}

func (p *parser) parseAssert() (NodeID, error) {
	n := p.node(KindAssert)
	p.next()

	test, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	n.Test = test

	if p.accept(TokenOp, ",") {
		msg, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = msg
	}

	return p.add(n), nil
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true,
	"%=": true, "**=": true, "<<=": true, ">>=": true,
	"&=": true, "|=": true, "^=": true, "@=": true,
}

func (p *parser) parseExprStmt() (NodeID, error) {
	first, err := p.parseTestlist()
	if err != nil {
		return NoNode, err
	}

	// Annotated assignment: target ':' type ['=' value].
	if p.accept(TokenOp, ":") {
		n := p.node(KindAnnAssign)
		n.Target = first
		p.setCtx(first, CtxStore)

		ann, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Ann = ann

		if p.accept(TokenOp, "=") {
			v, err := p.parseTestlist()
			if err != nil {
				return NoNode, err
			}

			n.Value = v
		}

		return p.add(n), nil
	}

	if p.cur().Kind == TokenOp && augOps[p.cur().Text] {
		n := p.node(KindAugAssign)
		n.Target = first
		n.Raw = p.next().Text
		p.setCtx(first, CtxStore)

		v, err := p.parseRHS()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	if p.at(TokenOp, "=") {
		n := p.node(KindAssign)
		targets := []NodeID{first}

		var value NodeID

		for p.accept(TokenOp, "=") {
			v, err := p.parseRHS()
			if err != nil {
				return NoNode, err
			}

			value = v
			targets = append(targets, v)
		}

		// The last parsed expression is the value; everything before it is
		// a store target.
		n.Args = targets[:len(targets)-1]
		n.Value = value

		for _, t := range n.Args {
			p.setCtx(t, CtxStore)
		}

		return p.add(n), nil
	}

	n := p.node(KindExprStmt)
	n.Value = first

	return p.add(n), nil
}

// parseRHS parses an assignment right-hand side, which may be a yield.
func (p *parser) parseRHS() (NodeID, error) {
	if p.at(TokenKeyword, "yield") {
		return p.parseYield()
	}

	return p.parseTestlist()
}

func (p *parser) parseYield() (NodeID, error) {
	n := p.node(KindYield)
	p.next()

	if p.accept(TokenKeyword, "from") {
		n.Raw = "from"

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	if !p.atLineEnd() && !p.at(TokenOp, ")") && !p.at(TokenOp, "]") && !p.at(TokenOp, "}") {
		v, err := p.parseTestlist()
		if err != nil {
			return NoNode, err
		}

		n.Value = v
	}

	return p.add(n), nil
}

// setCtx recursively marks assignment targets with the given context.
func (p *parser) setCtx(id NodeID, ctx Ctx) {
	n := p.tree.Node(id)

	switch n.Kind {
	case KindName:
		n.Ctx = ctx
	case KindTuple, KindList:
		for _, e := range n.Args {
			p.setCtx(e, ctx)
		}
	case KindStarArg:
		if n.Value != NoNode {
			p.setCtx(n.Value, ctx)
		}
	}
	// Attribute and Subscript targets keep their inner value in load
	// context; only the outermost access is a store.
}

// --- compound statements ---

func (p *parser) parseSuite() ([]NodeID, error) {
	if _, err := p.expect(TokenOp, ":"); err != nil {
		return nil, err
	}

	// Inline suite: "if x: y = 1".
	if !p.at(TokenNewline, "") {
		return p.parseSimpleLine()
	}

	p.next()

	if !p.accept(TokenIndent, "") {
		return nil, p.errf("expected an indented block")
	}

	var body []NodeID

	for !p.at(TokenDedent, "") && !p.at(TokenEOF, "") {
		if p.accept(TokenNewline, "") {
			continue
		}

		stmts, err := p.parseStmt()
		if err != nil {
			return nil, err
		}

		body = append(body, stmts...)
	}

	p.accept(TokenDedent, "")

	if len(body) == 0 {
		return nil, p.errf("expected an indented block")
	}

	return body, nil
}

func (p *parser) parseDefinition() (NodeID, error) {
	var decorators []NodeID

	for p.accept(TokenOp, "@") {
		d, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		decorators = append(decorators, d)

		if !p.accept(TokenNewline, "") {
			return NoNode, p.errf("expected end of line after decorator")
		}
	}

	async := p.accept(TokenKeyword, "async")

	switch {
	case p.at(TokenKeyword, "def"):
		return p.parseFunctionDef(decorators, async)
	case p.at(TokenKeyword, "class"):
		return p.parseClassDef(decorators)
	}

	return NoNode, p.errf("expected def or class after decorators")
}

func (p *parser) parseFunctionDef(decorators []NodeID, async bool) (NodeID, error) {
	n := p.node(KindFunctionDef)
	n.Decorators = decorators

	if async {
		n.Raw = "async"
	}

	p.next()

	name, err := p.expectName()
	if err != nil {
		return NoNode, err
	}

	n.Name = name

	params, err := p.parseParams()
	if err != nil {
		return NoNode, err
	}

	n.Params = params

	if p.accept(TokenOp, "->") {
		ann, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Ann = ann
	}

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	return p.add(n), nil
}

func (p *parser) parseParams() ([]NodeID, error) {
	if _, err := p.expect(TokenOp, "("); err != nil {
		return nil, err
	}

	var params []NodeID

	for !p.at(TokenOp, ")") {
		param := p.node(KindParam)

		switch {
		case p.accept(TokenOp, "**"):
			param.Raw = "**"
		case p.accept(TokenOp, "*"):
			param.Raw = "*"
		}

		if p.cur().Kind == TokenName {
			param.Name = p.next().Text
		} else if param.Raw != "*" {
			return nil, p.errf("expected parameter name, found %q", p.cur().Text)
		}

		if p.accept(TokenOp, ":") {
			ann, err := p.parseTest()
			if err != nil {
				return nil, err
			}

			param.Ann = ann
		}

		if p.accept(TokenOp, "=") {
			def, err := p.parseTest()
			if err != nil {
				return nil, err
			}

			param.Value = def
		}

		params = append(params, p.add(param))

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	if _, err := p.expect(TokenOp, ")"); err != nil {
		return nil, err
	}

	return params, nil
}

func (p *parser) parseClassDef(decorators []NodeID) (NodeID, error) {
	n := p.node(KindClassDef)
	n.Decorators = decorators
	p.next()

	name, err := p.expectName()
	if err != nil {
		return NoNode, err
	}

	n.Name = name

	if p.accept(TokenOp, "(") {
		args, err := p.parseCallArgs()
		if err != nil {
			return NoNode, err
		}

		n.Args = args
	}

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	return p.add(n), nil
}

func (p *parser) parseIf() (NodeID, error) {
	n := p.node(KindIf)
	p.next()

	test, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	n.Test = test

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	switch {
	case p.at(TokenKeyword, "elif"):
		// An elif chain becomes a nested If in the else branch.
		p.toks[p.pos] = Token{Kind: TokenKeyword, Text: "if", Line: p.cur().Line, Col: p.cur().Col}

		nested, err := p.parseIf()
		if err != nil {
			return NoNode, err
		}

		n.Orelse = []NodeID{nested}
	case p.accept(TokenKeyword, "else"):
		orelse, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		n.Orelse = orelse
	}

	return p.add(n), nil
}

func (p *parser) parseWhile() (NodeID, error) {
	n := p.node(KindWhile)
	p.next()

	test, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	n.Test = test

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	if p.accept(TokenKeyword, "else") {
		orelse, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		n.Orelse = orelse
	}

	return p.add(n), nil
}

func (p *parser) parseFor() (NodeID, error) {
	n := p.node(KindFor)

	if p.accept(TokenKeyword, "async") {
		n.Raw = "async"
	}

	p.next()

	target, err := p.parseTargetList()
	if err != nil {
		return NoNode, err
	}

	n.Target = target
	p.setCtx(target, CtxStore)

	if _, err := p.expect(TokenKeyword, "in"); err != nil {
		return NoNode, err
	}

	iter, err := p.parseTestlist()
	if err != nil {
		return NoNode, err
	}

	n.Value = iter

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	if p.accept(TokenKeyword, "else") {
		orelse, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		n.Orelse = orelse
	}

	return p.add(n), nil
}

// parseTargetList parses comma-separated loop targets. Targets are never
// comparisons, so parsing stays below the comparison level and the "in"
// keyword remains available as the loop separator.
func (p *parser) parseTargetList() (NodeID, error) {
	first, err := p.parseTarget()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenOp, ",") {
		return first, nil
	}

	tuple := p.node(KindTuple)
	tuple.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.at(TokenKeyword, "in") || p.at(TokenOp, ":") {
			break
		}

		e, err := p.parseTarget()
		if err != nil {
			return NoNode, err
		}

		tuple.Args = append(tuple.Args, e)
	}

	return p.add(tuple), nil
}

// parseTarget parses one bind target: a name, attribute, subscript,
// parenthesized group, or a starred form of any of those.
func (p *parser) parseTarget() (NodeID, error) {
	if p.accept(TokenOp, "*") {
		n := p.node(KindStarArg)
		n.Raw = "*"

		v, err := p.parseBitOr()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	return p.parseBitOr()
}

func (p *parser) parseWith() (NodeID, error) {
	n := p.node(KindWith)

	if p.accept(TokenKeyword, "async") {
		n.Raw = "async"
	}

	p.next()

	for {
		item := p.node(KindWithItem)

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		item.Value = v

		if p.accept(TokenKeyword, "as") {
			target, err := p.parseOr()
			if err != nil {
				return NoNode, err
			}

			item.Target = target
			p.setCtx(target, CtxStore)
		}

		n.Args = append(n.Args, p.add(item))

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	return p.add(n), nil
}

func (p *parser) parseTry() (NodeID, error) {
	n := p.node(KindTry)
	p.next()

	body, err := p.parseSuite()
	if err != nil {
		return NoNode, err
	}

	n.Body = body

	for p.at(TokenKeyword, "except") {
		h := p.node(KindExcept)
		p.next()

		if !p.at(TokenOp, ":") {
			v, err := p.parseTest()
			if err != nil {
				return NoNode, err
			}

			h.Value = v

			if p.accept(TokenKeyword, "as") {
				name, err := p.expectName()
				if err != nil {
					return NoNode, err
				}

				h.Name = name
			}
		}

		hbody, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		h.Body = hbody
		n.Args = append(n.Args, p.add(h))
	}

	if p.accept(TokenKeyword, "else") {
		orelse, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		n.Orelse = orelse
	}

	if p.accept(TokenKeyword, "finally") {
		final, err := p.parseSuite()
		if err != nil {
			return NoNode, err
		}

		n.Final = final
	}

	if len(n.Args) == 0 && len(n.Final) == 0 {
		return NoNode, p.errf("try statement needs an except or finally clause")
	}

	return p.add(n), nil
}

// --- expressions ---

// parseTestlist parses test (',' test)*, producing a Tuple when more than
// one element (or a trailing comma) is present.
func (p *parser) parseTestlist() (NodeID, error) {
	first, err := p.parseStarTest()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenOp, ",") {
		return first, nil
	}

	tuple := p.node(KindTuple)
	tuple.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.atLineEnd() || p.at(TokenOp, "=") || p.at(TokenOp, ")") ||
			p.at(TokenOp, "]") || p.at(TokenOp, "}") || p.at(TokenOp, ":") {
			break
		}

		e, err := p.parseStarTest()
		if err != nil {
			return NoNode, err
		}

		tuple.Args = append(tuple.Args, e)
	}

	return p.add(tuple), nil
}

func (p *parser) parseStarTest() (NodeID, error) {
	if p.accept(TokenOp, "*") {
		n := p.node(KindStarArg)
		n.Raw = "*"

		v, err := p.parseOr()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	return p.parseTest()
}

// parseTest parses a conditional expression or lambda.
func (p *parser) parseTest() (NodeID, error) {
	if p.at(TokenKeyword, "lambda") {
		return p.parseLambda()
	}

	body, err := p.parseOr()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenKeyword, "if") {
		return body, nil
	}

	n := p.node(KindIfExp)
	n.Value = body
	p.next()

	test, err := p.parseOr()
	if err != nil {
		return NoNode, err
	}

	n.Test = test

	if _, err := p.expect(TokenKeyword, "else"); err != nil {
		return NoNode, err
	}

	orelse, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	n.Orelse = []NodeID{orelse}

	return p.add(n), nil
}

func (p *parser) parseLambda() (NodeID, error) {
	n := p.node(KindLambda)
	p.next()

	for !p.at(TokenOp, ":") {
		param := p.node(KindParam)

		switch {
		case p.accept(TokenOp, "**"):
			param.Raw = "**"
		case p.accept(TokenOp, "*"):
			param.Raw = "*"
		}

		if p.cur().Kind == TokenName {
			param.Name = p.next().Text
		}

		if p.accept(TokenOp, "=") {
			def, err := p.parseTest()
			if err != nil {
				return NoNode, err
			}

			param.Value = def
		}

		n.Params = append(n.Params, p.add(param))

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	if _, err := p.expect(TokenOp, ":"); err != nil {
		return NoNode, err
	}

	body, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	n.Value = body

	return p.add(n), nil
}

func (p *parser) parseOr() (NodeID, error) {
	return p.parseBoolOp("or", p.parseAnd)
}

func (p *parser) parseAnd() (NodeID, error) {
	return p.parseBoolOp("and", p.parseNot)
}

func (p *parser) parseBoolOp(op string, sub func() (NodeID, error)) (NodeID, error) {
	first, err := sub()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenKeyword, op) {
		return first, nil
	}

	n := p.node(KindBoolOp)
	n.Raw = op
	n.Args = []NodeID{first}

	for p.accept(TokenKeyword, op) {
		e, err := sub()
		if err != nil {
			return NoNode, err
		}

		n.Args = append(n.Args, e)
	}

	return p.add(n), nil
}

func (p *parser) parseNot() (NodeID, error) {
	if p.at(TokenKeyword, "not") {
		n := p.node(KindUnaryOp)
		n.Raw = "not"
		p.next()

		v, err := p.parseNot()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (NodeID, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return NoNode, err
	}

	var ops []string

	var comparators []NodeID

	for {
		op, ok := p.compOp()
		if !ok {
			break
		}

		right, err := p.parseBitOr()
		if err != nil {
			return NoNode, err
		}

		ops = append(ops, op)
		comparators = append(comparators, right)
	}

	if len(ops) == 0 {
		return left, nil
	}

	n := p.node(KindCompare)
	n.Value = left
	n.Ops = ops
	n.Args = comparators

	return p.add(n), nil
}

// compOp consumes one comparison operator if present, normalizing the
// two-keyword forms "not in" and "is not".
func (p *parser) compOp() (string, bool) {
	t := p.cur()

	if t.Kind == TokenOp {
		switch t.Text {
		case "<", ">", "<=", ">=", "==", "!=":
			p.next()
			return t.Text, true
		}

		return "", false
	}

	if t.Kind != TokenKeyword {
		return "", false
	}

	switch t.Text {
	case "in":
		p.next()
		return "in", true
	case "not":
		if p.peekIs(1, TokenKeyword, "in") {
			p.next()
			p.next()

			return "not in", true
		}

		return "", false
	case "is":
		p.next()

		if p.accept(TokenKeyword, "not") {
			return "is not", true
		}

		return "is", true
	}

	return "", false
}

func (p *parser) parseBitOr() (NodeID, error) {
	return p.parseBinOp(p.parseBitXor, "|")
}

func (p *parser) parseBitXor() (NodeID, error) {
	return p.parseBinOp(p.parseBitAnd, "^")
}

func (p *parser) parseBitAnd() (NodeID, error) {
	return p.parseBinOp(p.parseShift, "&")
}

func (p *parser) parseShift() (NodeID, error) {
	return p.parseBinOp(p.parseArith, "<<", ">>")
}

func (p *parser) parseArith() (NodeID, error) {
	return p.parseBinOp(p.parseTerm, "+", "-")
}

func (p *parser) parseTerm() (NodeID, error) {
	return p.parseBinOp(p.parseFactor, "*", "/", "//", "%", "@")
}

func (p *parser) parseBinOp(sub func() (NodeID, error), ops ...string) (NodeID, error) {
	left, err := sub()
	if err != nil {
		return NoNode, err
	}

	for {
		matched := ""

		for _, op := range ops {
			if p.at(TokenOp, op) {
				matched = op
				break
			}
		}

		if matched == "" {
			return left, nil
		}

		n := p.node(KindBinOp)
		n.Raw = matched
		p.next()

		right, err := sub()
		if err != nil {
			return NoNode, err
		}

		n.Args = []NodeID{left, right}
		left = p.add(n)
	}
}

func (p *parser) parseFactor() (NodeID, error) {
	t := p.cur()

	if t.Kind == TokenOp && (t.Text == "+" || t.Text == "-" || t.Text == "~") {
		n := p.node(KindUnaryOp)
		n.Raw = t.Text
		p.next()

		v, err := p.parseFactor()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	if p.at(TokenKeyword, "await") {
		n := p.node(KindUnaryOp)
		n.Raw = "await"
		p.next()

		v, err := p.parseFactor()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	return p.parsePower()
}

func (p *parser) parsePower() (NodeID, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenOp, "**") {
		return base, nil
	}

	n := p.node(KindBinOp)
	n.Raw = "**"
	p.next()

	// Exponentiation is right-associative.
	exp, err := p.parseFactor()
	if err != nil {
		return NoNode, err
	}

	n.Args = []NodeID{base, exp}

	return p.add(n), nil
}

func (p *parser) parsePostfix() (NodeID, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return NoNode, err
	}

	for {
		switch {
		case p.accept(TokenOp, "("):
			n := p.node(KindCall)
			n.Value = atom

			args, err := p.parseCallArgs()
			if err != nil {
				return NoNode, err
			}

			n.Args = args
			atom = p.add(n)
		case p.accept(TokenOp, "."):
			name, err := p.expectName()
			if err != nil {
				return NoNode, err
			}

			n := p.node(KindAttribute)
			n.Value = atom
			n.Name = name
			atom = p.add(n)
		case p.accept(TokenOp, "["):
			n := p.node(KindSubscript)
			n.Value = atom

			idx, err := p.parseSubscript()
			if err != nil {
				return NoNode, err
			}

			n.Index = idx

			if _, err := p.expect(TokenOp, "]"); err != nil {
				return NoNode, err
			}

			atom = p.add(n)
		default:
			return atom, nil
		}
	}
}

// parseCallArgs parses arguments up to and including the closing paren.
func (p *parser) parseCallArgs() ([]NodeID, error) {
	var args []NodeID

	for !p.at(TokenOp, ")") {
		arg, err := p.parseCallArg()
		if err != nil {
			return nil, err
		}

		// A bare generator argument: f(x for x in xs).
		if p.at(TokenKeyword, "for") && len(args) == 0 {
			comp, err := p.parseCompTail("gen", arg)
			if err != nil {
				return nil, err
			}

			arg = comp
		}

		args = append(args, arg)

		if !p.accept(TokenOp, ",") {
			break
		}
	}

	if _, err := p.expect(TokenOp, ")"); err != nil {
		return nil, err
	}

	return args, nil
}

func (p *parser) parseCallArg() (NodeID, error) {
	switch {
	case p.accept(TokenOp, "**"):
		n := p.node(KindStarArg)
		n.Raw = "**"

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	case p.accept(TokenOp, "*"):
		n := p.node(KindStarArg)
		n.Raw = "*"

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	if p.cur().Kind == TokenName && p.peekIs(1, TokenOp, "=") {
		n := p.node(KindKeywordArg)
		n.Name = p.next().Text
		p.next()

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		n.Value = v

		return p.add(n), nil
	}

	return p.parseTest()
}

func (p *parser) parseSubscript() (NodeID, error) {
	first, err := p.parseSliceItem()
	if err != nil {
		return NoNode, err
	}

	if !p.at(TokenOp, ",") {
		return first, nil
	}

	tuple := p.node(KindTuple)
	tuple.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.at(TokenOp, "]") {
			break
		}

		e, err := p.parseSliceItem()
		if err != nil {
			return NoNode, err
		}

		tuple.Args = append(tuple.Args, e)
	}

	return p.add(tuple), nil
}

// parseSliceItem parses either a plain index or a lower:upper:step slice
// with any part omitted. Slice parts live in Args as [lower, upper, step],
// with NoNode for the missing ones.
func (p *parser) parseSliceItem() (NodeID, error) {
	lower := NoNode

	if !p.at(TokenOp, ":") {
		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		lower = v
	}

	if !p.at(TokenOp, ":") {
		return lower, nil
	}

	p.next()

	n := p.node(KindSlice)
	upper := NoNode

	if !p.at(TokenOp, ":") && !p.at(TokenOp, "]") && !p.at(TokenOp, ",") {
		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		upper = v
	}

	step := NoNode

	if p.accept(TokenOp, ":") {
		if !p.at(TokenOp, "]") && !p.at(TokenOp, ",") {
			v, err := p.parseTest()
			if err != nil {
				return NoNode, err
			}

			step = v
		}
	}

	n.Args = []NodeID{lower, upper, step}

	return p.add(n), nil
}

func (p *parser) parseAtom() (NodeID, error) {
	t := p.cur()

	switch t.Kind {
	case TokenName:
		n := p.node(KindName)
		n.Name = p.next().Text
		n.Ctx = CtxLoad

		return p.add(n), nil
	case TokenNumber:
		n := p.node(KindLiteral)
		n.Raw = p.next().Text

		return p.add(n), nil
	case TokenString:
		n := p.node(KindLiteral)
		n.Raw = p.next().Text

		// Adjacent string literals concatenate.
		for p.cur().Kind == TokenString {
			n.Raw += " " + p.next().Text
		}

		return p.add(n), nil
	case TokenKeyword:
		switch t.Text {
		case "True", "False", "None":
			n := p.node(KindLiteral)
			n.Raw = p.next().Text

			return p.add(n), nil
		case "lambda":
			return p.parseLambda()
		case "yield":
			return p.parseYield()
		}
	case TokenOp:
		switch t.Text {
		case "(":
			return p.parseParenAtom()
		case "[":
			return p.parseListAtom()
		case "{":
			return p.parseDictSetAtom()
		case "...":
			n := p.node(KindLiteral)
			n.Raw = p.next().Text

			return p.add(n), nil
		}
	}

	return NoNode, p.errf("unexpected token %q", t.Text)
}

func (p *parser) parseParenAtom() (NodeID, error) {
	p.next()

	if p.accept(TokenOp, ")") {
		return p.add(p.node(KindTuple)), nil
	}

	if p.at(TokenKeyword, "yield") {
		y, err := p.parseYield()
		if err != nil {
			return NoNode, err
		}

		_, err = p.expect(TokenOp, ")")

		return y, err
	}

	first, err := p.parseStarTest()
	if err != nil {
		return NoNode, err
	}

	if p.at(TokenKeyword, "for") {
		comp, err := p.parseCompTail("gen", first)
		if err != nil {
			return NoNode, err
		}

		_, err = p.expect(TokenOp, ")")

		return comp, err
	}

	if !p.at(TokenOp, ",") {
		// Plain parenthesized expression: grouping is re-derived from
		// precedence when rendering.
		_, err = p.expect(TokenOp, ")")

		return first, err
	}

	tuple := p.node(KindTuple)
	tuple.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.at(TokenOp, ")") {
			break
		}

		e, err := p.parseStarTest()
		if err != nil {
			return NoNode, err
		}

		tuple.Args = append(tuple.Args, e)
	}

	if _, err := p.expect(TokenOp, ")"); err != nil {
		return NoNode, err
	}

	return p.add(tuple), nil
}

func (p *parser) parseListAtom() (NodeID, error) {
	p.next()

	if p.accept(TokenOp, "]") {
		return p.add(p.node(KindList)), nil
	}

	first, err := p.parseStarTest()
	if err != nil {
		return NoNode, err
	}

	if p.at(TokenKeyword, "for") {
		comp, err := p.parseCompTail("list", first)
		if err != nil {
			return NoNode, err
		}

		_, err = p.expect(TokenOp, "]")

		return comp, err
	}

	list := p.node(KindList)
	list.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.at(TokenOp, "]") {
			break
		}

		e, err := p.parseStarTest()
		if err != nil {
			return NoNode, err
		}

		list.Args = append(list.Args, e)
	}

	if _, err := p.expect(TokenOp, "]"); err != nil {
		return NoNode, err
	}

	return p.add(list), nil
}

func (p *parser) parseDictSetAtom() (NodeID, error) {
	p.next()

	if p.accept(TokenOp, "}") {
		return p.add(p.node(KindDict)), nil
	}

	if p.accept(TokenOp, "**") {
		return p.parseDictRest(NoNode)
	}

	first, err := p.parseTest()
	if err != nil {
		return NoNode, err
	}

	if p.accept(TokenOp, ":") {
		return p.parseDictRest(first)
	}

	// Set display or set comprehension.
	if p.at(TokenKeyword, "for") {
		comp, err := p.parseCompTail("set", first)
		if err != nil {
			return NoNode, err
		}

		_, err = p.expect(TokenOp, "}")

		return comp, err
	}

	set := p.node(KindSet)
	set.Args = []NodeID{first}

	for p.accept(TokenOp, ",") {
		if p.at(TokenOp, "}") {
			break
		}

		e, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		set.Args = append(set.Args, e)
	}

	if _, err := p.expect(TokenOp, "}"); err != nil {
		return NoNode, err
	}

	return p.add(set), nil
}

// parseDictRest continues a dict display after its first key has been read.
// firstKey is NoNode when the display opened with a "**" unpacking.
func (p *parser) parseDictRest(firstKey NodeID) (NodeID, error) {
	dict := p.node(KindDict)

	appendPair := func(key NodeID) error {
		pair := p.node(KindPair)
		pair.Target = key

		v, err := p.parseTest()
		if err != nil {
			return err
		}

		pair.Value = v
		dict.Args = append(dict.Args, p.add(pair))

		return nil
	}

	if firstKey == NoNode {
		star := p.node(KindStarArg)
		star.Raw = "**"

		v, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		star.Value = v
		dict.Args = append(dict.Args, p.add(star))
	} else {
		if err := appendPair(firstKey); err != nil {
			return NoNode, err
		}

		if p.at(TokenKeyword, "for") {
			comp, err := p.parseCompTail("dict", dict.Args[0])
			if err != nil {
				return NoNode, err
			}

			_, err = p.expect(TokenOp, "}")

			return comp, err
		}
	}

	for p.accept(TokenOp, ",") {
		if p.at(TokenOp, "}") {
			break
		}

		if p.accept(TokenOp, "**") {
			star := p.node(KindStarArg)
			star.Raw = "**"

			v, err := p.parseTest()
			if err != nil {
				return NoNode, err
			}

			star.Value = v
			dict.Args = append(dict.Args, p.add(star))

			continue
		}

		key, err := p.parseTest()
		if err != nil {
			return NoNode, err
		}

		if _, err := p.expect(TokenOp, ":"); err != nil {
			return NoNode, err
		}

		if err := appendPair(key); err != nil {
			return NoNode, err
		}
	}

	if _, err := p.expect(TokenOp, "}"); err != nil {
		return NoNode, err
	}

	return p.add(dict), nil
}

// parseCompTail parses the "for ... in ... [if ...]" clauses of a
// comprehension whose element has already been parsed.
func (p *parser) parseCompTail(flavor string, elem NodeID) (NodeID, error) {
	n := p.node(KindComp)
	n.Raw = flavor
	n.Value = elem

	for p.at(TokenKeyword, "for") || (p.at(TokenKeyword, "async") && p.peekIs(1, TokenKeyword, "for")) {
		clause := p.node(KindCompFor)

		if p.accept(TokenKeyword, "async") {
			clause.Raw = "async"
		}

		p.next()

		target, err := p.parseTargetList()
		if err != nil {
			return NoNode, err
		}

		clause.Target = target
		p.setCtx(target, CtxStore)

		if _, err := p.expect(TokenKeyword, "in"); err != nil {
			return NoNode, err
		}

		iter, err := p.parseOr()
		if err != nil {
			return NoNode, err
		}

		clause.Value = iter

		for p.at(TokenKeyword, "if") {
			p.next()

			cond, err := p.parseOr()
			if err != nil {
				return NoNode, err
			}

			clause.Args = append(clause.Args, cond)
		}

		n.Args = append(n.Args, p.add(clause))
	}

	return p.add(n), nil
}
