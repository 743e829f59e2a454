package pysrc

import (
	"strings"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// Operator precedence levels, lowest first. Rendering re-derives the
// minimal parentheses from these, so render∘parse is idempotent on
// well-formed output.
const (
	precLambda = iota
	precIfExp
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precUnary
	precPower
	precPostfix
)

var binOpPrec = map[string]int{
	"|": precBitOr, "^": precBitXor, "&": precBitAnd,
	"<<": precShift, ">>": precShift,
	"+": precArith, "-": precArith,
	"*": precTerm, "/": precTerm, "//": precTerm, "%": precTerm, "@": precTerm,
	"**": precPower,
}

const indentUnit = "    "

// Render serializes a tree back to canonical source text: four-space
// indents, no comments, no blank lines. It is the structural inverse of
// Parse for any tree the transforms can produce.
func Render(t *Tree) (string, error) {
	r := &renderer{t: t}

	if t.Root == NoNode || t.Node(t.Root).Kind != KindModule {
		return "", &m.RenderError{Msg: "tree has no module root"}
	}

	for _, stmt := range t.Node(t.Root).Body {
		r.stmt(stmt, 0)
	}

	if r.err != nil {
		return "", r.err
	}

	return r.b.String(), nil
}

type renderer struct {
	t   *Tree
	b   strings.Builder
	err error
}

func (r *renderer) fail(msg string) {
	if r.err == nil {
		r.err = &m.RenderError{Msg: msg}
	}
}

func (r *renderer) line(indent int, text string) {
	for i := 0; i < indent; i++ {
		r.b.WriteString(indentUnit)
	}

	r.b.WriteString(text)
	r.b.WriteString("\n")
}

// suite renders an indented block, failing on an empty body: a definition
// or compound statement without statements cannot be serialized.
func (r *renderer) suite(body []NodeID, indent int) {
	if len(body) == 0 {
		r.fail("empty suite")
		return
	}

	for _, stmt := range body {
		r.stmt(stmt, indent)
	}
}

func (r *renderer) stmt(id NodeID, indent int) {
	if r.err != nil {
		return
	}

	if id == NoNode {
		r.fail("missing statement node")
		return
	}

	n := r.t.Node(id)

	switch n.Kind {
	case KindFunctionDef:
		r.functionDef(id, indent)
	case KindClassDef:
		r.classDef(id, indent)
	case KindIf:
		r.ifStmt(id, indent, "if")
	case KindWhile:
		r.line(indent, "while "+r.expr(n.Test, precLambda)+":")
		r.suite(n.Body, indent+1)

		if len(n.Orelse) > 0 {
			r.line(indent, "else:")
			r.suite(n.Orelse, indent+1)
		}
	case KindFor:
		head := "for "
		if n.Raw == "async" {
			head = "async for "
		}

		r.line(indent, head+r.targetList(n.Target)+" in "+r.exprList(n.Value)+":")
		r.suite(n.Body, indent+1)

		if len(n.Orelse) > 0 {
			r.line(indent, "else:")
			r.suite(n.Orelse, indent+1)
		}
	case KindWith:
		r.withStmt(id, indent)
	case KindTry:
		r.tryStmt(id, indent)
	case KindReturn:
		if n.Value == NoNode {
			r.line(indent, "return")
		} else {
			r.line(indent, "return "+r.exprList(n.Value))
		}
	case KindRaise:
		switch {
		case n.Value == NoNode:
			r.line(indent, "raise")
		case n.Target != NoNode:
			r.line(indent, "raise "+r.expr(n.Value, precLambda)+" from "+r.expr(n.Target, precLambda))
		default:
			r.line(indent, "raise "+r.expr(n.Value, precLambda))
		}
	case KindAssign:
		var parts []string
		for _, target := range n.Args {
			parts = append(parts, r.exprList(target))
		}

		parts = append(parts, r.exprList(n.Value))
		r.line(indent, strings.Join(parts, " = "))
	case KindAnnAssign:
		text := r.expr(n.Target, precPostfix) + ": " + r.expr(n.Ann, precLambda)
		if n.Value != NoNode {
			text += " = " + r.exprList(n.Value)
		}

		r.line(indent, text)
	case KindAugAssign:
		r.line(indent, r.expr(n.Target, precPostfix)+" "+n.Raw+" "+r.exprList(n.Value))
	case KindExprStmt:
		r.line(indent, r.exprList(n.Value))
	case KindImport:
		r.line(indent, "import "+r.aliases(n.Args))
	case KindImportFrom:
		r.line(indent, "from "+n.Name+" import "+r.aliases(n.Args))
	case KindGlobal:
		r.line(indent, n.Raw+" "+strings.Join(n.Ops, ", "))
	case KindDel:
		var parts []string
		for _, t := range n.Args {
			parts = append(parts, r.expr(t, precLambda))
		}

		r.line(indent, "del "+strings.Join(parts, ", "))
	case KindAssert:
		text := "assert " + r.expr(n.Test, precLambda)
		if n.Value != NoNode {
			text += ", " + r.expr(n.Value, precLambda)
		}

		r.line(indent, text)
	case KindPass:
		r.line(indent, "pass")
	case KindBreak:
		r.line(indent, "break")
	case KindContinue:
		r.line(indent, "continue")
	default:
		r.fail("node kind not valid as a statement")
	}
}

func (r *renderer) functionDef(id NodeID, indent int) {
	n := r.t.Node(id)

	for _, d := range n.Decorators {
		r.line(indent, "@"+r.expr(d, precLambda))
	}

	head := "def "
	if n.Raw == "async" {
		head = "async def "
	}

	var params []string
	for _, p := range n.Params {
		params = append(params, r.param(p))
	}

	text := head + n.Name + "(" + strings.Join(params, ", ") + ")"
	if n.Ann != NoNode {
		text += " -> " + r.expr(n.Ann, precLambda)
	}

	r.line(indent, text+":")
	r.suite(n.Body, indent+1)
}

func (r *renderer) param(id NodeID) string {
	n := r.t.Node(id)
	if n.Kind != KindParam {
		r.fail("parameter list holds a non-parameter node")
		return ""
	}

	text := n.Raw + n.Name

	if n.Ann != NoNode {
		text += ": " + r.expr(n.Ann, precLambda)
	}

	if n.Value != NoNode {
		// Defaults are spaced only when an annotation is present.
		if n.Ann != NoNode {
			text += " = " + r.expr(n.Value, precLambda)
		} else {
			text += "=" + r.expr(n.Value, precLambda)
		}
	}

	return text
}

func (r *renderer) classDef(id NodeID, indent int) {
	n := r.t.Node(id)

	for _, d := range n.Decorators {
		r.line(indent, "@"+r.expr(d, precLambda))
	}

	text := "class " + n.Name
	if len(n.Args) > 0 {
		var bases []string
		for _, b := range n.Args {
			bases = append(bases, r.expr(b, precLambda))
		}

		text += "(" + strings.Join(bases, ", ") + ")"
	}

	r.line(indent, text+":")
	r.suite(n.Body, indent+1)
}

func (r *renderer) ifStmt(id NodeID, indent int, keyword string) {
	n := r.t.Node(id)

	r.line(indent, keyword+" "+r.expr(n.Test, precLambda)+":")
	r.suite(n.Body, indent+1)

	if len(n.Orelse) == 0 {
		return
	}

	// A lone nested if in the else branch collapses back to elif.
	if len(n.Orelse) == 1 && r.t.Node(n.Orelse[0]).Kind == KindIf {
		r.ifStmt(n.Orelse[0], indent, "elif")
		return
	}

	r.line(indent, "else:")
	r.suite(n.Orelse, indent+1)
}

func (r *renderer) withStmt(id NodeID, indent int) {
	n := r.t.Node(id)

	head := "with "
	if n.Raw == "async" {
		head = "async with "
	}

	var items []string

	for _, itemID := range n.Args {
		item := r.t.Node(itemID)

		text := r.expr(item.Value, precLambda)
		if item.Target != NoNode {
			text += " as " + r.expr(item.Target, precLambda)
		}

		items = append(items, text)
	}

	r.line(indent, head+strings.Join(items, ", ")+":")
	r.suite(n.Body, indent+1)
}

func (r *renderer) tryStmt(id NodeID, indent int) {
	n := r.t.Node(id)

	r.line(indent, "try:")
	r.suite(n.Body, indent+1)

	for _, hid := range n.Args {
		h := r.t.Node(hid)

		text := "except"
		if h.Value != NoNode {
			text += " " + r.expr(h.Value, precLambda)
			if h.Name != "" {
				text += " as " + h.Name
			}
		}

		r.line(indent, text+":")
		r.suite(h.Body, indent+1)
	}

	if len(n.Orelse) > 0 {
		r.line(indent, "else:")
		r.suite(n.Orelse, indent+1)
	}

	if len(n.Final) > 0 {
		r.line(indent, "finally:")
		r.suite(n.Final, indent+1)
	}
}

func (r *renderer) aliases(ids []NodeID) string {
	var parts []string

	for _, id := range ids {
		a := r.t.Node(id)

		text := a.Name
		if a.Raw != "" {
			text += " as " + a.Raw
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, ", ")
}

// exprList renders an expression in statement position, where a tuple may
// appear without parentheses.
func (r *renderer) exprList(id NodeID) string {
	if id == NoNode {
		r.fail("missing expression node")
		return ""
	}

	n := r.t.Node(id)
	if n.Kind == KindTuple && len(n.Args) > 0 {
		return r.tupleItems(n)
	}

	return r.expr(id, precLambda)
}

// targetList is exprList for assignment/loop targets.
func (r *renderer) targetList(id NodeID) string {
	return r.exprList(id)
}

func (r *renderer) tupleItems(n *Node) string {
	var parts []string
	for _, e := range n.Args {
		parts = append(parts, r.expr(e, precIfExp))
	}

	if len(parts) == 1 {
		return parts[0] + ","
	}

	return strings.Join(parts, ", ")
}

// expr renders one expression node; parentheses are added whenever the
// node binds looser than its context requires.
func (r *renderer) expr(id NodeID, ctx int) string {
	if r.err != nil {
		return ""
	}

	if id == NoNode {
		r.fail("missing expression node")
		return ""
	}

	n := r.t.Node(id)

	text, prec := r.exprPrec(id, n)
	if prec < ctx {
		return "(" + text + ")"
	}

	return text
}

//nolint:cyclop,funlen // One case per expression kind.
func (r *renderer) exprPrec(id NodeID, n *Node) (string, int) {
	switch n.Kind {
	case KindName:
		return n.Name, precPostfix
	case KindLiteral:
		return n.Raw, precPostfix
	case KindAttribute:
		return r.expr(n.Value, precPostfix) + "." + n.Name, precPostfix
	case KindCall:
		var args []string
		for _, a := range n.Args {
			args = append(args, r.expr(a, precIfExp))
		}

		return r.expr(n.Value, precPostfix) + "(" + strings.Join(args, ", ") + ")", precPostfix
	case KindKeywordArg:
		return n.Name + "=" + r.expr(n.Value, precIfExp), precPostfix
	case KindStarArg:
		return n.Raw + r.expr(n.Value, precOr), precPostfix
	case KindSubscript:
		return r.expr(n.Value, precPostfix) + "[" + r.subscriptIndex(n.Index) + "]", precPostfix
	case KindBinOp:
		prec := binOpPrec[n.Raw]
		left, right := prec, prec+1

		if n.Raw == "**" {
			left, right = prec+1, prec
		}

		if len(n.Args) != 2 {
			r.fail("binary operator without two operands")
			return "", prec
		}

		return r.expr(n.Args[0], left) + " " + n.Raw + " " + r.expr(n.Args[1], right), prec
	case KindUnaryOp:
		switch n.Raw {
		case "not":
			return "not " + r.expr(n.Value, precNot), precNot
		case "await":
			return "await " + r.expr(n.Value, precUnary), precUnary
		default:
			return n.Raw + r.expr(n.Value, precUnary), precUnary
		}
	case KindBoolOp:
		prec := precOr
		if n.Raw == "and" {
			prec = precAnd
		}

		var parts []string
		for _, e := range n.Args {
			parts = append(parts, r.expr(e, prec+1))
		}

		return strings.Join(parts, " "+n.Raw+" "), prec
	case KindCompare:
		text := r.expr(n.Value, precCompare+1)
		for i, op := range n.Ops {
			text += " " + op + " " + r.expr(n.Args[i], precCompare+1)
		}

		return text, precCompare
	case KindIfExp:
		if len(n.Orelse) != 1 {
			r.fail("conditional expression without else branch")
			return "", precIfExp
		}

		return r.expr(n.Value, precOr) + " if " + r.expr(n.Test, precOr) +
			" else " + r.expr(n.Orelse[0], precIfExp), precIfExp
	case KindLambda:
		var params []string
		for _, p := range n.Params {
			params = append(params, r.param(p))
		}

		head := "lambda"
		if len(params) > 0 {
			head += " " + strings.Join(params, ", ")
		}

		return head + ": " + r.expr(n.Value, precLambda), precLambda
	case KindYield:
		text := "yield"
		if n.Raw == "from" {
			text += " from"
		}

		if n.Value != NoNode {
			text += " " + r.exprList(n.Value)
		}

		return text, precLambda
	case KindTuple:
		if len(n.Args) == 0 {
			return "()", precPostfix
		}

		return "(" + r.tupleItems(n) + ")", precPostfix
	case KindList:
		return "[" + r.commaJoin(n.Args) + "]", precPostfix
	case KindSet:
		return "{" + r.commaJoin(n.Args) + "}", precPostfix
	case KindDict:
		var parts []string

		for _, e := range n.Args {
			entry := r.t.Node(e)
			if entry.Kind == KindPair {
				parts = append(parts, r.expr(entry.Target, precIfExp)+": "+r.expr(entry.Value, precIfExp))
			} else {
				parts = append(parts, r.expr(e, precIfExp))
			}
		}

		return "{" + strings.Join(parts, ", ") + "}", precPostfix
	case KindPair:
		return r.expr(n.Target, precIfExp) + ": " + r.expr(n.Value, precIfExp), precPostfix
	case KindComp:
		return r.comprehension(id, n), precPostfix
	default:
		r.fail("node kind not valid as an expression")
		return "", precPostfix
	}
}

// subscriptIndex renders the inside of a[...]: plain indexes, slices, or
// an unparenthesized tuple of either.
func (r *renderer) subscriptIndex(id NodeID) string {
	if id == NoNode {
		r.fail("missing subscript index")
		return ""
	}

	n := r.t.Node(id)

	switch n.Kind {
	case KindSlice:
		return r.slice(n)
	case KindTuple:
		var parts []string

		for _, e := range n.Args {
			item := r.t.Node(e)
			if item.Kind == KindSlice {
				parts = append(parts, r.slice(item))
			} else {
				parts = append(parts, r.expr(e, precIfExp))
			}
		}

		if len(parts) == 1 {
			return parts[0] + ","
		}

		return strings.Join(parts, ", ")
	default:
		return r.expr(id, precLambda)
	}
}

func (r *renderer) slice(n *Node) string {
	if len(n.Args) != 3 {
		r.fail("slice without three parts")
		return ""
	}

	part := func(id NodeID) string {
		if id == NoNode {
			return ""
		}

		return r.expr(id, precIfExp)
	}

	text := part(n.Args[0]) + ":" + part(n.Args[1])
	if n.Args[2] != NoNode {
		text += ":" + part(n.Args[2])
	}

	return text
}

func (r *renderer) commaJoin(ids []NodeID) string {
	var parts []string
	for _, e := range ids {
		parts = append(parts, r.expr(e, precIfExp))
	}

	return strings.Join(parts, ", ")
}

func (r *renderer) comprehension(_ NodeID, n *Node) string {
	var elem string

	entry := r.t.Node(n.Value)
	if n.Raw == "dict" && entry.Kind == KindPair {
		elem = r.expr(entry.Target, precIfExp) + ": " + r.expr(entry.Value, precIfExp)
	} else {
		elem = r.expr(n.Value, precIfExp)
	}

	var clauses []string

	for _, cid := range n.Args {
		c := r.t.Node(cid)

		clause := "for "
		if c.Raw == "async" {
			clause = "async for "
		}

		clause += r.targetList(c.Target) + " in " + r.expr(c.Value, precOr)
		for _, cond := range c.Args {
			clause += " if " + r.expr(cond, precOr)
		}

		clauses = append(clauses, clause)
	}

	body := elem + " " + strings.Join(clauses, " ")

	switch n.Raw {
	case "list":
		return "[" + body + "]"
	case "set":
		return "{" + body + "}"
	case "dict":
		return "{" + body + "}"
	default:
		return "(" + body + ")"
	}
}
