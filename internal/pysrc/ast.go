package pysrc

import "strings"

// NodeID addresses a node inside a Tree's arena.
type NodeID int32

// NoNode marks an empty child slot (absent annotation, value, etc.).
const NoNode NodeID = -1

// Kind discriminates arena nodes.
type Kind uint8

// Node kinds. Statement kinds first, then expressions.
const (
	KindInvalid Kind = iota

	KindModule
	KindClassDef
	KindFunctionDef
	KindParam
	KindAssign
	KindAnnAssign
	KindAugAssign
	KindExprStmt
	KindReturn
	KindIf
	KindWhile
	KindFor
	KindWith
	KindWithItem
	KindTry
	KindExcept
	KindRaise
	KindImport
	KindImportFrom
	KindAlias
	KindGlobal
	KindDel
	KindAssert
	KindPass
	KindBreak
	KindContinue

	KindName
	KindAttribute
	KindCall
	KindKeywordArg
	KindStarArg
	KindLiteral
	KindBinOp
	KindUnaryOp
	KindBoolOp
	KindCompare
	KindIfExp
	KindSubscript
	KindSlice
	KindList
	KindTuple
	KindSet
	KindDict
	KindPair
	KindComp
	KindCompFor
	KindYield
	KindLambda
)

// Ctx is the binding context of a name reference.
type Ctx uint8

// Name contexts. CtxDel names are deliberately outside the renamer's reach,
// matching how store/load-only context checks behave.
const (
	CtxLoad Ctx = iota
	CtxStore
	CtxDel
)

// Node is one arena entry. Which fields are meaningful depends on Kind; the
// zero NodeID fields must be initialized to NoNode via NewNode.
type Node struct {
	Kind Kind
	Name string // identifier: def/class/param name, Name id, Attribute attr, keyword name, alias target
	Raw  string // literal lexeme, operator text, alias "as" name, comp flavor, star prefix
	Ctx  Ctx

	Target NodeID // assign/for/comp-for target, raise cause, with-item alias
	Value  NodeID // RHS, attribute/subscript value, return/yield value, condition-free payload
	Ann    NodeID // annotation: FunctionDef return type, Param type, AnnAssign type
	Test   NodeID // if/while/ifexp/assert condition
	Index  NodeID // subscript index

	Params     []NodeID // FunctionDef parameters
	Decorators []NodeID // FunctionDef/ClassDef decorators
	Args       []NodeID // call args, display elems, operands, bases, targets, handlers, items
	Ops        []string // Compare operators, Global/Del identifier lists
	Body       []NodeID
	Orelse     []NodeID
	Final      []NodeID // Try finally suite

	Line int
}

// NewNode returns a Node of the given kind with all child slots empty.
func NewNode(kind Kind) Node {
	return Node{
		Kind:   kind,
		Target: NoNode,
		Value:  NoNode,
		Ann:    NoNode,
		Test:   NoNode,
		Index:  NoNode,
	}
}

// Tree is an arena-backed syntax tree. Root is always a KindModule node.
type Tree struct {
	nodes []Node
	Root  NodeID
}

// Add appends a node to the arena and returns its id.
func (t *Tree) Add(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Node returns a mutable pointer to the node with the given id. The pointer
// is invalidated by the next Add, so finish reading or writing before
// growing the arena.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Len returns the number of nodes in the arena, including orphaned ones.
func (t *Tree) Len() int { return len(t.nodes) }

// slotField identifies which child field of a parent node a Slot refers to.
type slotField uint8

const (
	slotTarget slotField = iota
	slotValue
	slotAnn
	slotTest
	slotIndex
	slotParams
	slotDecorators
	slotArgs
	slotBody
	slotOrelse
	slotFinal
)

// Slot is a settable reference to one child position of a node. Replacing a
// node is "write a new node into the arena, then Set the parent's slot".
type Slot struct {
	parent NodeID
	field  slotField
	index  int
}

// Get reads the child id currently stored in the slot.
func (t *Tree) Get(s Slot) NodeID {
	n := t.Node(s.parent)

	switch s.field {
	case slotTarget:
		return n.Target
	case slotValue:
		return n.Value
	case slotAnn:
		return n.Ann
	case slotTest:
		return n.Test
	case slotIndex:
		return n.Index
	case slotParams:
		return n.Params[s.index]
	case slotDecorators:
		return n.Decorators[s.index]
	case slotArgs:
		return n.Args[s.index]
	case slotBody:
		return n.Body[s.index]
	case slotOrelse:
		return n.Orelse[s.index]
	case slotFinal:
		return n.Final[s.index]
	}

	return NoNode
}

// Set overwrites the child id stored in the slot.
func (t *Tree) Set(s Slot, id NodeID) {
	n := t.Node(s.parent)

	switch s.field {
	case slotTarget:
		n.Target = id
	case slotValue:
		n.Value = id
	case slotAnn:
		n.Ann = id
	case slotTest:
		n.Test = id
	case slotIndex:
		n.Index = id
	case slotParams:
		n.Params[s.index] = id
	case slotDecorators:
		n.Decorators[s.index] = id
	case slotArgs:
		n.Args[s.index] = id
	case slotBody:
		n.Body[s.index] = id
	case slotOrelse:
		n.Orelse[s.index] = id
	case slotFinal:
		n.Final[s.index] = id
	}
}

// Slots lists every occupied child slot of a node, in source order.
func (t *Tree) Slots(id NodeID) []Slot {
	n := t.Node(id)

	var slots []Slot

	single := func(f slotField, child NodeID) {
		if child != NoNode {
			slots = append(slots, Slot{parent: id, field: f})
		}
	}
	list := func(f slotField, children []NodeID) {
		for i := range children {
			slots = append(slots, Slot{parent: id, field: f, index: i})
		}
	}

	list(slotDecorators, n.Decorators)
	single(slotTarget, n.Target)
	single(slotAnn, n.Ann)
	single(slotTest, n.Test)
	single(slotValue, n.Value)
	single(slotIndex, n.Index)
	list(slotParams, n.Params)
	list(slotArgs, n.Args)
	list(slotBody, n.Body)
	list(slotOrelse, n.Orelse)
	list(slotFinal, n.Final)

	return slots
}

// Walk visits id and its descendants depth-first. fn may mutate the node it
// receives; returning false stops descent into that node's children.
func (t *Tree) Walk(id NodeID, fn func(id NodeID) bool) {
	if id == NoNode {
		return
	}

	if !fn(id) {
		return
	}

	for _, s := range t.Slots(id) {
		t.Walk(t.Get(s), fn)
	}
}

// IsStringLiteral reports whether the node is a string literal, prefixed or
// not. Docstring detection relies on this.
func IsStringLiteral(n *Node) bool {
	if n.Kind != KindLiteral || n.Raw == "" {
		return false
	}

	raw := strings.TrimLeft(n.Raw, "rRbBuUfF")

	return raw != "" && (raw[0] == '\'' || raw[0] == '"')
}

// StringValue strips the prefix and quotes from a string-literal lexeme,
// returning the characters between the quotes untouched (no escape decoding,
// so captured docstrings stay verbatim).
func StringValue(raw string) string {
	s := strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}

	return s
}
