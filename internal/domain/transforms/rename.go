package transforms

import (
	"pyshrink.dev/pkg/pyshrink/internal/domain"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// receiverName is the conventional method receiver identifier. It is kept
// stable unless RenameReceiver is set, because downstream readers expect it.
const receiverName = "self"

// IdentifierRenamer replaces user identifiers with generated short names.
// Functions, parameters and ordinary variables draw from a lowercase
// sequence; classes from an uppercase one. Scoping is a stack of frames:
// store-context names bind in the innermost frame, load-context names
// resolve innermost to outermost and are left alone when unbound, so
// builtins and external references survive.
//
// Attribute access renames the attribute whenever its name is bound in any
// live frame. That conflates object namespaces with lexical scopes and can
// corrupt attribute references that merely share a local's name; it is kept
// because compressed output is paired with the rename map, which records
// exactly this behavior.
type IdentifierRenamer struct {
	// RenameReceiver also renames the conventional receiver identifier.
	RenameReceiver bool

	lower  *domain.NameSeq
	upper  *domain.NameSeq
	frames []map[string]string
}

// NewIdentifierRenamer creates a renamer with fresh name sequences and a
// single module-level frame.
func NewIdentifierRenamer() *IdentifierRenamer {
	return &IdentifierRenamer{
		lower:  domain.NewNameSeq(domain.LowerAlphabet),
		upper:  domain.NewNameSeq(domain.UpperAlphabet),
		frames: []map[string]string{{}},
	}
}

// Name implements domain.TreeRewriter.
func (r *IdentifierRenamer) Name() string { return "rename" }

// Reset restarts both name sequences and drops all accumulated bindings.
// Call it between independent runs sharing one instance.
func (r *IdentifierRenamer) Reset() {
	r.lower.Reset()
	r.upper.Reset()
	r.frames = []map[string]string{{}}
}

// Mapping returns the module-level frame: original name to generated name.
func (r *IdentifierRenamer) Mapping() map[string]string {
	return r.frames[0]
}

// Rewrite renames every binding and reference reachable from the root.
func (r *IdentifierRenamer) Rewrite(t *pysrc.Tree) error {
	r.visit(t, t.Root)
	return nil
}

func (r *IdentifierRenamer) visit(t *pysrc.Tree, id pysrc.NodeID) {
	if id == pysrc.NoNode {
		return
	}

	switch t.Node(id).Kind {
	case pysrc.KindFunctionDef:
		r.visitFunction(t, id)
	case pysrc.KindClassDef:
		r.visitClass(t, id)
	case pysrc.KindName:
		r.visitName(t.Node(id))
	case pysrc.KindAttribute:
		r.visit(t, t.Node(id).Value)
		r.visitAttribute(t.Node(id))
	case pysrc.KindAssign:
		// Targets bind before the value resolves, so self-referential
		// assignments rename both sides consistently.
		for _, target := range t.Node(id).Args {
			r.visit(t, target)
		}

		r.visit(t, t.Node(id).Value)
	case pysrc.KindParam:
		// Lambda parameters: bound in the current frame, no frame of
		// their own.
		r.visit(t, t.Node(id).Ann)
		r.visit(t, t.Node(id).Value)
		r.bindParam(t.Node(id))
	default:
		for _, s := range t.Slots(id) {
			r.visit(t, t.Get(s))
		}
	}
}

// visitFunction resolves decorators, annotations and defaults in the
// enclosing scope, binds the function's name there so call sites rename
// consistently, then renames parameters and body in a fresh frame.
func (r *IdentifierRenamer) visitFunction(t *pysrc.Tree, id pysrc.NodeID) {
	n := t.Node(id)

	for _, d := range n.Decorators {
		r.visit(t, d)
	}

	r.visit(t, n.Ann)

	for _, pid := range n.Params {
		p := t.Node(pid)
		r.visit(t, p.Ann)
		r.visit(t, p.Value)
	}

	n.Name = r.bindCurrent(n.Name, r.lower)

	r.push()

	for _, pid := range n.Params {
		r.bindParam(t.Node(pid))
	}

	for _, sid := range n.Body {
		r.visit(t, sid)
	}

	r.pop()
}

func (r *IdentifierRenamer) visitClass(t *pysrc.Tree, id pysrc.NodeID) {
	n := t.Node(id)

	for _, d := range n.Decorators {
		r.visit(t, d)
	}

	for _, b := range n.Args {
		r.visit(t, b)
	}

	n.Name = r.bindCurrent(n.Name, r.upper)

	r.push()

	for _, sid := range n.Body {
		r.visit(t, sid)
	}

	r.pop()
}

func (r *IdentifierRenamer) visitName(n *pysrc.Node) {
	if n.Name == receiverName && !r.RenameReceiver {
		return
	}

	switch n.Ctx {
	case pysrc.CtxStore:
		n.Name = r.bindCurrent(n.Name, r.lower)
	case pysrc.CtxLoad:
		if renamed, ok := r.lookup(n.Name); ok {
			n.Name = renamed
		}
	case pysrc.CtxDel:
		// Deletion targets stay as written.
	}
}

// visitAttribute renames the attribute when any live frame binds its name.
func (r *IdentifierRenamer) visitAttribute(n *pysrc.Node) {
	if n.Name == receiverName && !r.RenameReceiver {
		return
	}

	if renamed, ok := r.lookup(n.Name); ok {
		n.Name = renamed
	}
}

func (r *IdentifierRenamer) bindParam(p *pysrc.Node) {
	if p.Name == "" {
		// Bare "*" separator.
		return
	}

	if p.Name == receiverName && !r.RenameReceiver {
		return
	}

	p.Name = r.bindCurrent(p.Name, r.lower)
}

// bindCurrent returns the name's binding in the innermost frame, creating a
// fresh one if absent.
func (r *IdentifierRenamer) bindCurrent(name string, seq *domain.NameSeq) string {
	top := r.frames[len(r.frames)-1]
	if renamed, ok := top[name]; ok {
		return renamed
	}

	fresh := seq.Next()
	top[name] = fresh

	return fresh
}

// lookup searches frames innermost to outermost.
func (r *IdentifierRenamer) lookup(name string) (string, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if renamed, ok := r.frames[i][name]; ok {
			return renamed, true
		}
	}

	return "", false
}

func (r *IdentifierRenamer) push() {
	r.frames = append(r.frames, map[string]string{})
}

func (r *IdentifierRenamer) pop() {
	r.frames = r.frames[:len(r.frames)-1]
}
