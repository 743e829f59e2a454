package transforms

import "pyshrink.dev/pkg/pyshrink/internal/pysrc"

// TypeHintRemoval strips static type annotations. Each category can be
// toggled independently; the zero value removes nothing, NewTypeHintRemoval
// removes everything.
type TypeHintRemoval struct {
	// Return drops function return annotations.
	Return bool
	// Arg drops parameter annotations.
	Arg bool
	// Variable turns annotated assignments into plain assignments.
	Variable bool
}

// NewTypeHintRemoval creates a removal transform covering all categories.
func NewTypeHintRemoval() *TypeHintRemoval {
	return &TypeHintRemoval{Return: true, Arg: true, Variable: true}
}

// Name implements domain.TreeRewriter.
func (r *TypeHintRemoval) Name() string { return "typehints" }

// Rewrite clears annotation slots in place. Annotated assignments carrying a
// value are replaced by fresh Assign nodes through their parent slot; bare
// annotated declarations stay untouched because dropping the annotation
// would leave no statement at all.
func (r *TypeHintRemoval) Rewrite(t *pysrc.Tree) error {
	r.walk(t, t.Root)
	return nil
}

func (r *TypeHintRemoval) walk(t *pysrc.Tree, id pysrc.NodeID) {
	if id == pysrc.NoNode {
		return
	}

	switch t.Node(id).Kind {
	case pysrc.KindFunctionDef:
		if r.Return {
			t.Node(id).Ann = pysrc.NoNode
		}
	case pysrc.KindParam:
		if r.Arg {
			t.Node(id).Ann = pysrc.NoNode
		}
	}

	for _, s := range t.Slots(id) {
		child := t.Get(s)
		if child == pysrc.NoNode {
			continue
		}

		c := t.Node(child)
		if c.Kind == pysrc.KindAnnAssign && r.Variable && c.Value != pysrc.NoNode {
			target, value, line := c.Target, c.Value, c.Line

			assign := pysrc.NewNode(pysrc.KindAssign)
			assign.Args = []pysrc.NodeID{target}
			assign.Value = value
			assign.Line = line

			// Adding may grow the arena, so c is stale past this point.
			replacement := t.Add(assign)
			t.Set(s, replacement)

			r.walk(t, target)
			r.walk(t, value)

			continue
		}

		r.walk(t, child)
	}
}
