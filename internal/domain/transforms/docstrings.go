// Package transforms implements the tree and text transforms the
// compression pipeline is assembled from.
package transforms

import (
	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// DocstringCapture removes leading documentation strings from modules,
// classes and functions, recording them by unit name. The map accumulates
// across Rewrite calls on the same instance: callers reusing one instance
// for independent runs must Clear between them, or stale entries persist.
type DocstringCapture struct {
	docs map[string]string
}

// NewDocstringCapture creates a capture transform with an empty map.
func NewDocstringCapture() *DocstringCapture {
	return &DocstringCapture{docs: make(map[string]string)}
}

// Name implements domain.TreeRewriter.
func (d *DocstringCapture) Name() string { return "docstrings" }

// Docs exposes the captured documentation, keyed by the owning unit's name
// (or the module placeholder for unnamed units).
func (d *DocstringCapture) Docs() map[string]string { return d.docs }

// Clear resets the captured map for reuse across independent runs.
func (d *DocstringCapture) Clear() {
	d.docs = make(map[string]string)
}

// Rewrite walks the whole tree so nested definitions' own leading literals
// are captured independently.
func (d *DocstringCapture) Rewrite(t *pysrc.Tree) error {
	t.Walk(t.Root, func(id pysrc.NodeID) bool {
		kind := t.Node(id).Kind
		if kind != pysrc.KindModule && kind != pysrc.KindClassDef && kind != pysrc.KindFunctionDef {
			return true
		}

		d.capture(t, id)

		return true
	})

	return nil
}

func (d *DocstringCapture) capture(t *pysrc.Tree, id pysrc.NodeID) {
	body := t.Node(id).Body
	if len(body) == 0 {
		return
	}

	first := t.Node(body[0])
	if first.Kind != pysrc.KindExprStmt || first.Value == pysrc.NoNode {
		return
	}

	lit := t.Node(first.Value)
	if !pysrc.IsStringLiteral(lit) {
		return
	}

	key := t.Node(id).Name
	if key == "" {
		key = m.ModulePlaceholder
	}

	d.docs[key] = pysrc.StringValue(lit.Raw)

	if len(body) == 1 {
		// Removing the only statement would leave an unrenderable empty
		// suite; substitute a pass.
		pass := t.Add(pysrc.NewNode(pysrc.KindPass))
		t.Node(id).Body = []pysrc.NodeID{pass}

		return
	}

	t.Node(id).Body = body[1:]
}
