package domain

import (
	"strings"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// SourceProvider resolves a unit reference to its original source text. It
// deliberately hides how the lookup happens (filesystem, archive, ...) so
// the pipeline can be tested without touching the disk.
type SourceProvider interface {
	// Source returns the text for ref, or an error satisfying
	// *model.RetrievalError when no source is obtainable.
	Source(ref m.UnitRef) (string, error)
}

// Unit binds one program entity's raw source text to its parsed tree. The
// two representations are resynchronized after every transform step: text
// and tree are never observed out of sync outside an in-progress step.
type Unit struct {
	ref  m.UnitRef
	raw  string
	tree *pysrc.Tree
}

// NewUnit retrieves and parses the source for ref.
func NewUnit(provider SourceProvider, ref m.UnitRef) (*Unit, error) {
	raw, err := provider.Source(ref)
	if err != nil {
		return nil, err
	}

	tree, err := pysrc.Parse(raw)
	if err != nil {
		return nil, err
	}

	return &Unit{ref: ref, raw: raw, tree: tree}, nil
}

// NewUnitFromSource builds a unit directly from source text.
func NewUnitFromSource(ref m.UnitRef, raw string) (*Unit, error) {
	tree, err := pysrc.Parse(raw)
	if err != nil {
		return nil, err
	}

	return &Unit{ref: ref, raw: raw, tree: tree}, nil
}

// Ref returns the unit's reference.
func (u *Unit) Ref() m.UnitRef { return u.ref }

// Raw returns the current source text.
func (u *Unit) Raw() string { return u.raw }

// Tree returns the current syntax tree.
func (u *Unit) Tree() *pysrc.Tree { return u.tree }

// LineCount returns how many newline-delimited lines the current text has.
func (u *Unit) LineCount() int {
	if u.raw == "" {
		return 0
	}

	return len(strings.Split(strings.TrimSuffix(u.raw, "\n"), "\n"))
}

// ApplyTree runs a tree rewriter over the unit's tree and regenerates the
// raw text by rendering the mutated tree. There is no incremental diffing:
// every apply is a full replace-and-resync.
func (u *Unit) ApplyTree(rw TreeRewriter) error {
	if err := rw.Rewrite(u.tree); err != nil {
		return err
	}

	raw, err := pysrc.Render(u.tree)
	if err != nil {
		return err
	}

	u.raw = raw

	return nil
}

// ApplyText runs a text rewriter over the raw source and re-parses the
// result, so the tree tracks whatever the rewriter produced.
func (u *Unit) ApplyText(rw TextRewriter) error {
	raw, err := rw.RewriteText(u.raw)
	if err != nil {
		return err
	}

	tree, err := pysrc.Parse(raw)
	if err != nil {
		return err
	}

	u.raw = raw
	u.tree = tree

	return nil
}
