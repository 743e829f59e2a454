package domain

import (
	"log/slog"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// TreeRewriter mutates a syntax tree in place (through its arena).
type TreeRewriter interface {
	Name() string
	Rewrite(tree *pysrc.Tree) error
}

// TextRewriter rewrites raw source text, independent of tree structure.
type TextRewriter interface {
	Name() string
	RewriteText(src string) (string, error)
}

// Step is a closed tagged variant over the two transform kinds. Exactly one
// of the fields is set; the pipeline dispatches on which.
type Step struct {
	tree TreeRewriter
	text TextRewriter
}

// TreeStep wraps a tree rewriter as a pipeline step.
func TreeStep(rw TreeRewriter) Step { return Step{tree: rw} }

// TextStep wraps a text rewriter as a pipeline step.
func TextStep(rw TextRewriter) Step { return Step{text: rw} }

// Name returns the wrapped transform's name.
func (s Step) Name() string {
	if s.tree != nil {
		return s.tree.Name()
	}

	if s.text != nil {
		return s.text.Name()
	}

	return "empty"
}

// apply runs the step against the unit, resynchronizing text and tree.
func (s Step) apply(unit *Unit) error {
	switch {
	case s.tree != nil:
		return unit.ApplyTree(s.tree)
	case s.text != nil:
		return unit.ApplyText(s.text)
	}

	return &m.PreconditionError{Transform: "empty", Msg: "step holds no transform"}
}

// Compressor binds a unit to an ordered transform pipeline. Order is
// caller-specified and preserved: no reordering or independence analysis.
type Compressor struct {
	unit  *Unit
	steps []Step
}

// NewCompressor creates a compressor over the given unit and steps.
func NewCompressor(unit *Unit, steps []Step) *Compressor {
	return &Compressor{unit: unit, steps: steps}
}

// Compress applies every step in order and returns the final text. The
// first failing step aborts the run with a StepError naming the step and
// unit; the unit keeps the state of the last successful step.
func (c *Compressor) Compress() (string, error) {
	for _, step := range c.steps {
		slog.Debug("applying transform", "unit", c.unit.Ref().String(), "step", step.Name())

		if err := step.apply(c.unit); err != nil {
			return "", &m.StepError{Unit: c.unit.Ref(), Step: step.Name(), Err: err}
		}
	}

	return c.unit.Raw(), nil
}

// Raw returns the unit's current text without running any steps.
func (c *Compressor) Raw() string { return c.unit.Raw() }
