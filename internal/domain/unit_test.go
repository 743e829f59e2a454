package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

// mapProvider serves source text from memory.
type mapProvider map[string]string

func (p mapProvider) Source(ref m.UnitRef) (string, error) {
	src, ok := p[ref.String()]
	if !ok {
		return "", &m.RetrievalError{Ref: ref, Err: errors.New("not in fixture map")}
	}

	return src, nil
}

// noopTree leaves the tree alone, so applying it just re-renders.
type noopTree struct{}

func (noopTree) Name() string                { return "noop" }
func (noopTree) Rewrite(_ *pysrc.Tree) error { return nil }

// squeezeText drops blank lines without touching the tree.
type squeezeText struct{}

func (squeezeText) Name() string { return "squeeze" }

func (squeezeText) RewriteText(src string) (string, error) {
	var kept []string

	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n") + "\n", nil
}

type failingTree struct{}

func (failingTree) Name() string { return "failing" }

func (failingTree) Rewrite(_ *pysrc.Tree) error {
	return &m.PreconditionError{Transform: "failing", Msg: "unsupported shape"}
}

func TestNewUnitRetrievesAndParses(t *testing.T) {
	provider := mapProvider{"app.py": "x = 1\n"}

	unit, err := NewUnit(provider, m.UnitRef{Path: "app.py"})
	require.NoError(t, err)

	assert.Equal(t, "x = 1\n", unit.Raw())
	assert.NotNil(t, unit.Tree())
	assert.Equal(t, 1, unit.LineCount())
}

func TestNewUnitRetrievalFailure(t *testing.T) {
	_, err := NewUnit(mapProvider{}, m.UnitRef{Path: "gone.py"})

	var rerr *m.RetrievalError
	require.ErrorAs(t, err, &rerr)
}

func TestNewUnitFromSourceParseFailure(t *testing.T) {
	_, err := NewUnitFromSource(m.UnitRef{Path: "bad.py"}, "def f(:\n")

	var perr *m.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestApplyTreeResyncsText(t *testing.T) {
	unit, err := NewUnitFromSource(m.UnitRef{Path: "a.py"}, "x=1  # comment\n\ny=2\n")
	require.NoError(t, err)

	require.NoError(t, unit.ApplyTree(noopTree{}))

	// Rendering canonicalizes spacing and drops comments and blanks.
	assert.Equal(t, "x = 1\ny = 2\n", unit.Raw())
}

func TestApplyTextResyncsTree(t *testing.T) {
	unit, err := NewUnitFromSource(m.UnitRef{Path: "a.py"}, "x = 1\n\ny = 2\n")
	require.NoError(t, err)

	require.NoError(t, unit.ApplyText(squeezeText{}))

	assert.Equal(t, "x = 1\ny = 2\n", unit.Raw())

	// The tree tracks the rewritten text.
	root := unit.Tree().Node(unit.Tree().Root)
	assert.Len(t, root.Body, 2)
}

func TestApplyTreeFailureLeavesTextAlone(t *testing.T) {
	unit, err := NewUnitFromSource(m.UnitRef{Path: "a.py"}, "x = 1\n")
	require.NoError(t, err)

	require.Error(t, unit.ApplyTree(failingTree{}))
	assert.Equal(t, "x = 1\n", unit.Raw())
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"", 0},
		{"x = 1\n", 1},
		{"x = 1\ny = 2\n", 2},
		{"x = 1", 1},
	}

	for _, tt := range tests {
		unit := &Unit{raw: tt.src}
		assert.Equal(t, tt.want, unit.LineCount(), "%q", tt.src)
	}
}
