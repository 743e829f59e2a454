package transforms

import (
	"testing"

	"github.com/stretchr/testify/require"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/internal/pysrc"
)

func rewriteTree(t *testing.T, src string, rw interface {
	Rewrite(tree *pysrc.Tree) error
}) string {
	t.Helper()

	tree, err := pysrc.Parse(src)
	require.NoError(t, err)

	require.NoError(t, rw.Rewrite(tree))

	out, err := pysrc.Render(tree)
	require.NoError(t, err)

	return out
}

func TestDocstringCaptureFunction(t *testing.T) {
	src := "def greet(name):\n" +
		"    \"\"\"Say hello.\"\"\"\n" +
		"    return name\n"

	dc := NewDocstringCapture()
	out := rewriteTree(t, src, dc)

	require.Equal(t, "def greet(name):\n    return name\n", out)
	require.Equal(t, map[string]string{"greet": "Say hello."}, dc.Docs())
}

func TestDocstringCaptureModuleUsesPlaceholder(t *testing.T) {
	src := "\"\"\"Module doc.\"\"\"\n" +
		"x = 1\n"

	dc := NewDocstringCapture()
	out := rewriteTree(t, src, dc)

	require.Equal(t, "x = 1\n", out)
	require.Equal(t, "Module doc.", dc.Docs()[m.ModulePlaceholder])
}

func TestDocstringCaptureNestedDefinitions(t *testing.T) {
	src := "class Greeter:\n" +
		"    \"\"\"A greeter.\"\"\"\n" +
		"    def greet(self):\n" +
		"        \"\"\"Say hello.\"\"\"\n" +
		"        return 1\n"

	dc := NewDocstringCapture()
	out := rewriteTree(t, src, dc)

	require.NotContains(t, out, "A greeter")
	require.NotContains(t, out, "Say hello")
	require.Equal(t, "A greeter.", dc.Docs()["Greeter"])
	require.Equal(t, "Say hello.", dc.Docs()["greet"])
}

func TestDocstringOnlyBodyBecomesPass(t *testing.T) {
	src := "def stub():\n" +
		"    \"\"\"Not implemented yet.\"\"\"\n"

	dc := NewDocstringCapture()
	out := rewriteTree(t, src, dc)

	require.Equal(t, "def stub():\n    pass\n", out)
	require.Equal(t, "Not implemented yet.", dc.Docs()["stub"])
}

func TestNonDocstringFirstStatementUntouched(t *testing.T) {
	src := "def f():\n" +
		"    x = \"not a docstring\"\n" +
		"    return x\n"

	dc := NewDocstringCapture()
	out := rewriteTree(t, src, dc)

	require.Contains(t, out, "not a docstring")
	require.Empty(t, dc.Docs())
}

func TestDocstringMapAccumulatesUntilCleared(t *testing.T) {
	dc := NewDocstringCapture()

	rewriteTree(t, "def a():\n    \"\"\"A.\"\"\"\n    pass\n", dc)
	rewriteTree(t, "def b():\n    \"\"\"B.\"\"\"\n    pass\n", dc)

	require.Len(t, dc.Docs(), 2)

	dc.Clear()
	require.Empty(t, dc.Docs())
}

func TestDocstringCaptureTripleQuotedMultiline(t *testing.T) {
	src := "def f():\n" +
		"    \"\"\"First line.\n\n    Details.\n    \"\"\"\n" +
		"    return 1\n"

	dc := NewDocstringCapture()
	rewriteTree(t, src, dc)

	require.Equal(t, "First line.\n\n    Details.\n    ", dc.Docs()["f"])
}
