package transforms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeHintRemovalAllCategories(t *testing.T) {
	src := "def f(x: int) -> int:\n" +
		"    y: int = x\n" +
		"    return y\n"

	out := rewriteTree(t, src, NewTypeHintRemoval())

	require.Equal(t, "def f(x):\n    y = x\n    return y\n", out)
}

func TestTypeHintRemovalKeepsDefaults(t *testing.T) {
	src := "def f(x: int = 0, *args, **kwargs) -> None:\n" +
		"    return x\n"

	out := rewriteTree(t, src, NewTypeHintRemoval())

	require.Equal(t, "def f(x=0, *args, **kwargs):\n    return x\n", out)
}

func TestTypeHintRemovalBareDeclarationSurvives(t *testing.T) {
	src := "x: int\ny: str = \"s\"\n"

	out := rewriteTree(t, src, NewTypeHintRemoval())

	require.Equal(t, "x: int\ny = \"s\"\n", out)
}

func TestTypeHintRemovalSelective(t *testing.T) {
	src := "def f(x: int) -> int:\n" +
		"    y: int = x\n" +
		"    return y\n"

	t.Run("return only", func(t *testing.T) {
		out := rewriteTree(t, src, &TypeHintRemoval{Return: true})
		require.Equal(t, "def f(x: int):\n    y: int = x\n    return y\n", out)
	})

	t.Run("args only", func(t *testing.T) {
		out := rewriteTree(t, src, &TypeHintRemoval{Arg: true})
		require.Equal(t, "def f(x) -> int:\n    y: int = x\n    return y\n", out)
	})

	t.Run("variables only", func(t *testing.T) {
		out := rewriteTree(t, src, &TypeHintRemoval{Variable: true})
		require.Equal(t, "def f(x: int) -> int:\n    y = x\n    return y\n", out)
	})
}

func TestTypeHintRemovalNestedAnnotatedAssign(t *testing.T) {
	src := "class C:\n" +
		"    count: int = 0\n" +
		"    def bump(self) -> None:\n" +
		"        step: int = 1\n" +
		"        self.count += step\n"

	out := rewriteTree(t, src, NewTypeHintRemoval())

	require.Equal(t,
		"class C:\n    count = 0\n    def bump(self):\n        step = 1\n        self.count += step\n",
		out)
}
