package transforms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenameScopesAreIsolated(t *testing.T) {
	src := "def f(x):\n" +
		"    return x\n" +
		"def g(x):\n" +
		"    return x\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t,
		"def a(b):\n    return b\ndef c(d):\n    return d\n",
		out)
}

func TestRenameReceiverPreservedByDefault(t *testing.T) {
	src := "class Greeter:\n" +
		"    def greet(self, name):\n" +
		"        return name\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t,
		"class A:\n    def a(self, b):\n        return b\n",
		out)
}

func TestRenameReceiverOptIn(t *testing.T) {
	src := "class C:\n" +
		"    def m(self):\n" +
		"        return self\n"

	r := NewIdentifierRenamer()
	r.RenameReceiver = true

	out := rewriteTree(t, src, r)

	require.Equal(t,
		"class A:\n    def a(b):\n        return b\n",
		out)
}

func TestRenameLeavesUnboundNamesAlone(t *testing.T) {
	src := "def f(x):\n" +
		"    print(len(x))\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "def a(b):\n    print(len(b))\n", out)
}

func TestRenameCallSitesFollowDefinition(t *testing.T) {
	src := "def helper():\n" +
		"    return 1\n" +
		"y = helper()\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "def a():\n    return 1\nb = a()\n", out)
}

func TestRenameAssignBindsTargetBeforeValue(t *testing.T) {
	src := "for i in range(3):\n" +
		"    total = total + i\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "for a in range(3):\n    b = b + a\n", out)
}

func TestRenameClosureReadsEnclosingFrame(t *testing.T) {
	src := "def outer():\n" +
		"    val = 1\n" +
		"    def inner():\n" +
		"        return val\n" +
		"    return inner\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t,
		"def a():\n    b = 1\n    def c():\n        return b\n    return c\n",
		out)
}

func TestRenameRepeatedStoreReusesBinding(t *testing.T) {
	src := "x = 1\nx = x + 1\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "a = 1\na = a + 1\n", out)
}

// An attribute sharing a local's name gets renamed along with it, even
// though the object's namespace is unrelated to the lexical scope. The
// rename map makes the substitution recoverable, so this stays as is.
func TestRenameAttributeFollowsLexicalBinding(t *testing.T) {
	src := "class P:\n" +
		"    def get(self, name):\n" +
		"        return self.name\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t,
		"class A:\n    def a(self, b):\n        return self.b\n",
		out)
}

func TestRenameAttributeUnboundNameSurvives(t *testing.T) {
	src := "def f(x):\n" +
		"    return x.shape\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "def a(b):\n    return b.shape\n", out)
}

func TestRenameMappingExposesModuleFrame(t *testing.T) {
	r := NewIdentifierRenamer()
	rewriteTree(t, "count = 1\ndef f():\n    pass\n", r)

	require.Equal(t, map[string]string{"count": "a", "f": "b"}, r.Mapping())
}

func TestRenameResetRestartsSequences(t *testing.T) {
	r := NewIdentifierRenamer()

	first := rewriteTree(t, "x = 1\n", r)
	require.Equal(t, "a = 1\n", first)

	r.Reset()

	second := rewriteTree(t, "y = 2\n", r)
	require.Equal(t, "a = 2\n", second)
}

func TestRenameDeletionTargetsUntouched(t *testing.T) {
	src := "x = 1\ndel x\n"

	out := rewriteTree(t, src, NewIdentifierRenamer())

	require.Equal(t, "a = 1\ndel x\n", out)
}
