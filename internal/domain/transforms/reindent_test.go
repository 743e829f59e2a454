package transforms

import (
	"testing"

	"github.com/stretchr/testify/require"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

func TestReindentNarrowsFourToTwo(t *testing.T) {
	src := "if x:\n" +
		"    y = 1\n" +
		"    if z:\n" +
		"        w = 2\n"

	out, err := NewReindent(2).RewriteText(src)
	require.NoError(t, err)

	require.Equal(t,
		"if x:\n  y = 1\n  if z:\n    w = 2\n",
		out)
}

func TestReindentUnindentedPassthrough(t *testing.T) {
	src := "a = 1\nb = 2\n"

	out, err := NewReindent(2).RewriteText(src)
	require.NoError(t, err)

	require.Equal(t, src, out)
}

func TestReindentInfersSmallestIndent(t *testing.T) {
	// Mixed two- and four-space indents: the smallest nonzero count wins
	// and deeper lines land on integer multiples of it.
	src := "if a:\n" +
		"  b = 1\n" +
		"    c = 2\n"

	out, err := NewReindent(4).RewriteText(src)
	require.NoError(t, err)

	require.Equal(t, "if a:\n    b = 1\n        c = 2\n", out)
}

func TestReindentHalfStepCollapses(t *testing.T) {
	src := "if a:\n" +
		"    b = 1\n" +
		"      c = 2\n"

	out, err := NewReindent(1).RewriteText(src)
	require.NoError(t, err)

	// Six leading spaces over an inferred width of four is still level 1.
	require.Equal(t, "if a:\n b = 1\n c = 2\n", out)
}

func TestReindentRejectsNonPositiveWidth(t *testing.T) {
	_, err := NewReindent(0).RewriteText("a = 1\n")

	var perr *m.PreconditionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "reindent", perr.Transform)
}

func TestReindentIgnoresWhitespaceOnlyLines(t *testing.T) {
	src := "if a:\n" +
		"    b = 1\n" +
		"  \n" +
		"    c = 2\n"

	out, err := NewReindent(2).RewriteText(src)
	require.NoError(t, err)

	require.Equal(t, "if a:\n  b = 1\n\n  c = 2\n", out)
}
