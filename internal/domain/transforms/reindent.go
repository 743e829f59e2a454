package transforms

import (
	"strings"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// Reindent rewrites leading whitespace to Width spaces per indentation
// level. The original indent width is inferred as the smallest nonzero
// leading-space count over all lines; levels are the integer quotient of
// each line's leading spaces by that width, so half-step indentation
// collapses rather than erroring. Tabs are not interpreted.
type Reindent struct {
	Width int
}

// NewReindent creates a reindenter targeting the given width.
func NewReindent(width int) *Reindent {
	return &Reindent{Width: width}
}

// Name implements domain.TextRewriter.
func (r *Reindent) Name() string { return "reindent" }

// RewriteText returns src reindented. Text with no indented lines passes
// through unchanged.
func (r *Reindent) RewriteText(src string) (string, error) {
	if r.Width < 1 {
		return "", &m.PreconditionError{Transform: r.Name(), Msg: "width must be positive"}
	}

	lines := strings.Split(src, "\n")

	orig := 0

	for _, line := range lines {
		n := leadingSpaces(line)
		if n == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		if orig == 0 || n < orig {
			orig = n
		}
	}

	if orig == 0 {
		return src, nil
	}

	out := make([]string, len(lines))

	for i, line := range lines {
		n := leadingSpaces(line)
		level := n / orig
		out[i] = strings.Repeat(" ", level*r.Width) + line[n:]
	}

	return strings.Join(out, "\n"), nil
}

func leadingSpaces(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}

	return n
}
