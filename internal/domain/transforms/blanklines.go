package transforms

import "strings"

// BlankLineRemoval drops every line that is empty or whitespace-only and
// joins the survivors with single newlines. The result carries no trailing
// newline; all-blank input collapses to the empty string.
type BlankLineRemoval struct{}

// NewBlankLineRemoval creates the transform.
func NewBlankLineRemoval() *BlankLineRemoval {
	return &BlankLineRemoval{}
}

// Name implements domain.TextRewriter.
func (b *BlankLineRemoval) Name() string { return "blanklines" }

// RewriteText filters blank lines out of src.
func (b *BlankLineRemoval) RewriteText(src string) (string, error) {
	var kept []string

	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n"), nil
}
