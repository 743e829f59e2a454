// Package adapter contains UI and infrastructure adapters for the pyshrink CLI.
package adapter

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// LocalSourceAdapter resolves unit references against the local filesystem.
// A plain path reference yields the whole file; a "path.py:Name" reference
// yields the top-level definition block with that name, decorators included,
// extracted textually the way a source inspector would.
type LocalSourceAdapter struct{}

// NewLocalSourceAdapter constructs an adapter ready to be wired into the
// compression workflow.
func NewLocalSourceAdapter() *LocalSourceAdapter {
	return &LocalSourceAdapter{}
}

// Source implements domain.SourceProvider.
func (a *LocalSourceAdapter) Source(ref m.UnitRef) (string, error) {
	data, err := os.ReadFile(string(ref.Path))
	if err != nil {
		return "", &m.RetrievalError{Ref: ref, Err: err}
	}

	src := string(data)
	if ref.Name == "" {
		return src, nil
	}

	unit, ok := extractUnit(src, ref.Name)
	if !ok {
		return "", &m.RetrievalError{Ref: ref, Err: errors.New("definition not found at top level")}
	}

	return unit, nil
}

// Discover expands glob patterns (doublestar syntax, so "**" descends) into
// a sorted, deduplicated list of Python files.
func (a *LocalSourceAdapter) Discover(patterns []string) ([]m.Path, error) {
	seen := map[string]bool{}

	var paths []m.Path

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}

		for _, match := range matches {
			if filepath.Ext(match) != ".py" || seen[match] {
				continue
			}

			seen[match] = true
			paths = append(paths, m.Path(match))
		}
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths, nil
}

// topLevelPattern matches any top-level def, async def or class statement
// and captures its identifier.
var topLevelPattern = regexp.MustCompile(`^(?:async\s+def|def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// TopLevelNames lists the top-level definition names in a module, in source
// order.
func (a *LocalSourceAdapter) TopLevelNames(path m.Path) ([]string, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, &m.RetrievalError{Ref: m.UnitRef{Path: path}, Err: err}
	}

	var names []string

	for _, line := range strings.Split(string(data), "\n") {
		if match := topLevelPattern.FindStringSubmatch(line); match != nil {
			names = append(names, match[1])
		}
	}

	return names, nil
}

// defPattern matches a top-level def, async def or class statement for a
// given identifier.
func defPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:async\s+def|def|class)\s+` + regexp.QuoteMeta(name) + `\b`)
}

// extractUnit pulls the named top-level definition out of module source. The
// block runs from its first decorator to the last line before the next
// column-zero statement, with trailing blank lines trimmed.
func extractUnit(src, name string) (string, bool) {
	lines := strings.Split(src, "\n")
	pattern := defPattern(name)

	defLine := -1

	for i, line := range lines {
		if pattern.MatchString(line) {
			defLine = i
			break
		}
	}

	if defLine < 0 {
		return "", false
	}

	start := defLine
	for start > 0 && strings.HasPrefix(lines[start-1], "@") {
		start--
	}

	end := len(lines)

	for i := defLine + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			end = i
			break
		}
	}

	for end > start+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n") + "\n", true
}
