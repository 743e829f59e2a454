// Package model defines the data structures shared across the compression pipeline.
package model

import "strings"

// Path represents a file system path.
type Path string

// UnitRef identifies one program unit whose source text is the input to a
// compression run. Name is empty when the reference covers a whole module.
type UnitRef struct {
	Path Path
	Name string
}

// ParseUnitRef splits a "path.py" or "path.py:Name" argument into a UnitRef.
func ParseUnitRef(arg string) UnitRef {
	if i := strings.LastIndex(arg, ":"); i > 0 && !strings.ContainsAny(arg[i+1:], "/\\") {
		return UnitRef{Path: Path(arg[:i]), Name: arg[i+1:]}
	}

	return UnitRef{Path: Path(arg)}
}

// String renders the reference back into its CLI form.
func (r UnitRef) String() string {
	if r.Name == "" {
		return string(r.Path)
	}

	return string(r.Path) + ":" + r.Name
}

// ModulePlaceholder is the map key used for docstrings captured from an
// unnamed unit (a whole module).
const ModulePlaceholder = "module"

// CompressionStat records the size of one unit before and after a pipeline run.
type CompressionStat struct {
	Ref         UnitRef
	LinesBefore int
	LinesAfter  int
	BytesBefore int
	BytesAfter  int
	Err         error
}

// Saved returns the fraction of bytes removed, in [0, 1].
func (s CompressionStat) Saved() float64 {
	if s.BytesBefore == 0 {
		return 0
	}

	saved := float64(s.BytesBefore-s.BytesAfter) / float64(s.BytesBefore)
	if saved < 0 {
		return 0
	}

	return saved
}

// DocRecord is one captured docstring, ready for dataset export.
type DocRecord struct {
	Unit      string `json:"unit" yaml:"unit"`
	Owner     string `json:"owner" yaml:"owner"`
	Docstring string `json:"docstring" yaml:"docstring"`
}
