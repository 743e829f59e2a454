package model

import "fmt"

// RetrievalError reports that no source text could be obtained for a unit
// reference (missing file, or a name the provider cannot find).
type RetrievalError struct {
	Ref UnitRef
	Err error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no source available for %s: %v", e.Ref, e.Err)
	}

	return fmt.Sprintf("no source available for %s", e.Ref)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ParseError reports source text that does not conform to the subject
// language's grammar.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// RenderError reports a mutated tree that cannot be serialized back to
// source text. It indicates a transform produced a structurally invalid tree.
type RenderError struct {
	Msg string
}

func (e *RenderError) Error() string {
	return "render error: " + e.Msg
}

// PreconditionError reports a transform that received a node shape it cannot
// handle. It is surfaced immediately and never retried.
type PreconditionError struct {
	Transform string
	Msg       string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("transform %s precondition: %s", e.Transform, e.Msg)
}

// StepError wraps a failure from one pipeline step, identifying which step
// and which unit failed. Remaining steps for that unit are aborted; other
// units are unaffected.
type StepError struct {
	Unit UnitRef
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed for %s: %v", e.Step, e.Unit, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
