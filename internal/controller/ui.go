// Package controller provides output adapters for displaying compression runs.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// UI defines the interface for displaying a compression run.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	// Start prepares the UI for a run over total units.
	Start(ctx context.Context, total int) error
	// UnitStarted reports that a unit's pipeline began.
	UnitStarted(ctx context.Context, ref m.UnitRef)
	// UnitFinished reports one unit's outcome, success or failure.
	UnitFinished(ctx context.Context, stat m.CompressionStat)
	// DisplayOutput prints a unit's compressed text.
	DisplayOutput(ctx context.Context, ref m.UnitRef, text string) error
	// DisplayDiff prints a unified diff between original and compressed text.
	DisplayDiff(ctx context.Context, ref m.UnitRef, diff string) error
	// DisplaySummary prints the per-unit size table.
	DisplaySummary(ctx context.Context, stats []m.CompressionStat) error
	// Close finalizes the UI. Call it before printing output or summaries.
	Close(ctx context.Context)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// NewUI picks the interactive TUI when requested and the output is a
// terminal, the plain printer otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive && IsTTY(cmd.OutOrStdout()) {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}
