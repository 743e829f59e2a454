package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// SimpleUI implements UI using cobra Command's output writers. Batch runs
// get a progress bar on stderr so stdout stays pipeable.
type SimpleUI struct {
	cmd *cobra.Command
	bar *progressbar.ProgressBar
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start sets up progress reporting for the run.
func (s *SimpleUI) Start(ctx context.Context, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if total > 1 {
		s.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(s.cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("compressing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	return nil
}

// UnitStarted announces the unit when no progress bar is active.
func (s *SimpleUI) UnitStarted(ctx context.Context, ref m.UnitRef) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.bar == nil {
		s.eprintf("compressing %s\n", ref)
	}
}

// UnitFinished advances the progress bar and surfaces failures.
func (s *SimpleUI) UnitFinished(ctx context.Context, stat m.CompressionStat) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.bar != nil {
		_ = s.bar.Add(1)
	}

	if stat.Err != nil {
		s.eprintf("error: %s: %v\n", stat.Ref, stat.Err)
	}
}

// DisplayOutput prints the compressed text. Batch runs get a comment header
// so concatenated output stays attributable.
func (s *SimpleUI) DisplayOutput(ctx context.Context, ref m.UnitRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.bar != nil {
		s.printf("# %s\n", ref)
	}

	s.printf("%s", text)

	if len(text) > 0 && text[len(text)-1] != '\n' {
		s.printf("\n")
	}

	return nil
}

// DisplayDiff prints a unified diff for one unit.
func (s *SimpleUI) DisplayDiff(ctx context.Context, ref m.UnitRef, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", diff)

	return nil
}

// DisplaySummary prints the per-unit size table.
func (s *SimpleUI) DisplaySummary(ctx context.Context, stats []m.CompressionStat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(stats))

	return nil
}

// Close finishes the progress bar.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.bar != nil {
		_ = s.bar.Finish()
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func (s *SimpleUI) eprintf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}

// renderSummaryTable builds the size table shared by both UIs.
func renderSummaryTable(stats []m.CompressionStat) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Unit", "Lines", "Bytes", "Saved"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	totalBefore := 0
	totalAfter := 0
	failed := 0

	for _, stat := range stats {
		if stat.Err != nil {
			table.Append([]string{stat.Ref.String(), "-", "-", "failed"})

			failed++

			continue
		}

		table.Append([]string{
			stat.Ref.String(),
			fmt.Sprintf("%d -> %d", stat.LinesBefore, stat.LinesAfter),
			fmt.Sprintf("%d -> %d", stat.BytesBefore, stat.BytesAfter),
			fmt.Sprintf("%.1f%%", stat.Saved()*100),
		})

		totalBefore += stat.BytesBefore
		totalAfter += stat.BytesAfter
	}

	total := m.CompressionStat{BytesBefore: totalBefore, BytesAfter: totalAfter}

	footer := fmt.Sprintf("%.1f%%", total.Saved()*100)
	if failed > 0 {
		footer = fmt.Sprintf("%s (%d failed)", footer, failed)
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Units %d", len(stats)),
		"",
		fmt.Sprintf("%d -> %d", totalBefore, totalAfter),
		footer,
	})

	table.Render()

	return buf.String()
}
