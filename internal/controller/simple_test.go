package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return cmd, out, errOut
}

func TestSimpleUISingleUnitOutput(t *testing.T) {
	cmd, out, errOut := newTestCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, 1))

	ref := m.UnitRef{Path: "app.py"}
	ui.UnitStarted(ctx, ref)
	ui.UnitFinished(ctx, m.CompressionStat{Ref: ref})
	ui.Close(ctx)

	require.NoError(t, ui.DisplayOutput(ctx, ref, "x = 1\n"))

	// Single-unit runs print bare output, progress goes to stderr.
	assert.Equal(t, "x = 1\n", out.String())
	assert.Contains(t, errOut.String(), "compressing app.py")
}

func TestSimpleUIBatchOutputHasHeaders(t *testing.T) {
	cmd, out, _ := newTestCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, 2))

	require.NoError(t, ui.DisplayOutput(ctx, m.UnitRef{Path: "a.py"}, "x = 1\n"))
	require.NoError(t, ui.DisplayOutput(ctx, m.UnitRef{Path: "b.py"}, "y = 2"))

	assert.Equal(t, "# a.py\nx = 1\n# b.py\ny = 2\n", out.String())
}

func TestSimpleUIReportsFailures(t *testing.T) {
	cmd, _, errOut := newTestCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, 1))

	ui.UnitFinished(ctx, m.CompressionStat{
		Ref: m.UnitRef{Path: "bad.py"},
		Err: errors.New("parse error"),
	})

	assert.Contains(t, errOut.String(), "bad.py")
	assert.Contains(t, errOut.String(), "parse error")
}

func TestSimpleUICanceledContext(t *testing.T) {
	cmd, out, _ := newTestCmd()
	ui := NewSimpleUI(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, ui.Start(ctx, 1))
	require.Error(t, ui.DisplayOutput(ctx, m.UnitRef{Path: "a.py"}, "x = 1\n"))
	assert.Empty(t, out.String())
}

func TestRenderSummaryTable(t *testing.T) {
	stats := []m.CompressionStat{
		{
			Ref:         m.UnitRef{Path: "a.py"},
			LinesBefore: 10, LinesAfter: 5,
			BytesBefore: 100, BytesAfter: 40,
		},
		{
			Ref: m.UnitRef{Path: "bad.py"},
			Err: errors.New("boom"),
		},
	}

	table := renderSummaryTable(stats)

	assert.Contains(t, table, "a.py")
	assert.Contains(t, table, "10 -> 5")
	assert.Contains(t, table, "100 -> 40")
	assert.Contains(t, table, "60.0%")
	assert.Contains(t, table, "failed")

	// Header and footer casing is tablewriter's choice.
	assert.Contains(t, strings.ToUpper(table), "TOTAL UNITS 2")
}

func TestDisplaySummaryWritesTable(t *testing.T) {
	cmd, out, _ := newTestCmd()
	ui := NewSimpleUI(cmd)

	stats := []m.CompressionStat{{
		Ref:         m.UnitRef{Path: "a.py"},
		LinesBefore: 2, LinesAfter: 1,
		BytesBefore: 20, BytesAfter: 10,
	}}

	require.NoError(t, ui.DisplaySummary(context.Background(), stats))

	assert.Contains(t, out.String(), "a.py")
	assert.Contains(t, out.String(), "50.0%")
}

func TestIsTTYOnBuffer(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
