package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

var (
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	tuiUnitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tuiCounterStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI using Bubble Tea for interactive display. Output and
// summary printing happen after the program has quit, so Close must run
// before either.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, done: make(chan struct{})}
}

type unitStartedMsg struct {
	ref string
}

type unitFinishedMsg struct {
	failed bool
}

type runDoneMsg struct{}

// runModel is the Bubble Tea model for a compression run in flight.
type runModel struct {
	total    int
	finished int
	failed   int
	current  string
	bar      progress.Model
	width    int
	quitting bool
}

func newRunModel(total int) runModel {
	return runModel{
		total: total,
		bar:   progress.New(progress.WithDefaultGradient()),
	}
}

func (rm runModel) Init() tea.Cmd {
	return nil
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.width = msg.Width

		barWidth := msg.Width - 4
		if barWidth > 0 {
			rm.bar.Width = barWidth
		}

		return rm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			rm.quitting = true
			return rm, tea.Quit
		}

		return rm, nil

	case unitStartedMsg:
		rm.current = msg.ref
		return rm, nil

	case unitFinishedMsg:
		rm.finished++
		if msg.failed {
			rm.failed++
		}

		return rm, nil

	case runDoneMsg:
		rm.quitting = true
		return rm, tea.Quit
	}

	return rm, nil
}

func (rm runModel) View() string {
	if rm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(tuiTitleStyle.Render("pyshrink"))
	b.WriteString("\n\n")

	percent := 0.0
	if rm.total > 0 {
		percent = float64(rm.finished) / float64(rm.total)
	}

	b.WriteString("  " + rm.bar.ViewAs(percent))
	b.WriteString("\n\n")

	counter := fmt.Sprintf("  %d/%d units", rm.finished, rm.total)
	b.WriteString(tuiCounterStyle.Render(counter))

	if rm.failed > 0 {
		b.WriteString(tuiFailedStyle.Render(fmt.Sprintf("  %d failed", rm.failed)))
	}

	b.WriteString("\n")

	if rm.current != "" {
		b.WriteString(tuiUnitStyle.Render("  " + rm.current))
		b.WriteString("\n")
	}

	return b.String()
}

// Start launches the Bubble Tea program in the background.
func (p *TUI) Start(ctx context.Context, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.program = tea.NewProgram(newRunModel(total), tea.WithOutput(p.output))

	go func() {
		_, _ = p.program.Run()
		close(p.done)
	}()

	return nil
}

// UnitStarted forwards the event to the running program.
func (p *TUI) UnitStarted(ctx context.Context, ref m.UnitRef) {
	if err := ctx.Err(); err != nil {
		return
	}

	if p.program != nil {
		p.program.Send(unitStartedMsg{ref: ref.String()})
	}
}

// UnitFinished forwards the event to the running program.
func (p *TUI) UnitFinished(ctx context.Context, stat m.CompressionStat) {
	if err := ctx.Err(); err != nil {
		return
	}

	if p.program != nil {
		p.program.Send(unitFinishedMsg{failed: stat.Err != nil})
	}
}

// DisplayOutput prints the compressed text once the program has quit.
func (p *TUI) DisplayOutput(ctx context.Context, ref m.UnitRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(p.output, "# %s\n%s", ref, text); err != nil {
		return err
	}

	if len(text) > 0 && text[len(text)-1] != '\n' {
		_, _ = fmt.Fprintln(p.output)
	}

	return nil
}

// DisplayDiff prints a unified diff for one unit.
func (p *TUI) DisplayDiff(ctx context.Context, ref m.UnitRef, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprint(p.output, diff)

	return err
}

// DisplaySummary prints the shared size table.
func (p *TUI) DisplaySummary(ctx context.Context, stats []m.CompressionStat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(p.output, "\n%s", renderSummaryTable(stats))

	return err
}

// Close asks the program to quit and waits for it to unwind the terminal.
func (p *TUI) Close(ctx context.Context) {
	if p.program == nil {
		return
	}

	p.program.Send(runDoneMsg{})

	select {
	case <-p.done:
	case <-ctx.Done():
	}
}
