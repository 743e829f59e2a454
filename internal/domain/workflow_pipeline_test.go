package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyshrink.dev/pkg/pyshrink/internal/domain"
	"pyshrink.dev/pkg/pyshrink/internal/domain/transforms"
	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/pkg"
)

type fixtureProvider map[string]string

func (p fixtureProvider) Source(ref m.UnitRef) (string, error) {
	src, ok := p[ref.String()]
	if !ok {
		return "", &m.RetrievalError{Ref: ref, Err: errors.New("not in fixture map")}
	}

	return src, nil
}

// silentUI satisfies controller.UI for workflow tests.
type silentUI struct{}

func (silentUI) Start(_ context.Context, _ int) error                      { return nil }
func (silentUI) UnitStarted(_ context.Context, _ m.UnitRef)                {}
func (silentUI) UnitFinished(_ context.Context, _ m.CompressionStat)       {}
func (silentUI) DisplayOutput(_ context.Context, _ m.UnitRef, _ string) error { return nil }
func (silentUI) DisplayDiff(_ context.Context, _ m.UnitRef, _ string) error   { return nil }
func (silentUI) DisplaySummary(_ context.Context, _ []m.CompressionStat) error {
	return nil
}
func (silentUI) Close(_ context.Context) {}

func fullFactory() domain.PipelineBuild {
	capture := transforms.NewDocstringCapture()

	return domain.PipelineBuild{
		Steps: []domain.Step{
			domain.TreeStep(capture),
			domain.TreeStep(transforms.NewIdentifierRenamer()),
			domain.TreeStep(transforms.NewTypeHintRemoval()),
			domain.TextStep(transforms.NewReindent(1)),
			domain.TextStep(transforms.NewBlankLineRemoval()),
		},
		Docs: capture.Docs,
	}
}

func TestCompressorFullPipeline(t *testing.T) {
	src := "def greet(name: str) -> str:\n" +
		"    \"\"\"Return a greeting.\"\"\"\n" +
		"    message = \"hello \" + name\n" +
		"    return message\n"

	unit, err := domain.NewUnitFromSource(m.UnitRef{Path: "greet.py"}, src)
	require.NoError(t, err)

	out, err := domain.NewCompressor(unit, fullFactory().Steps).Compress()
	require.NoError(t, err)

	assert.Equal(t, "def a(b):\n c = \"hello \" + b\n return c", out)
}

func TestCompressorStepOrderMatters(t *testing.T) {
	src := "def greet():\n" +
		"    \"\"\"Say hello.\"\"\"\n" +
		"    return 1\n"

	t.Run("docstrings before rename keeps original key", func(t *testing.T) {
		capture := transforms.NewDocstringCapture()
		unit, err := domain.NewUnitFromSource(m.UnitRef{Path: "g.py"}, src)
		require.NoError(t, err)

		steps := []domain.Step{
			domain.TreeStep(capture),
			domain.TreeStep(transforms.NewIdentifierRenamer()),
		}

		_, err = domain.NewCompressor(unit, steps).Compress()
		require.NoError(t, err)

		assert.Contains(t, capture.Docs(), "greet")
	})

	t.Run("rename before docstrings keys by generated name", func(t *testing.T) {
		capture := transforms.NewDocstringCapture()
		unit, err := domain.NewUnitFromSource(m.UnitRef{Path: "g.py"}, src)
		require.NoError(t, err)

		steps := []domain.Step{
			domain.TreeStep(transforms.NewIdentifierRenamer()),
			domain.TreeStep(capture),
		}

		_, err = domain.NewCompressor(unit, steps).Compress()
		require.NoError(t, err)

		assert.Contains(t, capture.Docs(), "a")
	})
}

func TestCompressorWrapsStepFailure(t *testing.T) {
	unit, err := domain.NewUnitFromSource(m.UnitRef{Path: "x.py"}, "x = 1\n")
	require.NoError(t, err)

	steps := []domain.Step{domain.TextStep(transforms.NewReindent(0))}

	_, err = domain.NewCompressor(unit, steps).Compress()

	var serr *m.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "reindent", serr.Step)
	assert.Equal(t, "x.py", serr.Unit.String())

	var perr *m.PreconditionError
	assert.ErrorAs(t, err, &perr)
}

func TestWorkflowCompressBatch(t *testing.T) {
	provider := fixtureProvider{
		"a.py":   "def f(x):\n    return x\n",
		"bad.py": "def broken(:\n",
	}

	wf := domain.NewWorkflow(provider, silentUI{})

	results, err := wf.Compress(context.Background(), domain.CompressArgs{
		Refs: []m.UnitRef{
			{Path: "a.py"},
			{Path: "bad.py"},
			{Path: "missing.py"},
		},
		Factory:  fullFactory,
		Parallel: 2,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results come back in input order.
	assert.Equal(t, "a.py", results[0].Ref.String())
	require.NoError(t, results[0].Stat.Err)
	assert.Equal(t, "def a(b):\n return b", results[0].Output)
	assert.Positive(t, results[0].Stat.BytesBefore)
	assert.Positive(t, results[0].Stat.BytesAfter)

	var perr *m.ParseError
	require.ErrorAs(t, results[1].Stat.Err, &perr)

	var rerr *m.RetrievalError
	require.ErrorAs(t, results[2].Stat.Err, &rerr)
}

func TestWorkflowCompressSpillsDocRecords(t *testing.T) {
	provider := fixtureProvider{
		"mod.py": "\"\"\"Module doc.\"\"\"\n" +
			"def f():\n" +
			"    \"\"\"F doc.\"\"\"\n" +
			"    return 1\n",
	}

	spill, err := pkg.NewSpill[m.DocRecord]()
	require.NoError(t, err)

	defer func() {
		_ = spill.Close()
	}()

	wf := domain.NewWorkflow(provider, silentUI{})

	_, err = wf.Compress(context.Background(), domain.CompressArgs{
		Refs:    []m.UnitRef{{Path: "mod.py"}},
		Factory: fullFactory,
		Docs:    spill,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(2), spill.Len())

	var records []m.DocRecord

	require.NoError(t, spill.Range(func(_ uint64, rec m.DocRecord) error {
		records = append(records, rec)
		return nil
	}))

	// Owners arrive sorted per unit.
	assert.Equal(t, "f", records[0].Owner)
	assert.Equal(t, "F doc.", records[0].Docstring)
	assert.Equal(t, "module", records[1].Owner)
	assert.Equal(t, "mod.py", records[1].Unit)
}
