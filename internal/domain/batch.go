package domain

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"pyshrink.dev/pkg/pyshrink/internal/controller"
	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/pkg"
)

// PipelineBuild is one freshly constructed pipeline. Transforms carry state
// between steps (captured docstrings, rename frames), so every unit gets its
// own build. Docs drains whatever documentation the pipeline captured; it is
// nil when no step captures any.
type PipelineBuild struct {
	Steps []Step
	Docs  func() map[string]string
}

// PipelineFactory constructs a fresh pipeline for one unit.
type PipelineFactory func() PipelineBuild

// CompressArgs bundles the inputs of a batch compression run.
type CompressArgs struct {
	Refs     []m.UnitRef
	Factory  PipelineFactory
	Parallel int
	// Docs, when non-nil, receives every captured docstring record.
	Docs pkg.Spill[m.DocRecord]
}

// BatchResult is the outcome for one unit. Output is empty when Stat.Err is
// set; Original is empty when retrieval itself failed.
type BatchResult struct {
	Ref      m.UnitRef
	Original string
	Output   string
	Stat     m.CompressionStat

	docs map[string]string
}

// Workflow orchestrates compression runs over a source provider, reporting
// progress through the UI.
type Workflow struct {
	provider SourceProvider
	ui       controller.UI
}

// NewWorkflow creates a workflow over the given provider and UI.
func NewWorkflow(provider SourceProvider, ui controller.UI) *Workflow {
	return &Workflow{provider: provider, ui: ui}
}

// Compress runs the pipeline over every referenced unit, fanning out across
// Parallel workers. A unit's failure lands in its result's Stat.Err; it does
// not stop the other units. Results come back in input order.
func (w *Workflow) Compress(ctx context.Context, args CompressArgs) ([]BatchResult, error) {
	if err := w.ui.Start(ctx, len(args.Refs)); err != nil {
		return nil, err
	}

	parallel := args.Parallel
	if parallel < 1 {
		parallel = 1
	}

	results := make([]BatchResult, len(args.Refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, ref := range args.Refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			w.ui.UnitStarted(gctx, ref)

			res := w.compressOne(ref, args.Factory)
			results[i] = res

			if args.Docs != nil && res.Stat.Err == nil {
				if err := spillDocs(args.Docs, res); err != nil {
					return err
				}
			}

			w.ui.UnitFinished(gctx, res.Stat)

			return nil
		})
	}

	err := g.Wait()
	w.ui.Close(ctx)

	if err != nil {
		return nil, err
	}

	return results, nil
}

// compressOne runs a fresh pipeline over a single unit.
func (w *Workflow) compressOne(ref m.UnitRef, factory PipelineFactory) BatchResult {
	res := BatchResult{Ref: ref, Stat: m.CompressionStat{Ref: ref}}

	unit, err := NewUnit(w.provider, ref)
	if err != nil {
		slog.Warn("unit setup failed", "unit", ref.String(), "error", err)

		res.Stat.Err = err

		return res
	}

	res.Original = unit.Raw()
	res.Stat.LinesBefore = unit.LineCount()
	res.Stat.BytesBefore = len(unit.Raw())

	build := factory()

	out, err := NewCompressor(unit, build.Steps).Compress()
	if err != nil {
		slog.Warn("compression failed", "unit", ref.String(), "error", err)

		res.Stat.Err = err

		return res
	}

	res.Output = out
	res.Stat.LinesAfter = unit.LineCount()
	res.Stat.BytesAfter = len(out)

	if build.Docs != nil {
		res.docs = build.Docs()
	}

	slog.Info("unit compressed",
		"unit", ref.String(),
		"bytes_before", res.Stat.BytesBefore,
		"bytes_after", res.Stat.BytesAfter,
	)

	return res
}

// spillDocs appends the unit's captured docstrings in deterministic order.
func spillDocs(spill pkg.Spill[m.DocRecord], res BatchResult) error {
	owners := make([]string, 0, len(res.docs))
	for owner := range res.docs {
		owners = append(owners, owner)
	}

	sort.Strings(owners)

	records := make([]m.DocRecord, 0, len(owners))
	for _, owner := range owners {
		records = append(records, m.DocRecord{
			Unit:      res.Ref.String(),
			Owner:     owner,
			Docstring: res.docs[owner],
		})
	}

	return spill.AppendBatch(records)
}
