package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pyshrink.dev/pkg/pyshrink/internal/adapter"
	"pyshrink.dev/pkg/pyshrink/internal/controller"
	"pyshrink.dev/pkg/pyshrink/internal/domain"
	"pyshrink.dev/pkg/pyshrink/internal/domain/transforms"
	m "pyshrink.dev/pkg/pyshrink/internal/model"
	"pyshrink.dev/pkg/pyshrink/pkg"
)

var (
	compressStepsFlag    []string
	compressParallelFlag int
	indentWidthFlag      int
	renameSelfFlag       bool
	typeHintKindsFlag    []string
	excludePatterns      []string
	docsOutFlag          string
	diffFlag             bool
	summaryFlag          bool
	tuiFlag              bool
	globPatterns         []string
)

// compressCmd represents the compress command.
var compressCmd = newCompressCmd()

func newCompressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress [units...]",
		Short: "Compress Python units",
		Long:  compressLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd, args)
		},
	}

	configureCompressFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(compressCmd)
}

func configureCompressFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&compressStepsFlag, stepsFlagName, defaultSteps, "ordered transform steps to apply")
	bindFlagToConfig(cmd.Flags().Lookup(stepsFlagName), stepsConfigKey)

	cmd.Flags().IntVarP(&compressParallelFlag, parallelFlagName, "p", defaultParallel, "number of parallel workers")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().IntVar(&indentWidthFlag, indentWidthFlagName, defaultIndentWidth, "target indentation width for the reindent step")
	bindFlagToConfig(cmd.Flags().Lookup(indentWidthFlagName), indentWidthConfigKey)

	cmd.Flags().BoolVar(&renameSelfFlag, renameSelfFlagName, defaultRenameSelf, "also rename the method receiver")
	bindFlagToConfig(cmd.Flags().Lookup(renameSelfFlagName), renameSelfConfigKey)

	cmd.Flags().StringSliceVar(&typeHintKindsFlag, typeHintKindsFlagName, defaultTypeHintKinds, "hint categories the typehints step removes (return, arg, variable)")
	bindFlagToConfig(cmd.Flags().Lookup(typeHintKindsFlagName), typeHintKindsConfigKey)

	cmd.Flags().StringArrayVar(&excludePatterns, excludeFlagName, nil, "skip unit paths matching a regexp (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.Flags().StringVar(&docsOutFlag, docsOutFlagName, "", "write captured docstrings to this file (.jsonl or .yaml)")
	cmd.Flags().BoolVar(&diffFlag, diffFlagName, false, "print a unified diff instead of the compressed text")
	cmd.Flags().BoolVar(&summaryFlag, summaryFlagName, false, "print a per-unit size table after the run")
	cmd.Flags().BoolVar(&tuiFlag, tuiFlagName, false, "show interactive progress (requires a terminal)")
	cmd.Flags().StringArrayVarP(&globPatterns, globFlagName, "g", nil, "add whole files matching a glob (doublestar, can be repeated)")
}

func runCompress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	refs, err := resolveRefs(args, globPatterns, viper.GetStringSlice(excludeConfigKey))
	if err != nil {
		return err
	}

	steps := viper.GetStringSlice(stepsConfigKey)

	factory, err := buildFactory(steps, buildOptions{
		indentWidth:   viper.GetInt(indentWidthConfigKey),
		renameSelf:    viper.GetBool(renameSelfConfigKey),
		typeHintKinds: viper.GetStringSlice(typeHintKindsConfigKey),
	})
	if err != nil {
		return err
	}

	var docsSpill pkg.Spill[m.DocRecord]

	if docsOutFlag != "" {
		docsSpill, err = pkg.NewSpill[m.DocRecord]()
		if err != nil {
			return err
		}

		defer func() {
			_ = docsSpill.Close()
		}()
	}

	ui := controller.NewUI(cmd, tuiFlag)
	workflow := domain.NewWorkflow(sourceAdapter, ui)

	results, err := workflow.Compress(ctx, domain.CompressArgs{
		Refs:     refs,
		Factory:  factory,
		Parallel: viper.GetInt(parallelConfigKey),
		Docs:     docsSpill,
	})
	if err != nil {
		return err
	}

	if err := displayResults(ctx, ui, results); err != nil {
		return err
	}

	if docsSpill != nil {
		if err := saveDocs(docsSpill, m.Path(docsOutFlag)); err != nil {
			return err
		}
	}

	return exitOnFailures(results)
}

// resolveRefs combines explicit unit arguments with glob-discovered files,
// then drops paths matching any exclude regexp.
func resolveRefs(args []string, globs []string, excludes []string) ([]m.UnitRef, error) {
	refs := parseRefs(args)

	if len(globs) > 0 {
		paths, err := sourceAdapter.Discover(globs)
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			refs = append(refs, m.UnitRef{Path: path})
		}
	}

	refs, err := filterRefs(refs, excludes)
	if err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("no units to compress: pass unit references or --%s patterns", globFlagName)
	}

	return refs, nil
}

func filterRefs(refs []m.UnitRef, excludes []string) ([]m.UnitRef, error) {
	if len(excludes) == 0 {
		return refs, nil
	}

	patterns := make([]*regexp.Regexp, 0, len(excludes))

	for _, expr := range excludes {
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s pattern %q: %w", excludeFlagName, expr, err)
		}

		patterns = append(patterns, pattern)
	}

	kept := refs[:0]

	for _, ref := range refs {
		excluded := false

		for _, pattern := range patterns {
			if pattern.MatchString(string(ref.Path)) {
				excluded = true
				break
			}
		}

		if !excluded {
			kept = append(kept, ref)
		}
	}

	return kept, nil
}

type buildOptions struct {
	indentWidth   int
	renameSelf    bool
	typeHintKinds []string
}

// buildFactory turns step names into a per-unit pipeline constructor.
func buildFactory(names []string, opts buildOptions) (domain.PipelineFactory, error) {
	for _, name := range names {
		switch name {
		case "docstrings", "rename", "typehints", "reindent", "blanklines":
		default:
			return nil, fmt.Errorf("unknown step %q", name)
		}
	}

	for _, kind := range opts.typeHintKinds {
		switch kind {
		case "return", "arg", "variable":
		default:
			return nil, fmt.Errorf("unknown type hint kind %q", kind)
		}
	}

	return func() domain.PipelineBuild {
		var build domain.PipelineBuild

		for _, name := range names {
			switch name {
			case "docstrings":
				capture := transforms.NewDocstringCapture()
				build.Steps = append(build.Steps, domain.TreeStep(capture))
				build.Docs = capture.Docs
			case "rename":
				renamer := transforms.NewIdentifierRenamer()
				renamer.RenameReceiver = opts.renameSelf
				build.Steps = append(build.Steps, domain.TreeStep(renamer))
			case "typehints":
				build.Steps = append(build.Steps, domain.TreeStep(typeHintStep(opts.typeHintKinds)))
			case "reindent":
				build.Steps = append(build.Steps, domain.TextStep(transforms.NewReindent(opts.indentWidth)))
			case "blanklines":
				build.Steps = append(build.Steps, domain.TextStep(transforms.NewBlankLineRemoval()))
			}
		}

		return build
	}, nil
}

// typeHintStep configures hint removal for the enabled categories only.
func typeHintStep(kinds []string) *transforms.TypeHintRemoval {
	removal := transforms.NewTypeHintRemoval()
	removal.Return = false
	removal.Arg = false
	removal.Variable = false

	for _, kind := range kinds {
		switch kind {
		case "return":
			removal.Return = true
		case "arg":
			removal.Arg = true
		case "variable":
			removal.Variable = true
		}
	}

	return removal
}

// displayResults prints diffs or compressed text, then the optional summary.
func displayResults(ctx context.Context, ui controller.UI, results []domain.BatchResult) error {
	stats := make([]m.CompressionStat, 0, len(results))

	for _, res := range results {
		stats = append(stats, res.Stat)

		if res.Stat.Err != nil {
			continue
		}

		if diffFlag {
			diff, err := unifiedDiff(res)
			if err != nil {
				return err
			}

			if err := ui.DisplayDiff(ctx, res.Ref, diff); err != nil {
				return err
			}

			continue
		}

		if err := ui.DisplayOutput(ctx, res.Ref, res.Output); err != nil {
			return err
		}
	}

	if summaryFlag {
		return ui.DisplaySummary(ctx, stats)
	}

	return nil
}

func unifiedDiff(res domain.BatchResult) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(res.Original),
		B:        difflib.SplitLines(res.Output),
		FromFile: res.Ref.String() + " (original)",
		ToFile:   res.Ref.String() + " (compressed)",
		Context:  3,
	})
}

// saveDocs drains the spill into the store matching the target extension.
func saveDocs(spill pkg.Spill[m.DocRecord], path m.Path) error {
	records := make([]m.DocRecord, 0, spill.Len())

	err := spill.Range(func(_ uint64, rec m.DocRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return err
	}

	return adapter.NewDocMapStoreFor(path).SaveRecords(path, records)
}

// exitOnFailures makes batch failures visible in the exit code without
// hiding the successful units' output.
func exitOnFailures(results []domain.BatchResult) error {
	failed := 0

	for _, res := range results {
		if res.Stat.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d units failed", failed, len(results))
	}

	return nil
}
