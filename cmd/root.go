// Package cmd provides the root command and CLI setup for pyshrink.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pyshrink.dev/pkg/pyshrink/internal/adapter"
	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

var sourceAdapter *adapter.LocalSourceAdapter

// logFileFlag overrides the log file location.
var logFileFlag string

// verboseFlag raises the log level to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	sourceAdapter = adapter.NewLocalSourceAdapter()
}

const unitRefHelp = `Units are files or named top-level definitions:
  - app.py             the whole module
  - app.py:PythonCode  one class
  - util.py:retry      one function`

const rootLongDescription = `Pyshrink compresses Python source for token-constrained consumers. It
strips docstrings, renames identifiers to short generated names, removes
type hints and squeezes whitespace, keeping the result parseable.

` + unitRefHelp

const compressLongDescription = `Compress the given units through the transform pipeline and print the
result.

` + unitRefHelp

const listLongDescription = `List compressible units (files and their top-level definitions).

` + unitRefHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pyshrink",
		Short: "Python source compression tool",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", viper.GetString(logFilenameKey), "log file location")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log-file"), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("verbose"), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parseRefs(args []string) []m.UnitRef {
	refs := make([]m.UnitRef, 0, len(args))
	for _, arg := range args {
		refs = append(refs, m.ParseUnitRef(arg))
	}

	return refs
}
