package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show pyshrink version information",
		Long:  "Displays the pyshrink build version and the Go toolchain that built it.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("pyshrink version: unknown")
				return
			}

			cmd.Printf("pyshrink %s (built with %s)\n", info.Main.Version, info.GoVersion)
		},
	}
}

// versionCmd reports how this binary was built.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
