package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

var listGlobPatterns []string

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [files...]",
		Short: "List compressible units",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args)
		},
	}

	cmd.Flags().StringArrayVarP(&listGlobPatterns, globFlagName, "g", nil, "add files matching a glob (doublestar, can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	if len(listGlobPatterns) > 0 {
		discovered, err := sourceAdapter.Discover(listGlobPatterns)
		if err != nil {
			return err
		}

		paths = append(paths, discovered...)
	}

	if len(paths) == 0 {
		return fmt.Errorf("no files to list: pass paths or --%s patterns", globFlagName)
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"File", "Units"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	totalUnits := 0

	for _, path := range paths {
		names, err := sourceAdapter.TopLevelNames(path)
		if err != nil {
			return err
		}

		table.Append([]string{string(path), fmt.Sprintf("%d", len(names))})

		for _, name := range names {
			table.Append([]string{"  " + string(path) + ":" + name, ""})
		}

		totalUnits += len(names)
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(paths)),
		fmt.Sprintf("%d", totalUnits),
	})

	table.Render()

	cmd.Printf("\n%s", buf.String())

	return nil
}
