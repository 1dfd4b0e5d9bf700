package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"treetally/internal/app"
	"treetally/internal/domain"
)

var childrenCmd = &cobra.Command{
	Use:   "children [path]",
	Short: "List a directory with its cached totals",
	Long:  "List the entries of path with their cached size and script count. Without a path the roots are listed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresher, err := app.NewRefresher(osFs, cfg, nil)
		if err != nil {
			return err
		}
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		children, err := refresher.Children(path)
		if err != nil {
			return err
		}

		writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, child := range children {
			fmt.Fprintf(writer, "%s\t%s\t%s\t\n", sizeColumn(child), scriptColumn(child), child.Name)
		}
		return writer.Flush()
	},
}

func sizeColumn(child domain.Child) string {
	switch {
	case child.Unreadable():
		return "denied"
	case !child.Cached:
		return "-"
	default:
		return humanize.Bytes(child.Record.Size)
	}
}

func scriptColumn(child domain.Child) string {
	if !child.Cached {
		return "-"
	}
	return humanize.Comma(int64(child.Record.ScriptCount))
}
