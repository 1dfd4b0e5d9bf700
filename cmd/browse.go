package cmd

import (
	"github.com/spf13/cobra"

	"treetally/internal/app"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the terminal browser",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	addBrowseFlags(browseCmd)
}

func addBrowseFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("refresh", false, "refresh as soon as the browser opens")
	cmd.Flags().Bool("no-save", false, "do not write sort order and theme back to the config file")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	noSave, _ := cmd.Flags().GetBool("no-save")
	return app.Browse(osFs, cfg, app.BrowseOptions{
		ConfigFile:     configFile,
		RefreshOnStart: refresh,
		SavePrefs:      !noSave,
	})
}
