package cmd

import (
	"github.com/spf13/cobra"

	"treetally/internal/services"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the persisted cache as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := services.LoadFile(osFs, cfg.CachePath)
		if err != nil {
			return err
		}
		return services.Dump(cmd.OutOrStdout(), store)
	},
}
