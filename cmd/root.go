package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"treetally/internal/config"
	"treetally/internal/logger"
)

var (
	configFile string
	cfg        config.Config
	osFs       = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "treetally",
	Short: "Cached directory size and script counts",
	Long: `treetally keeps a persistent cache of total size and script count for every
directory under the filesystem roots, so later scans only revisit what changed.

Run without a subcommand to open the terminal browser.`,
	SilenceUsage: true,
	RunE:         runBrowse,
}

func Execute() {
	err := rootCmd.Execute()
	logger.Reset()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig runs before every command. The browser owns the terminal, so it
// only logs to the configured file.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(osFs, configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded
	quiet := cmd == rootCmd || cmd == browseCmd
	return logger.Init(cfg.Log.Level, cfg.Log.File, quiet)
}

func init() {
	rootCmd.PersistentPreRunE = loadConfig
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is <user config dir>/treetally/config.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags(), config.DefaultConfig())
	addBrowseFlags(rootCmd)

	rootCmd.AddCommand(scanCmd, childrenCmd, dumpCmd, browseCmd)
}
