package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"treetally/internal/app"
	"treetally/internal/logger"
)

var scanCmd = &cobra.Command{
	Use:   "scan [roots...]",
	Short: "Refresh the cache and write it to disk",
	Long: `Invalidate stale cache entries, walk the given roots (the configured or
discovered roots when none are given) and persist the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		result, err := app.Scan(ctx, osFs, cfg, args)
		if err != nil {
			return err
		}
		logger.Get().Debug().Str("run", result.RunID).Msg("scan finished")

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "roots:       %v\n", result.Roots)
		fmt.Fprintf(out, "records:     %s\n", humanize.Comma(int64(result.Records)))
		fmt.Fprintf(out, "checked:     %d (modified %d, disappeared %d, retried %d, evicted %d)\n",
			result.Shake.Checked, result.Shake.Modified, result.Shake.Disappeared, result.Shake.Unreadable, result.Shake.Evicted)
		fmt.Fprintf(out, "listed:      %d dirs, reused %d, measured %d\n",
			result.Walk.Listed, result.Walk.Reused, result.Walk.Measured)
		if result.Walk.Unreadable > 0 {
			fmt.Fprintf(out, "unreadable:  %d dirs\n", result.Walk.Unreadable)
		}
		fmt.Fprintf(out, "took:        %s (shake %s, walk %s)\n",
			result.Duration.Round(time.Millisecond),
			result.ShakeDuration.Round(time.Millisecond),
			result.WalkDuration.Round(time.Millisecond))
		return nil
	},
}
