package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ruleloop/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a decay sweep over all active rules",
		Long: `Recompute every active rule's confidence from its usage counters,
archive rules that fall below the archive threshold, and commit the whole
batch atomically.

With --watch the sweep repeats on the configured interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			watch, _ := cmd.Flags().GetBool("watch")
			if watch {
				scheduler := sweep.NewScheduler(a.sweeper, a.cfg.Sweep.Interval, a.logger)
				return scheduler.Run(cmd.Context())
			}

			result, err := a.sweeper.Run(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"processed":      result.Processed,
					"updated":        result.Updated,
					"archived":       result.Archived,
					"affected_users": result.AffectedUsers,
				})
			}

			fmt.Printf("Sweep complete: %d rules processed, %d updated, %d archived",
				result.Processed, result.Updated, result.Archived)
			if len(result.AffectedUsers) > 0 {
				fmt.Printf(" (%d users affected)", len(result.AffectedUsers))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("watch", false, "Keep sweeping on the configured interval")
	return cmd
}
