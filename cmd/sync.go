package cmd

import (
	"fmt"

	"github.com/marcus/nt/internal/output"
	ntsync "github.com/marcus/nt/internal/sync"
	"github.com/marcus/nt/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Replay queued mutations and pull from the server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusOnly, _ := cmd.Flags().GetBool("status")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if statusOnly {
			pending, err := a.db.CountPending()
			if err != nil {
				return err
			}
			total, err := a.db.CountTotal()
			if err != nil {
				return err
			}
			output.Info("%d notes cached, %d operations queued", total, pending)
			return nil
		}

		if !syncconfig.IsAuthenticated() {
			output.Error("not logged in (run: nt auth login)")
			return fmt.Errorf("not authenticated")
		}

		summary, err := a.engine.SyncNow(cmd.Context())
		if err != nil {
			output.Error("sync: %v", err)
			return err
		}
		if summary.Skipped {
			output.Warning("sync skipped (offline or already running)")
			return nil
		}

		output.Success("sync done: pushed %d, pulled %d", summary.Pushed, summary.Pulled)
		if summary.Conflicts > 0 {
			output.Warning("%d operation(s) rejected by the server and moved to conflict", summary.Conflicts)
		}
		if summary.Dropped > 0 {
			output.Warning("%d operation(s) dropped after %d failed attempts", summary.Dropped, ntsync.MaxRetry)
		}
		if summary.Remaining > 0 {
			output.Info("%d operation(s) still queued", summary.Remaining)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("status", false, "show cache and queue counts without syncing")
	rootCmd.AddCommand(syncCmd)
}
