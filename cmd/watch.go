package cmd

import (
	"os/signal"
	"syscall"

	"github.com/marcus/nt/internal/output"
	"github.com/marcus/nt/internal/scheduler"
	"github.com/marcus/nt/internal/syncconfig"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Run background sync and print the note list as it changes",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// watch mode runs the real reachability prober instead of the
		// optimistic one-shot default
		a.monitor.SetOnline(false)
		go a.monitor.Run(ctx)

		sched := scheduler.New(a.engine, a.monitor, syncconfig.GetAutoSyncInterval())
		sched.SetDebounce(syncconfig.GetAutoSyncDebounce())
		go sched.Run(ctx)

		notes, cancel := a.engine.Notes()
		defer cancel()

		output.Info("watching notes (ctrl-c to stop)")
		for {
			select {
			case <-ctx.Done():
				return nil
			case snapshot, ok := <-notes:
				if !ok {
					return nil
				}
				output.Info("---- %d note(s)", len(snapshot))
				for _, n := range snapshot {
					output.Info("%s", output.NoteLine(n))
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
