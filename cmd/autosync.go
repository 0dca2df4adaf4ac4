package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcus/nt/internal/syncconfig"
)

// mutatingCommands lists commands that modify local data and should trigger
// a best-effort sync afterwards.
var mutatingCommands = map[string]bool{
	"create": true,
	"update": true,
	"delete": true,
}

func isMutatingCommand(name string) bool {
	return mutatingCommands[name]
}

// autoSyncAfterMutation runs a quick drain after a mutating command.
// Runs synchronously with a short timeout; errors are logged, not returned.
func autoSyncAfterMutation() {
	if !syncconfig.GetAutoSyncEnabled() {
		return
	}
	if !syncconfig.IsAuthenticated() {
		return
	}

	a, err := openApp()
	if err != nil {
		slog.Debug("autosync: open app", "err", err)
		return
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := a.engine.SyncNow(ctx)
	if err != nil {
		slog.Debug("autosync failed", "err", err)
		return
	}
	if !summary.Skipped {
		slog.Debug("autosync done", "pushed", summary.Pushed, "pulled", summary.Pulled)
	}
}
