package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/marcus/nt/internal/connectivity"
	"github.com/marcus/nt/internal/db"
	"github.com/marcus/nt/internal/remote"
	ntsync "github.com/marcus/nt/internal/sync"
	"github.com/marcus/nt/internal/syncconfig"
)

// app bundles the wired-up engine for one command invocation.
type app struct {
	db      *db.DB
	engine  *ntsync.Engine
	monitor *connectivity.Monitor
	client  *remote.Client
}

// openApp constructs the engine over the user's notes database.
//
// One-shot commands start optimistically online: the engine downgrades to
// the outbox on the first network failure anyway, and probing up front
// would add latency to every invocation. Watch mode runs the real prober.
func openApp() (*app, error) {
	dir, err := syncconfig.DataDir()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(dir)
	if err != nil {
		return nil, err
	}

	client := remote.New(syncconfig.GetServerURL(), syncconfig.GetToken())
	monitor := connectivity.NewMonitor(client, 30*time.Second)
	monitor.SetOnline(true)

	engine := ntsync.New(database, client, monitor, syncconfig.IsAuthenticated)
	return &app{db: database, engine: engine, monitor: monitor, client: client}, nil
}

func (a *app) close() {
	a.db.Close()
}

// parseNoteID parses a positive or negative note id argument. The whole
// argument must be a number; trailing garbage is rejected.
func parseNoteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}
