package db

import (
	"log/slog"

	"github.com/marcus/nt/internal/models"
)

type watcher struct {
	ch chan []models.Note
}

// Watch returns a channel that receives a snapshot of the full non-deleted
// note list after every cache mutation, plus a cancel func. Sends never
// block: a slow consumer misses intermediate snapshots, the latest state
// always arrives eventually.
func (db *DB) Watch() (<-chan []models.Note, func()) {
	db.watchMu.Lock()
	defer db.watchMu.Unlock()

	id := db.nextWatch
	db.nextWatch++
	ch := make(chan []models.Note, 1)
	db.watchers[id] = watcher{ch: ch}

	cancel := func() {
		db.watchMu.Lock()
		defer db.watchMu.Unlock()
		if w, ok := db.watchers[id]; ok {
			delete(db.watchers, id)
			close(w.ch)
		}
	}
	return ch, cancel
}

// notifyWatchers pushes the current list snapshot to all watchers.
func (db *DB) notifyWatchers() {
	db.watchMu.Lock()
	n := len(db.watchers)
	db.watchMu.Unlock()
	if n == 0 {
		return
	}

	notes, err := db.GetPage(1000, 0)
	if err != nil {
		slog.Warn("watch snapshot failed", "err", err)
		return
	}

	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	for _, w := range db.watchers {
		select {
		case w.ch <- notes:
		default:
			// drop the stale snapshot waiting in the buffer, keep the fresh one
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- notes:
			default:
			}
		}
	}
}

func (db *DB) closeWatchers() {
	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	for id, w := range db.watchers {
		delete(db.watchers, id)
		close(w.ch)
	}
}
