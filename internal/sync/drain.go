package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/nt/internal/db"
	"github.com/marcus/nt/internal/models"
	"github.com/marcus/nt/internal/remote"
)

// SyncNow runs one drain cycle: pull the first server page, then replay the
// outbox in FIFO order. Offline or unauthenticated is a no-op success, as
// is a drain already in flight. Drain is never transactional across
// operations; each confirmed operation is removed immediately, so a crash
// mid-drain resumes safely from the remaining queue.
func (e *Engine) SyncNow(ctx context.Context) (Summary, error) {
	var s Summary

	if !e.drainMu.TryLock() {
		s.Skipped = true
		return s, nil
	}
	defer e.drainMu.Unlock()

	// drainMu covers this engine; the file lock covers other processes
	// sharing the data dir (watch mode next to a one-shot command).
	release, ok := e.store.AcquireDrainLock()
	if !ok {
		s.Skipped = true
		return s, nil
	}
	defer release()

	if !e.conn.Online() || !e.authed() {
		s.Skipped = true
		return s, nil
	}

	// Pull phase: bound staleness with the first page; full reconciliation
	// is not attempted on every drain.
	if n, err := e.pullPageN(ctx, 1, DefaultPageSize); err != nil {
		slog.Warn("drain pull failed", "err", err)
		if errors.Is(err, remote.ErrAuthExpired) {
			return s, err
		}
		if errors.Is(err, remote.ErrNetwork) {
			// the link is down; the queue waits untouched for the next cycle
			e.finishSummary(&s)
			return s, nil
		}
	} else {
		s.Pulled = n
	}

	ops, err := e.store.PendingOps()
	if err != nil {
		return s, err
	}

	// Maps temp ids confirmed during this cycle to their server ids, so
	// later operations read from the same snapshot still resolve.
	confirmed := map[int64]int64{}

replay:
	for _, op := range ops {
		select {
		case <-ctx.Done():
			break replay
		default:
		}

		if op.RetryCount >= MaxRetry {
			if err := e.store.RemoveOp(op.ID); err != nil {
				return s, err
			}
			s.Dropped++
			slog.Warn("dropped exhausted operation", "op", op.Op, "note", op.NoteID, "retries", op.RetryCount)
			continue
		}

		rerr := e.replayOp(ctx, op, confirmed)
		switch {
		case rerr == nil:
			if err := e.store.RemoveOp(op.ID); err != nil {
				return s, err
			}
			s.Pushed++
		case errors.Is(rerr, remote.ErrAuthExpired):
			// session is gone; stop retrying and surface it
			e.finishSummary(&s)
			return s, rerr
		case errors.Is(rerr, remote.ErrRejected), errors.Is(rerr, remote.ErrNotFound):
			// permanently refused: take it out of rotation
			if id := e.resolveNoteID(op, confirmed); id > 0 {
				if err := e.store.SetSyncState(id, models.SyncStateConflict); err != nil {
					slog.Warn("mark conflict", "note", id, "err", err)
				}
			}
			if err := e.store.RemoveOp(op.ID); err != nil {
				return s, err
			}
			s.Conflicts++
			slog.Warn("operation rejected, moved to conflict", "op", op.Op, "note", op.NoteID, "err", rerr)
		case errors.Is(rerr, remote.ErrNetwork):
			// connectivity lost mid-drain: stop iterating, the queue keeps
			// the rest for the next cycle. Retry counts only ever reflect
			// attempts the server answered, so the cap cannot evict an
			// operation the server never saw.
			e.observe(rerr)
			slog.Info("drain interrupted by network failure", "op", op.Op, "note", op.NoteID)
			break replay
		default:
			// transient server failure: count the attempt, keep going
			if _, err := e.store.IncrementRetry(op.ID); err != nil {
				return s, err
			}
			slog.Warn("replay failed", "op", op.Op, "note", op.NoteID, "err", rerr)
		}
	}

	e.finishSummary(&s)
	return s, nil
}

func (e *Engine) finishSummary(s *Summary) {
	if n, err := e.store.CountPending(); err == nil {
		s.Remaining = n
	}
}

// replayOp applies one queued operation against the server and reconciles
// the cache on success.
func (e *Engine) replayOp(ctx context.Context, op models.PendingOperation, confirmed map[int64]int64) error {
	switch op.Op {
	case models.OpCreate:
		return e.replayCreate(ctx, op, confirmed)
	case models.OpUpdate:
		return e.replayUpdate(ctx, op, confirmed)
	case models.OpDelete:
		return e.replayDelete(ctx, op, confirmed)
	default:
		return fmt.Errorf("unknown operation type %q", op.Op)
	}
}

func (e *Engine) replayCreate(ctx context.Context, op models.PendingOperation, confirmed map[int64]int64) error {
	rn, err := e.remote.Create(ctx, deref(op.Title), deref(op.Body))
	if err != nil {
		return err
	}

	note := noteFromWire(*rn)
	note.ClientRef = op.ClientRef

	// Locate the temp row by its correlation id; content matching is not
	// trusted because two offline creates may be identical.
	local, lerr := e.store.FindByClientRef(op.ClientRef)
	if lerr != nil && op.NoteID < 0 {
		local, lerr = e.store.GetAnyByID(op.NoteID)
	}
	if lerr != nil {
		// temp row vanished; adopt the confirmed note as-is
		slog.Warn("create confirmed but temp row missing", "client_ref", op.ClientRef)
		return e.store.InsertOrReplace(note)
	}

	if err := e.store.ReplaceIdentity(local.ID, note); err != nil {
		return err
	}
	confirmed[local.ID] = note.ID
	return nil
}

func (e *Engine) replayUpdate(ctx context.Context, op models.PendingOperation, confirmed map[int64]int64) error {
	id := e.resolveNoteID(op, confirmed)
	if id <= 0 {
		// the preceding create never confirmed; retry later
		return fmt.Errorf("update target not yet confirmed (note %d)", op.NoteID)
	}

	if _, err := e.remote.Update(ctx, id, op.Title, op.Body); err != nil {
		return err
	}
	return e.store.MarkSynced(id)
}

func (e *Engine) replayDelete(ctx context.Context, op models.PendingOperation, confirmed map[int64]int64) error {
	id := e.resolveNoteID(op, confirmed)
	if id <= 0 {
		return fmt.Errorf("delete target not yet confirmed (note %d)", op.NoteID)
	}

	if err := e.remote.Delete(ctx, id); err != nil {
		return err
	}
	return e.store.HardDelete(id)
}

// resolveNoteID maps an operation to its current server id. Operations
// enqueued against a temp id were migrated by ReplaceIdentity on disk, but
// the ops slice for this cycle predates that; the confirmed map and the
// client_ref lookup cover the gap.
func (e *Engine) resolveNoteID(op models.PendingOperation, confirmed map[int64]int64) int64 {
	if op.NoteID > 0 {
		return op.NoteID
	}
	if id, ok := confirmed[op.NoteID]; ok {
		return id
	}
	if op.ClientRef != "" {
		// covers a drain resumed after a crash, where the durable note_id
		// migration happened in an earlier cycle's snapshot
		if n, err := e.store.FindByClientRef(op.ClientRef); err == nil && n.ID > 0 {
			return n.ID
		}
	}
	return 0
}

// pullPage fetches one server page and upserts it. Local rows with pending
// changes are never clobbered; local edits win until pushed.
func (e *Engine) pullPage(ctx context.Context, page, pageSize int) error {
	_, err := e.pullPageN(ctx, page, pageSize)
	return err
}

func (e *Engine) pullPageN(ctx context.Context, page, pageSize int) (int, error) {
	rp, err := e.remote.List(ctx, page, pageSize)
	if err != nil {
		e.observe(err)
		return 0, err
	}
	e.conn.SetOnline(true)

	var fresh []models.Note
	for _, rn := range rp.Results {
		existing, err := e.store.GetAnyByID(rn.ID)
		if err == nil && (existing.Dirty || existing.LocalOnly ||
			existing.SyncState == models.SyncStatePendingDelete ||
			existing.SyncState == models.SyncStateConflict) {
			continue
		}
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return 0, err
		}
		n := noteFromWire(rn)
		if existing != nil {
			n.ClientRef = existing.ClientRef
		}
		fresh = append(fresh, n)
	}
	if err := e.store.InsertOrReplaceAll(fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
