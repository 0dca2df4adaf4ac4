package db

import (
	"database/sql"
	"errors"

	"github.com/marcus/nt/internal/models"
)

// Enqueue appends a pending operation to the outbox and returns its id.
//
// Updates coalesce: when an update for the same note is already queued, its
// payload is replaced in place and the original queue position is kept, so
// one replay call carries the latest content instead of one call per edit.
// The replaced payload has never been attempted, so its retry count
// restarts at zero.
func (db *DB) Enqueue(op models.PendingOperation) (int64, error) {
	var id int64
	err := db.withWriteLock(func() error {
		if op.Op == models.OpUpdate {
			existing, err := db.findPendingUpdate(op.NoteID, op.ClientRef)
			if err != nil {
				return err
			}
			if existing != 0 {
				_, err := db.conn.Exec(`
					UPDATE pending_operations SET title = ?, body = ?, retry_count = 0 WHERE id = ?`,
					op.Title, op.Body, existing)
				if err != nil {
					return storageErr("coalesce update", err)
				}
				id = existing
				return nil
			}
		}

		res, err := db.conn.Exec(`
			INSERT INTO pending_operations (note_id, client_ref, op, title, body, enqueued_at, retry_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			op.NoteID, op.ClientRef, string(op.Op), op.Title, op.Body, op.EnqueuedAt, op.RetryCount)
		if err != nil {
			return storageErr("enqueue operation", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return storageErr("enqueue operation id", err)
		}
		return nil
	})
	return id, err
}

// findPendingUpdate locates a queued update for the same note, matched by
// note id for server-known notes or client_ref for local-only ones.
func (db *DB) findPendingUpdate(noteID int64, clientRef string) (int64, error) {
	var id int64
	var err error
	if noteID != 0 {
		err = db.conn.QueryRow(`
			SELECT id FROM pending_operations WHERE op = 'update' AND note_id = ?
			ORDER BY enqueued_at, id LIMIT 1`, noteID).Scan(&id)
	} else if clientRef != "" {
		err = db.conn.QueryRow(`
			SELECT id FROM pending_operations WHERE op = 'update' AND client_ref = ?
			ORDER BY enqueued_at, id LIMIT 1`, clientRef).Scan(&id)
	} else {
		return 0, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("find pending update", err)
	}
	return id, nil
}

// PendingOps returns the full outbox in strict FIFO order (oldest first).
// Replay must walk this sequentially; per-note ordering is a corollary of
// the global order.
func (db *DB) PendingOps() ([]models.PendingOperation, error) {
	rows, err := db.conn.Query(`
		SELECT id, note_id, client_ref, op, title, body, enqueued_at, retry_count
		FROM pending_operations
		ORDER BY enqueued_at ASC, id ASC`)
	if err != nil {
		return nil, storageErr("list pending ops", err)
	}
	defer rows.Close()

	var ops []models.PendingOperation
	for rows.Next() {
		var op models.PendingOperation
		var opType string
		var title, body sql.NullString
		if err := rows.Scan(&op.ID, &op.NoteID, &op.ClientRef, &opType, &title, &body, &op.EnqueuedAt, &op.RetryCount); err != nil {
			return nil, storageErr("scan pending op", err)
		}
		op.Op = models.OperationType(opType)
		if title.Valid {
			op.Title = &title.String
		}
		if body.Valid {
			op.Body = &body.String
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate pending ops", err)
	}
	return ops, nil
}

// CountPending returns the number of queued operations.
func (db *DB) CountPending() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM pending_operations`).Scan(&n); err != nil {
		return 0, storageErr("count pending ops", err)
	}
	return n, nil
}

// RemoveOp deletes an operation after it was confirmed applied remotely
// (or evicted by the retry cap).
func (db *DB) RemoveOp(id int64) error {
	return db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM pending_operations WHERE id = ?`, id); err != nil {
			return storageErr("remove pending op", err)
		}
		return nil
	})
}

// RemoveOpsForNote drops all queued operations targeting a note. Used when
// a note that never reached the server is deleted locally.
func (db *DB) RemoveOpsForNote(noteID int64, clientRef string) error {
	return db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM pending_operations WHERE note_id = ?`, noteID); err != nil {
			return storageErr("remove ops for note", err)
		}
		if clientRef != "" {
			if _, err := db.conn.Exec(`DELETE FROM pending_operations WHERE client_ref = ?`, clientRef); err != nil {
				return storageErr("remove ops for client_ref", err)
			}
		}
		return nil
	})
}

// IncrementRetry bumps an operation's retry counter after a failed replay
// and returns the new count.
func (db *DB) IncrementRetry(id int64) (int, error) {
	var count int
	err := db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`
			UPDATE pending_operations SET retry_count = retry_count + 1 WHERE id = ?`, id); err != nil {
			return storageErr("increment retry", err)
		}
		if err := db.conn.QueryRow(`
			SELECT retry_count FROM pending_operations WHERE id = ?`, id).Scan(&count); err != nil {
			return storageErr("read retry count", err)
		}
		return nil
	})
	return count, err
}
