package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/marcus/nt/internal/models"
)

const noteColumns = "id, client_ref, title, body, created_at, updated_at, deleted, dirty, local_only, sync_state"

func scanNote(row interface{ Scan(...any) error }) (models.Note, error) {
	var n models.Note
	var deleted, dirty, localOnly int
	err := row.Scan(&n.ID, &n.ClientRef, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt,
		&deleted, &dirty, &localOnly, &n.SyncState)
	if err != nil {
		return n, err
	}
	n.Deleted = deleted != 0
	n.Dirty = dirty != 0
	n.LocalOnly = localOnly != 0
	return n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	var notes []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetPage returns non-deleted notes ordered by updated_at descending.
// An out-of-range offset yields an empty slice, not an error.
func (db *DB) GetPage(limit, offset int) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE deleted = 0
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, storageErr("get page", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, storageErr("scan page", err)
	}
	return notes, nil
}

// GetByID returns a note by id. Tombstoned notes are treated as not found.
func (db *DB) GetByID(id int64) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ? AND deleted = 0`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return &n, nil
}

// GetAnyByID also returns tombstoned rows; used by the sync engine to keep
// pulls from resurrecting notes that are pending deletion.
func (db *DB) GetAnyByID(id int64) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return &n, nil
}

// FindByClientRef returns the note carrying the given correlation id.
func (db *DB) FindByClientRef(ref string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE client_ref = ? AND client_ref != ''`, ref)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client_ref %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, storageErr("find by client_ref", err)
	}
	return &n, nil
}

// Search returns non-deleted notes whose title or body contains the query,
// case-insensitive, ordered by updated_at descending.
func (db *DB) Search(query string, limit, offset int) ([]models.Note, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE deleted = 0 AND (title LIKE ? OR body LIKE ?)
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, storageErr("search", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, storageErr("scan search", err)
	}
	return notes, nil
}

// CountTotal returns the number of non-deleted notes.
func (db *DB) CountTotal() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes WHERE deleted = 0`).Scan(&n); err != nil {
		return 0, storageErr("count notes", err)
	}
	return n, nil
}

// CountMatching returns the number of non-deleted notes matching the query.
func (db *DB) CountMatching(query string) (int, error) {
	pattern := "%" + query + "%"
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM notes
		WHERE deleted = 0 AND (title LIKE ? OR body LIKE ?)`, pattern, pattern).Scan(&n)
	if err != nil {
		return 0, storageErr("count matching", err)
	}
	return n, nil
}

// InsertOrReplace upserts a note by id and notifies watchers.
func (db *DB) InsertOrReplace(n models.Note) error {
	err := db.withWriteLock(func() error {
		return db.upsert(n)
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

// InsertOrReplaceAll upserts a batch of notes in one transaction.
// Used by the pull phase of a sync cycle.
func (db *DB) InsertOrReplaceAll(notes []models.Note) error {
	if len(notes) == 0 {
		return nil
	}
	err := db.withWriteLock(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return storageErr("begin upsert batch", err)
		}
		defer tx.Rollback()
		for _, n := range notes {
			if err := upsertIn(tx, n); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return storageErr("commit upsert batch", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (db *DB) upsert(n models.Note) error {
	return upsertIn(db.conn, n)
}

func upsertIn(e execer, n models.Note) error {
	_, err := e.Exec(`
		INSERT OR REPLACE INTO notes (id, client_ref, title, body, created_at, updated_at, deleted, dirty, local_only, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ClientRef, n.Title, n.Body, n.CreatedAt, n.UpdatedAt,
		boolInt(n.Deleted), boolInt(n.Dirty), boolInt(n.LocalOnly), string(n.SyncState))
	if err != nil {
		return storageErr("upsert note", err)
	}
	return nil
}

// MarkDeleted tombstones a note. The row stays in the cache until the
// deletion is confirmed remotely.
func (db *DB) MarkDeleted(id int64) error {
	err := db.withWriteLock(func() error {
		res, err := db.conn.Exec(`
			UPDATE notes SET deleted = 1, sync_state = ? WHERE id = ?`,
			string(models.SyncStatePendingDelete), id)
		if err != nil {
			return storageErr("mark deleted", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

// HardDelete physically removes a note row. Only called after remote
// confirmation, or to roll back a purely local row.
func (db *DB) HardDelete(id int64) error {
	err := db.withWriteLock(func() error {
		if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
			return storageErr("hard delete", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

// MarkSynced clears dirty/local-only flags after a confirmed push.
func (db *DB) MarkSynced(id int64) error {
	err := db.withWriteLock(func() error {
		_, err := db.conn.Exec(`
			UPDATE notes SET dirty = 0, local_only = 0, sync_state = ? WHERE id = ?`,
			string(models.SyncStateSynced), id)
		if err != nil {
			return storageErr("mark synced", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

// SetSyncState overrides a note's sync state (e.g. conflict demotion).
func (db *DB) SetSyncState(id int64, state models.SyncState) error {
	err := db.withWriteLock(func() error {
		_, err := db.conn.Exec(`UPDATE notes SET sync_state = ? WHERE id = ?`, string(state), id)
		if err != nil {
			return storageErr("set sync state", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

// ReserveLocalID returns the next free negative id for an offline-created
// note: min(existing negative ids) - 1, or -1 when none exist.
func (db *DB) ReserveLocalID() (int64, error) {
	var min sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MIN(id) FROM notes WHERE id < 0`).Scan(&min); err != nil {
		return 0, storageErr("reserve local id", err)
	}
	if !min.Valid {
		return -1, nil
	}
	return min.Int64 - 1, nil
}

// ReplaceIdentity swaps a temporary local id for the server-confirmed note
// in a single transaction: the temp row is removed, the confirmed row is
// inserted, and any outbox entries referencing the temp id are migrated to
// the server id. Identity, not content, is what carries over.
func (db *DB) ReplaceIdentity(tempID int64, confirmed models.Note) error {
	err := db.withWriteLock(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return storageErr("begin identity swap", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, tempID); err != nil {
			return storageErr("retire temp note", err)
		}
		if err := upsertIn(tx, confirmed); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			UPDATE pending_operations SET note_id = ? WHERE note_id = ?`,
			confirmed.ID, tempID); err != nil {
			return storageErr("migrate outbox refs", err)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("commit identity swap", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.notifyWatchers()
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
