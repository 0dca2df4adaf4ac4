// Package sync is the offline-first engine that mediates every note
// operation: reads come from the local cache, writes commit locally first
// and reach the server either synchronously or through the outbox.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/nt/internal/db"
	"github.com/marcus/nt/internal/models"
	"github.com/marcus/nt/internal/remote"
)

// ErrNotAuthenticated means the operation needed the server and no session
// exists. Distinct from ErrAuthExpired so callers prompt for login instead
// of reporting a network problem.
var ErrNotAuthenticated = errors.New("not authenticated")

// Engine owns the cache store and outbox. Construct with New; the owner
// controls the store's lifecycle (no process-wide singletons).
type Engine struct {
	store   *db.DB
	remote  Remote
	conn    Connectivity
	authed  func() bool
	now     func() int64 // epoch milliseconds
	drainMu sync.Mutex
}

// New wires up an engine. authed reports whether a session token exists.
func New(store *db.DB, rc Remote, conn Connectivity, authed func() bool) *Engine {
	return &Engine{
		store:  store,
		remote: rc,
		conn:   conn,
		authed: authed,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the engine's clock. Tests only.
func (e *Engine) SetClock(now func() int64) { e.now = now }

// canReach reports whether a remote attempt is worth making at all.
func (e *Engine) canReach() bool {
	return e.conn.Online() && e.authed()
}

// noteFromWire converts a server note into a synced cache row.
func noteFromWire(rn remote.Note) models.Note {
	return models.Note{
		ID:        rn.ID,
		Title:     rn.Title,
		Body:      rn.Description,
		CreatedAt: remote.ParseTime(rn.CreatedAt),
		UpdatedAt: remote.ParseTime(rn.UpdatedAt),
		SyncState: models.SyncStateSynced,
	}
}

// List returns one page of notes from the cache. With refresh, a
// best-effort pull of the requested server page runs first; a failed pull
// degrades to the cached page and is only surfaced when the cache has
// nothing to serve instead.
func (e *Engine) List(ctx context.Context, page, pageSize int, refresh bool) (*models.Page, error) {
	page, pageSize = normalizePage(page, pageSize)

	var pullErr error
	if refresh {
		switch {
		case !e.authed():
			pullErr = ErrNotAuthenticated
		case !e.conn.Online():
			pullErr = remote.ErrNetwork
		default:
			pullErr = e.pullPage(ctx, page, pageSize)
			if pullErr != nil {
				slog.Debug("refresh pull failed, serving cache", "err", pullErr)
			}
		}
	}

	offset := (page - 1) * pageSize
	notes, err := e.store.GetPage(pageSize, offset)
	if err != nil {
		return nil, err
	}
	count, err := e.store.CountTotal()
	if err != nil {
		return nil, err
	}

	if count == 0 && pullErr != nil {
		// nothing cached and the pull failed: that error is the answer
		return nil, fmt.Errorf("list notes: %w", pullErr)
	}

	return &models.Page{
		Count:   count,
		HasNext: offset+pageSize < count,
		HasPrev: page > 1,
		Notes:   notes,
	}, nil
}

// Search matches the query case-insensitively against title or body.
// Always served locally.
func (e *Engine) Search(ctx context.Context, query string, page, pageSize int) (*models.Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	notes, err := e.store.Search(query, pageSize, offset)
	if err != nil {
		return nil, err
	}
	count, err := e.store.CountMatching(query)
	if err != nil {
		return nil, err
	}
	return &models.Page{
		Count:   count,
		HasNext: offset+pageSize < count,
		HasPrev: page > 1,
		Notes:   notes,
	}, nil
}

// Get returns a note from the cache, falling back to the server on a miss
// when reachable.
func (e *Engine) Get(ctx context.Context, id int64) (*models.Note, error) {
	n, err := e.store.GetByID(id)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, db.ErrNotFound) || !e.canReach() {
		return nil, err
	}

	rn, rerr := e.remote.Get(ctx, id)
	if rerr != nil {
		e.observe(rerr)
		if errors.Is(rerr, remote.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", db.ErrNotFound, id)
		}
		return nil, err // the cache miss stands
	}
	cached := noteFromWire(*rn)
	if serr := e.store.InsertOrReplace(cached); serr != nil {
		return nil, serr
	}
	return &cached, nil
}

// Notes returns an observable stream of the full note list.
func (e *Engine) Notes() (<-chan []models.Note, func()) {
	return e.store.Watch()
}

// Create commits the note locally first, then pushes it when reachable.
// A failed or skipped push leaves a temp-id row plus a queued create; the
// caller still gets a success with the locally committed note.
func (e *Engine) Create(ctx context.Context, title, body string) (*models.Note, error) {
	ref, err := db.NewClientRef()
	if err != nil {
		return nil, fmt.Errorf("mint client ref: %w", err)
	}
	tempID, err := e.store.ReserveLocalID()
	if err != nil {
		return nil, err
	}

	now := e.now()
	local := models.Note{
		ID:        tempID,
		ClientRef: ref,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
		Dirty:     true,
		LocalOnly: true,
		SyncState: models.SyncStatePendingUpload,
	}
	if err := e.store.InsertOrReplace(local); err != nil {
		return nil, err
	}

	if e.canReach() {
		rn, rerr := e.remote.Create(ctx, title, body)
		if rerr == nil {
			e.conn.SetOnline(true)
			confirmed := noteFromWire(*rn)
			confirmed.ClientRef = ref
			if err := e.store.ReplaceIdentity(tempID, confirmed); err != nil {
				return nil, err
			}
			return &confirmed, nil
		}
		e.observe(rerr)
		if errors.Is(rerr, remote.ErrRejected) {
			// invalid content: roll the optimistic row back, nothing to queue
			if derr := e.store.HardDelete(tempID); derr != nil {
				slog.Warn("rollback rejected create", "err", derr)
			}
			return nil, rerr
		}
		// network-class failure: fall through to the outbox
	}

	if _, err := e.store.Enqueue(models.PendingOperation{
		NoteID:     tempID,
		ClientRef:  ref,
		Op:         models.OpCreate,
		Title:      &title,
		Body:       &body,
		EnqueuedAt: now,
	}); err != nil {
		return nil, err
	}
	return &local, nil
}

// Update mutates the cache row first, then pushes when reachable. Rejected
// content surfaces immediately and is not queued; network failures queue a
// coalesced update and still count as success.
func (e *Engine) Update(ctx context.Context, id int64, title, body string) (*models.Note, error) {
	n, err := e.store.GetByID(id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	n.Title = title
	n.Body = body
	n.UpdatedAt = now
	n.Dirty = true
	n.SyncState = models.SyncStatePendingUpload
	if err := e.store.InsertOrReplace(*n); err != nil {
		return nil, err
	}

	// A note the server has never seen cannot be patched; the queued update
	// drains after its create confirms.
	if n.LocalOnly {
		if _, err := e.enqueueUpdate(*n, title, body, now); err != nil {
			return nil, err
		}
		return n, nil
	}

	if e.canReach() {
		_, rerr := e.remote.Update(ctx, id, &title, &body)
		if rerr == nil {
			e.conn.SetOnline(true)
			if err := e.store.MarkSynced(id); err != nil {
				return nil, err
			}
			return e.store.GetByID(id)
		}
		e.observe(rerr)
		if errors.Is(rerr, remote.ErrRejected) {
			return nil, rerr
		}
	}

	if _, err := e.enqueueUpdate(*n, title, body, now); err != nil {
		return nil, err
	}
	return n, nil
}

func (e *Engine) enqueueUpdate(n models.Note, title, body string, now int64) (int64, error) {
	return e.store.Enqueue(models.PendingOperation{
		NoteID:     n.ID,
		ClientRef:  n.ClientRef,
		Op:         models.OpUpdate,
		Title:      &title,
		Body:       &body,
		EnqueuedAt: now,
	})
}

// Delete tombstones the note locally, then pushes the delete when
// reachable. A note that never reached the server is simply removed along
// with its queued operations.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	n, err := e.store.GetByID(id)
	if err != nil {
		return err
	}

	if n.LocalOnly {
		if err := e.store.RemoveOpsForNote(n.ID, n.ClientRef); err != nil {
			return err
		}
		return e.store.HardDelete(n.ID)
	}

	if err := e.store.MarkDeleted(id); err != nil {
		return err
	}

	if e.canReach() {
		rerr := e.remote.Delete(ctx, id)
		if rerr == nil {
			e.conn.SetOnline(true)
			return e.store.HardDelete(id)
		}
		e.observe(rerr)
		if errors.Is(rerr, remote.ErrRejected) {
			return rerr
		}
	}

	_, err = e.store.Enqueue(models.PendingOperation{
		NoteID:     id,
		Op:         models.OpDelete,
		EnqueuedAt: e.now(),
	})
	return err
}

// observe reconciles the connectivity flag with a real call result.
func (e *Engine) observe(err error) {
	if errors.Is(err, remote.ErrNetwork) {
		e.conn.SetOnline(false)
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
