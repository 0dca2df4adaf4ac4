package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marcus/nt/internal/connectivity"
	"github.com/marcus/nt/internal/db"
	"github.com/marcus/nt/internal/models"
	"github.com/marcus/nt/internal/remote"
)

const serverSchema = `
CREATE TABLE notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// fakeServer implements the Remote interface on top of an in-memory
// database, so tests can assert replay order and final server state
// against real rows. Error fields inject failures per method.
type fakeServer struct {
	db *sql.DB

	mu    sync.Mutex
	calls []string

	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open server db: %v", err)
	}
	if _, err := conn.Exec(serverSchema); err != nil {
		t.Fatalf("server schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &fakeServer{db: conn}
}

func (s *fakeServer) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// mutations returns the recorded calls excluding list fetches.
func (s *fakeServer) mutations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c != "list" {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeServer) List(ctx context.Context, page, pageSize int) (*remote.NotePage, error) {
	s.record("list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT id, title, description, created_at, updated_at FROM notes
		ORDER BY id LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	resp := &remote.NotePage{Count: count}
	for rows.Next() {
		var n remote.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, n)
	}
	return resp, rows.Err()
}

func (s *fakeServer) Get(ctx context.Context, id int64) (*remote.Note, error) {
	s.record("get %d", id)
	return s.getNote(id)
}

func (s *fakeServer) getNote(id int64) (*remote.Note, error) {
	var n remote.Note
	err := s.db.QueryRow(`
		SELECT id, title, description, created_at, updated_at FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Description, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: note %d", remote.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *fakeServer) Create(ctx context.Context, title, description string) (*remote.Note, error) {
	s.record("create %s", title)
	if s.createErr != nil {
		return nil, s.createErr
	}
	now := remote.FormatTime(time.Now().UnixMilli())
	res, err := s.db.Exec(`
		INSERT INTO notes (title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, title, description, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &remote.Note{ID: id, Title: title, Description: description, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *fakeServer) Update(ctx context.Context, id int64, title, description *string) (*remote.Note, error) {
	s.record("update %d", id)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	n, err := s.getNote(id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		n.Title = *title
	}
	if description != nil {
		n.Description = *description
	}
	n.UpdatedAt = remote.FormatTime(time.Now().UnixMilli())
	if _, err := s.db.Exec(`
		UPDATE notes SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		n.Title, n.Description, n.UpdatedAt, id); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *fakeServer) Delete(ctx context.Context, id int64) error {
	s.record("delete %d", id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	_, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	return err
}

func (s *fakeServer) seed(t *testing.T, title, description string) int64 {
	t.Helper()
	now := remote.FormatTime(time.Now().UnixMilli())
	res, err := s.db.Exec(`
		INSERT INTO notes (title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, title, description, now, now)
	if err != nil {
		t.Fatalf("seed server note: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (s *fakeServer) count(t *testing.T) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		t.Fatalf("count server notes: %v", err)
	}
	return n
}

func (s *fakeServer) titleOf(t *testing.T, id int64) string {
	t.Helper()
	var title string
	if err := s.db.QueryRow(`SELECT title FROM notes WHERE id = ?`, id).Scan(&title); err != nil {
		t.Fatalf("read server note %d: %v", id, err)
	}
	return title
}

// testEnv wires an engine against a fresh store and fake server. The
// monitor starts offline; tests flip it with env.mon.SetOnline(true).
type testEnv struct {
	engine *Engine
	store  *db.DB
	server *fakeServer
	mon    *connectivity.Monitor
	authed *bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	server := newFakeServer(t)
	mon := connectivity.NewMonitor(nil, time.Minute)
	authed := true
	e := New(store, server, mon, func() bool { return authed })

	// deterministic, strictly increasing clock so queue order follows
	// call order
	var clock int64 = 1_700_000_000_000
	e.SetClock(func() int64 {
		clock += 10
		return clock
	})

	return &testEnv{engine: e, store: store, server: server, mon: mon, authed: &authed}
}

func (env *testEnv) pendingCount(t *testing.T) int {
	t.Helper()
	n, err := env.store.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	return n
}

// seedSynced puts the same note on the server and in the cache, as if a
// previous sync had run.
func (env *testEnv) seedSynced(t *testing.T, title, body string) int64 {
	t.Helper()
	id := env.server.seed(t, title, body)
	if err := env.store.InsertOrReplace(models.Note{
		ID: id, Title: title, Body: body,
		CreatedAt: 1000, UpdatedAt: 1000,
		SyncState: models.SyncStateSynced,
	}); err != nil {
		t.Fatalf("seed cache note: %v", err)
	}
	return id
}
