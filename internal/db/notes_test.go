package db

import (
	"errors"
	"testing"

	"github.com/marcus/nt/internal/models"
)

func syncedNote(id int64, title, body string, updatedAt int64) models.Note {
	return models.Note{
		ID:        id,
		Title:     title,
		Body:      body,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		SyncState: models.SyncStateSynced,
	}
}

func TestInsertAndGet(t *testing.T) {
	db := setupDB(t)

	want := models.Note{
		ID:        1,
		ClientRef: "cafe0001",
		Title:     "Groceries",
		Body:      "milk, eggs",
		CreatedAt: 1000,
		UpdatedAt: 2000,
		Dirty:     true,
		LocalOnly: true,
		SyncState: models.SyncStatePendingUpload,
	}
	if err := db.InsertOrReplace(want); err != nil {
		t.Fatalf("InsertOrReplace failed: %v", err)
	}

	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if *got != want {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", *got, want)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := setupDB(t)

	_, err := db.GetByID(42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTombstoneHidesNote(t *testing.T) {
	db := setupDB(t)

	if err := db.InsertOrReplace(syncedNote(1, "a", "b", 1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.MarkDeleted(1); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	if _, err := db.GetByID(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after tombstone: got %v, want ErrNotFound", err)
	}

	n, err := db.GetAnyByID(1)
	if err != nil {
		t.Fatalf("GetAnyByID failed: %v", err)
	}
	if !n.Deleted {
		t.Error("tombstoned note should be marked deleted")
	}
	if n.SyncState != models.SyncStatePendingDelete {
		t.Errorf("sync state: got %s, want %s", n.SyncState, models.SyncStatePendingDelete)
	}

	count, err := db.CountTotal()
	if err != nil {
		t.Fatalf("CountTotal failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count after tombstone: got %d, want 0", count)
	}
}

func TestMarkDeletedMissing(t *testing.T) {
	db := setupDB(t)

	if err := db.MarkDeleted(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestHardDelete(t *testing.T) {
	db := setupDB(t)

	if err := db.InsertOrReplace(syncedNote(1, "a", "b", 1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.HardDelete(1); err != nil {
		t.Fatalf("HardDelete failed: %v", err)
	}
	if _, err := db.GetAnyByID(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row survived hard delete: %v", err)
	}
}

func TestMarkSynced(t *testing.T) {
	db := setupDB(t)

	n := syncedNote(1, "a", "b", 1000)
	n.Dirty = true
	n.LocalOnly = true
	n.SyncState = models.SyncStatePendingUpload
	if err := db.InsertOrReplace(n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := db.MarkSynced(1); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Dirty || got.LocalOnly {
		t.Errorf("flags not cleared: dirty=%v localOnly=%v", got.Dirty, got.LocalOnly)
	}
	if got.SyncState != models.SyncStateSynced {
		t.Errorf("sync state: got %s, want %s", got.SyncState, models.SyncStateSynced)
	}
}

func TestGetPageOrdering(t *testing.T) {
	db := setupDB(t)

	// most recently updated first
	for _, n := range []models.Note{
		syncedNote(1, "oldest", "", 1000),
		syncedNote(2, "newest", "", 3000),
		syncedNote(3, "middle", "", 2000),
	} {
		if err := db.InsertOrReplace(n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	notes, err := db.GetPage(10, 0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	wantIDs := []int64{2, 3, 1}
	if len(notes) != len(wantIDs) {
		t.Fatalf("page size: got %d, want %d", len(notes), len(wantIDs))
	}
	for i, id := range wantIDs {
		if notes[i].ID != id {
			t.Errorf("position %d: got id %d, want %d", i, notes[i].ID, id)
		}
	}

	// offset past the end is empty, not an error
	notes, err = db.GetPage(10, 100)
	if err != nil {
		t.Fatalf("GetPage with large offset failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("out-of-range page: got %d notes, want 0", len(notes))
	}
}

func TestSearch(t *testing.T) {
	db := setupDB(t)

	for _, n := range []models.Note{
		syncedNote(1, "Grocery list", "milk and eggs", 1000),
		syncedNote(2, "Workout", "buy MILK after gym", 2000),
		syncedNote(3, "Reading", "finish novel", 3000),
	} {
		if err := db.InsertOrReplace(n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := db.MarkDeleted(3); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	// case-insensitive, matches title or body
	notes, err := db.Search("milk", 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("matches: got %d, want 2", len(notes))
	}

	count, err := db.CountMatching("milk")
	if err != nil {
		t.Fatalf("CountMatching failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountMatching: got %d, want 2", count)
	}

	// tombstoned notes never match
	if n, _ := db.CountMatching("novel"); n != 0 {
		t.Errorf("deleted note matched search: got %d, want 0", n)
	}
}

func TestFindByClientRef(t *testing.T) {
	db := setupDB(t)

	n := syncedNote(-1, "a", "b", 1000)
	n.ClientRef = "deadbeef"
	if err := db.InsertOrReplace(n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := db.FindByClientRef("deadbeef")
	if err != nil {
		t.Fatalf("FindByClientRef failed: %v", err)
	}
	if got.ID != -1 {
		t.Errorf("id: got %d, want -1", got.ID)
	}

	if _, err := db.FindByClientRef("feedface"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown ref: got %v, want ErrNotFound", err)
	}
	// the empty ref carried by pulled notes never matches anything
	if _, err := db.FindByClientRef(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty ref: got %v, want ErrNotFound", err)
	}
}

func TestReplaceIdentity(t *testing.T) {
	db := setupDB(t)

	temp := models.Note{
		ID:        -1,
		ClientRef: "cafe0001",
		Title:     "draft",
		LocalOnly: true,
		Dirty:     true,
		SyncState: models.SyncStatePendingUpload,
	}
	if err := db.InsertOrReplace(temp); err != nil {
		t.Fatalf("insert temp: %v", err)
	}

	title := "draft v2"
	if _, err := db.Enqueue(models.PendingOperation{
		NoteID: -1, ClientRef: "cafe0001", Op: models.OpUpdate,
		Title: &title, EnqueuedAt: 100,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	confirmed := syncedNote(42, "draft", "", 2000)
	confirmed.ClientRef = "cafe0001"
	if err := db.ReplaceIdentity(-1, confirmed); err != nil {
		t.Fatalf("ReplaceIdentity failed: %v", err)
	}

	if _, err := db.GetAnyByID(-1); !errors.Is(err, ErrNotFound) {
		t.Fatal("temp row survived identity swap")
	}
	got, err := db.GetByID(42)
	if err != nil {
		t.Fatalf("confirmed row missing: %v", err)
	}
	if got.ClientRef != "cafe0001" {
		t.Errorf("client ref: got %s, want cafe0001", got.ClientRef)
	}

	// queued operations now reference the server id
	ops, err := db.PendingOps()
	if err != nil {
		t.Fatalf("PendingOps failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("ops: got %d, want 1", len(ops))
	}
	if ops[0].NoteID != 42 {
		t.Errorf("migrated note_id: got %d, want 42", ops[0].NoteID)
	}
}
