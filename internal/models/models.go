package models

// SyncState tracks how a cached note relates to the server copy
type SyncState string

const (
	SyncStateSynced        SyncState = "synced"         // up to date with server
	SyncStatePendingUpload SyncState = "pending_upload" // local changes awaiting push
	SyncStatePendingDelete SyncState = "pending_delete" // tombstoned, awaiting remote delete
	SyncStateConflict      SyncState = "conflict"       // permanently rejected by server, needs manual resolution
)

// OperationType represents the kind of queued mutation
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
)

// Note is the cached representation of a note.
//
// ID is positive for server-assigned notes. Notes created offline carry a
// negative temporary ID until the server confirms the create; zero is the
// uncommitted sentinel and never stored.
type Note struct {
	ID        int64     `json:"id"`
	ClientRef string    `json:"client_ref,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt int64     `json:"created_at"` // epoch milliseconds
	UpdatedAt int64     `json:"updated_at"` // epoch milliseconds
	Deleted   bool      `json:"deleted,omitempty"`
	Dirty     bool      `json:"dirty,omitempty"`
	LocalOnly bool      `json:"local_only,omitempty"`
	SyncState SyncState `json:"sync_state"`
}

// PendingOperation is one queued mutation awaiting remote confirmation.
// Operations drain strictly in (EnqueuedAt, ID) order.
type PendingOperation struct {
	ID         int64         `json:"id"`
	NoteID     int64         `json:"note_id,omitempty"` // 0 when the note has no identity yet
	ClientRef  string        `json:"client_ref,omitempty"`
	Op         OperationType `json:"op"`
	Title      *string       `json:"title,omitempty"` // nil for deletes
	Body       *string       `json:"body,omitempty"`
	EnqueuedAt int64         `json:"enqueued_at"` // epoch milliseconds
	RetryCount int           `json:"retry_count"`
}

// Page is one page of notes plus pagination metadata.
type Page struct {
	Count   int    `json:"count"`
	HasNext bool   `json:"has_next"`
	HasPrev bool   `json:"has_prev"`
	Notes   []Note `json:"notes"`
}
