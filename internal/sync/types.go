package sync

import (
	"context"

	"github.com/marcus/nt/internal/remote"
)

// MaxRetry is the replay attempt cap; an operation whose retry count has
// reached it is evicted from the outbox on the next drain.
const MaxRetry = 3

// DefaultPageSize matches the server's default page size.
const DefaultPageSize = 20

// Remote is the slice of the notes service the engine needs.
type Remote interface {
	List(ctx context.Context, page, pageSize int) (*remote.NotePage, error)
	Get(ctx context.Context, id int64) (*remote.Note, error)
	Create(ctx context.Context, title, description string) (*remote.Note, error)
	Update(ctx context.Context, id int64, title, description *string) (*remote.Note, error)
	Delete(ctx context.Context, id int64) error
}

// Connectivity is the read-mostly reachability signal. The engine also
// feeds observed call results back via SetOnline.
type Connectivity interface {
	Online() bool
	SetOnline(bool)
}

// Summary reports what one drain cycle did.
type Summary struct {
	Skipped   bool `json:"skipped"`   // offline, unauthenticated, or drain already running
	Pulled    int  `json:"pulled"`    // notes upserted from the server page
	Pushed    int  `json:"pushed"`    // operations confirmed and removed
	Dropped   int  `json:"dropped"`   // operations evicted by the retry cap
	Conflicts int  `json:"conflicts"` // operations rejected permanently
	Remaining int  `json:"remaining"` // operations still queued afterwards
}
