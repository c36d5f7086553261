package shortener

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("short url not found")
	ErrCodeCollision = errors.New("short code already assigned to another record")
	ErrCacheMiss     = errors.New("cache miss")
)

// Repository is the authoritative store of shortening records. It allocates
// identifiers and must serialize that allocation across concurrent callers.
type Repository interface {
	// CreatePending persists a record without a code and returns its new identifier.
	CreatePending(ctx context.Context, originalURL string, createdAt time.Time) (uint64, error)

	// AssignCode sets the code of a pending record.
	// Returns ErrNotFound for unknown ids and ErrCodeCollision if another record holds code.
	AssignCode(ctx context.Context, id uint64, code Code) error

	GetByCode(ctx context.Context, code Code) (*ShortURL, error)

	// Top returns at most n coded records ordered by click count desc, id asc.
	// n < 1 returns an empty slice.
	Top(ctx context.Context, n int) ([]*ShortURL, error)

	// IncrementClicks atomically adds one to the click counter.
	IncrementClicks(ctx context.Context, code Code) error
}

// AtomicCreator is implemented by repositories that can allocate an identifier
// and assign its derived code inside a single transaction.
type AtomicCreator interface {
	CreateWithCode(
		ctx context.Context, originalURL string, createdAt time.Time, derive func(id uint64) Code,
	) (*ShortURL, error)
}

// Cache is a best-effort code -> url projection. Get returns ErrCacheMiss when
// the code is absent; any other error is an infrastructure fault.
type Cache interface {
	Get(ctx context.Context, code Code) (string, error)
	Set(ctx context.Context, code Code, url string) error
}

// ClickRecorder accounts for one successful resolution of code.
type ClickRecorder interface {
	RecordClick(ctx context.Context, code Code) error
}

// StoreClicks records clicks directly in the repository.
type StoreClicks struct {
	store Repository
}

// NewStoreClicks creates a recorder that increments counters synchronously.
func NewStoreClicks(store Repository) *StoreClicks {
	return &StoreClicks{store: store}
}

func (c *StoreClicks) RecordClick(ctx context.Context, code Code) error {
	return c.store.IncrementClicks(ctx, code)
}
