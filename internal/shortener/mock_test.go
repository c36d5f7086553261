package shortener_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

var errBoom = errors.New("boom")

// fakeCache is a map-backed cache that can be told to fail.
type fakeCache struct {
	mu      sync.Mutex
	entries map[shortener.Code]string
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[shortener.Code]string)}
}

func (c *fakeCache) Get(_ context.Context, code shortener.Code) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++

	if c.getErr != nil {
		return "", c.getErr
	}

	url, ok := c.entries[code]
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	return url, nil
}

func (c *fakeCache) Set(_ context.Context, code shortener.Code, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++

	if c.setErr != nil {
		return c.setErr
	}

	c.entries[code] = url

	return nil
}

func (c *fakeCache) evict(code shortener.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, code)
}

func (c *fakeCache) lookup(code shortener.Code) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url, ok := c.entries[code]

	return url, ok
}

// spyRepository wraps a repository and counts calls or injects failures.
type spyRepository struct {
	shortener.Repository

	lookups   atomic.Int64
	topN      int
	getErr    error
	assignErr error
}

func (s *spyRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	s.lookups.Add(1)

	if s.getErr != nil {
		return nil, s.getErr
	}

	return s.Repository.GetByCode(ctx, code)
}

func (s *spyRepository) AssignCode(ctx context.Context, id uint64, code shortener.Code) error {
	if s.assignErr != nil {
		return s.assignErr
	}

	return s.Repository.AssignCode(ctx, id, code)
}

func (s *spyRepository) Top(ctx context.Context, n int) ([]*shortener.ShortURL, error) {
	s.topN = n

	return s.Repository.Top(ctx, n)
}

// atomicRepository adds CreateWithCode on top of a two-phase repository.
type atomicRepository struct {
	shortener.Repository

	atomicCalls int
}

func (a *atomicRepository) CreatePending(context.Context, string, time.Time) (uint64, error) {
	return 0, errors.New("two-phase path must not be used")
}

func (a *atomicRepository) CreateWithCode(
	ctx context.Context, originalURL string, createdAt time.Time, derive func(id uint64) shortener.Code,
) (*shortener.ShortURL, error) {
	a.atomicCalls++

	id, err := a.Repository.CreatePending(ctx, originalURL, createdAt)
	if err != nil {
		return nil, err
	}

	code := derive(id)

	if err := a.Repository.AssignCode(ctx, id, code); err != nil {
		return nil, err
	}

	return &shortener.ShortURL{ID: id, Code: code, OriginalURL: originalURL, CreatedAt: createdAt}, nil
}

// failingClicks always fails to record.
type failingClicks struct {
	calls atomic.Int64
}

func (f *failingClicks) RecordClick(context.Context, shortener.Code) error {
	f.calls.Add(1)

	return errBoom
}

// blockingRepository holds every GetByCode until release is closed.
type blockingRepository struct {
	shortener.Repository

	lookups atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func newBlockingRepository(repo shortener.Repository) *blockingRepository {
	return &blockingRepository{
		Repository: repo,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if b.lookups.Add(1) == 1 {
		close(b.entered)
	}

	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return b.Repository.GetByCode(ctx, code)
}
