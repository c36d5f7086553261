package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
// Records are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]*shortener.ShortURL
	byCode map[shortener.Code]uint64
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uint64]*shortener.ShortURL),
		byCode: make(map[shortener.Code]uint64),
	}
}

func (m *MemoryStore) CreatePending(_ context.Context, originalURL string, createdAt time.Time) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID

	m.byID[id] = &shortener.ShortURL{
		ID:          id,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
	}

	return id, nil
}

func (m *MemoryStore) AssignCode(_ context.Context, id uint64, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return shortener.ErrNotFound
	}

	if owner, taken := m.byCode[code]; taken && owner != id {
		return fmt.Errorf("%w: %q held by record %d", shortener.ErrCodeCollision, code, owner)
	}

	if !record.Pending() && record.Code != code {
		return fmt.Errorf("%w: record %d already has code %q", shortener.ErrCodeCollision, id, record.Code)
	}

	record.Code = code
	m.byCode[code] = id

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	record := *m.byID[id]

	return &record, nil
}

func (m *MemoryStore) Top(_ context.Context, n int) ([]*shortener.ShortURL, error) {
	if n < 1 {
		return []*shortener.ShortURL{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	urls := make([]*shortener.ShortURL, 0, len(m.byCode))

	for _, id := range m.byCode {
		record := *m.byID[id]
		urls = append(urls, &record)
	}

	slices.SortFunc(urls, func(a, b *shortener.ShortURL) int {
		if c := cmp.Compare(b.ClickCount, a.ClickCount); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	if len(urls) > n {
		urls = urls[:n]
	}

	return urls, nil
}

func (m *MemoryStore) IncrementClicks(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byCode[code]
	if !ok {
		return shortener.ErrNotFound
	}

	m.byID[id].ClickCount++

	return nil
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
