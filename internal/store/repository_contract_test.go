package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/codec"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// create runs both phases the way the service does.
func create(t *testing.T, repo shortener.Repository, url string) *shortener.ShortURL {
	t.Helper()

	ctx := context.Background()

	id, err := repo.CreatePending(ctx, url, createdAt)
	require.NoError(t, err)

	code := shortener.Code(codec.Default.Encode(id))
	require.NoError(t, repo.AssignCode(ctx, id, code))

	return &shortener.ShortURL{ID: id, Code: code, OriginalURL: url, CreatedAt: createdAt}
}

// testRepository exercises the shortener.Repository contract against a fresh store.
func testRepository(t *testing.T, newRepo func(t *testing.T) shortener.Repository) {
	t.Run("ids start at one and increase", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.CreatePending(ctx, "https://a.example", createdAt)
		require.NoError(t, err)

		second, err := repo.CreatePending(ctx, "https://b.example", createdAt)
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first)
		assert.Greater(t, second, first)
	})

	t.Run("assigned code is readable", func(t *testing.T) {
		repo := newRepo(t)
		want := create(t, repo, "https://example.com")

		got, err := repo.GetByCode(context.Background(), want.Code)

		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Code, got.Code)
		assert.Equal(t, "https://example.com", got.OriginalURL)
		assert.True(t, createdAt.Equal(got.CreatedAt), "created at %v", got.CreatedAt)
		assert.Zero(t, got.ClickCount)
	})

	t.Run("assigning the same code twice is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		url := create(t, repo, "https://example.com")

		err := repo.AssignCode(context.Background(), url.ID, url.Code)

		assert.NoError(t, err)
	})

	t.Run("code held by another record collides", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		held := create(t, repo, "https://a.example")

		id, err := repo.CreatePending(ctx, "https://b.example", createdAt)
		require.NoError(t, err)

		err = repo.AssignCode(ctx, id, held.Code)

		assert.ErrorIs(t, err, shortener.ErrCodeCollision)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.AssignCode(context.Background(), 999, "abc")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.GetByCode(context.Background(), "nope")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("pending records are invisible", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreatePending(ctx, "https://pending.example", createdAt)
		require.NoError(t, err)

		_, err = repo.GetByCode(ctx, "")
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		top, err := repo.Top(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("increment clicks of unknown code is not found", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.IncrementClicks(context.Background(), "nope")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("top orders by clicks then id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := create(t, repo, "https://a.example")
		b := create(t, repo, "https://b.example")
		c := create(t, repo, "https://c.example")
		d := create(t, repo, "https://d.example")

		for range 3 {
			require.NoError(t, repo.IncrementClicks(ctx, c.Code))
		}

		require.NoError(t, repo.IncrementClicks(ctx, b.Code))
		require.NoError(t, repo.IncrementClicks(ctx, d.Code))

		top, err := repo.Top(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)

		assert.Equal(t, c.Code, top[0].Code)
		assert.Equal(t, uint64(3), top[0].ClickCount)
		assert.Equal(t, b.Code, top[1].Code)
		assert.Equal(t, d.Code, top[2].Code)

		all, err := repo.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, a.Code, all[3].Code)
	})

	t.Run("non-positive n returns nothing", func(t *testing.T) {
		repo := newRepo(t)
		create(t, repo, "https://a.example")

		for _, n := range []int{0, -1} {
			var (
				top []*shortener.ShortURL
				err error
			)

			require.NotPanics(t, func() { top, err = repo.Top(context.Background(), n) })
			require.NoError(t, err)
			assert.NotNil(t, top)
			assert.Empty(t, top)
		}
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		repo := newRepo(t)
		url := create(t, repo, "https://example.com")

		const n = 50

		var wg sync.WaitGroup

		for range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				assert.NoError(t, repo.IncrementClicks(context.Background(), url.Code))
			}()
		}

		wg.Wait()

		got, err := repo.GetByCode(context.Background(), url.Code)
		require.NoError(t, err)
		assert.Equal(t, uint64(n), got.ClickCount)
	})

	t.Run("concurrent creates get distinct ids", func(t *testing.T) {
		repo := newRepo(t)

		const n = 20

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = make(map[uint64]struct{}, n)
		)

		for i := range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				id, err := repo.CreatePending(context.Background(), fmt.Sprintf("https://%d.example", i), createdAt)
				if !assert.NoError(t, err) {
					return
				}

				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}()
		}

		wg.Wait()

		assert.Len(t, ids, n)
	})

	t.Run("atomic create derives the code from the id", func(t *testing.T) {
		repo := newRepo(t)

		atomic, ok := repo.(shortener.AtomicCreator)
		if !ok {
			t.Skip("store does not support atomic creation")
		}

		url, err := atomic.CreateWithCode(context.Background(), "https://example.com", createdAt,
			func(id uint64) shortener.Code { return shortener.Code(codec.Default.Encode(id)) })

		require.NoError(t, err)
		assert.Equal(t, shortener.Code(codec.Default.Encode(url.ID)), url.Code)

		got, err := repo.GetByCode(context.Background(), url.Code)
		require.NoError(t, err)
		assert.Equal(t, url.ID, got.ID)
	})

	t.Run("atomic create rolls back on collision", func(t *testing.T) {
		repo := newRepo(t)

		atomic, ok := repo.(shortener.AtomicCreator)
		if !ok {
			t.Skip("store does not support atomic creation")
		}

		held := create(t, repo, "https://held.example")

		_, err := atomic.CreateWithCode(context.Background(), "https://other.example", createdAt,
			func(uint64) shortener.Code { return held.Code })

		require.ErrorIs(t, err, shortener.ErrCodeCollision)

		top, err := repo.Top(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, top, 1)
	})
}
