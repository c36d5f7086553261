package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortlink/internal/codec"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MaxTop bounds the size of a leaderboard query.
const MaxTop = 100

// LoadTimeout bounds a store read shared by concurrent cache misses.
const LoadTimeout = 5 * time.Second

// Service coordinates shortening and resolution over a Repository and a Cache.
type Service struct {
	store    Repository
	cache    Cache
	alphabet *codec.Alphabet
	clicks   ClickRecorder
	now      func() time.Time
	loads    singleflight.Group
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithClickRecorder replaces the default StoreClicks recorder.
func WithClickRecorder(recorder ClickRecorder) Option {
	return func(s *Service) {
		s.clicks = recorder
	}
}

// NewService creates a new shortening service.
func NewService(
	store Repository, cache Cache, alphabet *codec.Alphabet, logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		store:    store,
		cache:    cache,
		alphabet: alphabet,
		clicks:   NewStoreClicks(store),
		now:      time.Now,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Shorten normalizes rawURL, creates a record for it and seeds the cache.
func (s *Service) Shorten(ctx context.Context, rawURL string) (*ShortURL, error) {
	originalURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("url is required: %w", err)
	}

	shortURL, err := s.create(ctx, originalURL, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrCodeCollision) {
			s.logger.Error("derived code collided with an existing record",
				zap.String("url", originalURL),
				zap.Error(err),
			)
		}

		return nil, err
	}

	s.seed(ctx, shortURL.Code, shortURL.OriginalURL)

	s.logger.Debug("short url created",
		zap.Uint64("id", shortURL.ID),
		zap.String("code", string(shortURL.Code)),
	)

	return shortURL, nil
}

func (s *Service) create(ctx context.Context, originalURL string, createdAt time.Time) (*ShortURL, error) {
	if atomic, ok := s.store.(AtomicCreator); ok {
		return atomic.CreateWithCode(ctx, originalURL, createdAt, s.encode)
	}

	id, err := s.store.CreatePending(ctx, originalURL, createdAt)
	if err != nil {
		return nil, fmt.Errorf("create pending record: %w", err)
	}

	code := s.encode(id)

	if err := s.store.AssignCode(ctx, id, code); err != nil {
		return nil, fmt.Errorf("assign code %q to record %d: %w", code, id, err)
	}

	return &ShortURL{
		ID:          id,
		Code:        code,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
	}, nil
}

func (s *Service) encode(id uint64) Code {
	return Code(s.alphabet.Encode(id))
}

// Resolve returns the URL for code and records a click. Cache faults are
// treated as misses; click accounting failures are logged and never returned.
func (s *Service) Resolve(ctx context.Context, code Code) (string, error) {
	if !s.alphabet.Valid(string(code)) {
		return "", ErrNotFound
	}

	url, err := s.cache.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cache read failed, falling back to store",
				zap.String("code", string(code)),
				zap.Error(err),
			)
		}

		url, err = s.load(ctx, code)
		if err != nil {
			return "", err
		}
	}

	if err := s.clicks.RecordClick(ctx, code); err != nil {
		s.logger.Warn("failed to record click",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}

	return url, nil
}

// load reads code from the store and backfills the cache. Concurrent misses
// for the same code share one store read. The shared read is detached from
// any single caller's cancellation; each caller stops waiting when its own
// context is done.
func (s *Service) load(ctx context.Context, code Code) (string, error) {
	ch := s.loads.DoChan(string(code), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		shortURL, err := s.store.GetByCode(loadCtx, code)
		if err != nil {
			return "", err
		}

		s.seed(loadCtx, code, shortURL.OriginalURL)

		s.logger.Debug("cache backfilled", zap.String("code", string(code)))

		return shortURL.OriginalURL, nil
	})

	var res singleflight.Result

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if errors.Is(res.Err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("load %q: %w", code, res.Err)
	}

	url, _ := res.Val.(string)

	return url, nil
}

func (s *Service) seed(ctx context.Context, code Code, url string) {
	if err := s.cache.Set(ctx, code, url); err != nil {
		s.logger.Warn("cache write failed",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}

// Top returns the n most clicked records. n is capped at MaxTop.
func (s *Service) Top(ctx context.Context, n int) ([]*ShortURL, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidInput, n)
	}

	n = min(n, MaxTop)

	urls, err := s.store.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}

	return urls, nil
}

// Stats returns the authoritative record for code, bypassing the cache.
func (s *Service) Stats(ctx context.Context, code Code) (*ShortURL, error) {
	if !s.alphabet.Valid(string(code)) {
		return nil, ErrNotFound
	}

	shortURL, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("stats %q: %w", code, err)
	}

	return shortURL, nil
}
