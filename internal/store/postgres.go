package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
// The schema is expected to be applied by the migrations package.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) CreatePending(ctx context.Context, originalURL string, createdAt time.Time) (uint64, error) {
	return insertPending(ctx, p.pool, originalURL, createdAt)
}

func (p *PostgresStore) AssignCode(ctx context.Context, id uint64, code shortener.Code) error {
	return assignCode(ctx, p.pool, id, code)
}

// CreateWithCode allocates the id and assigns its derived code in one transaction.
func (p *PostgresStore) CreateWithCode(
	ctx context.Context, originalURL string, createdAt time.Time, derive func(id uint64) shortener.Code,
) (*shortener.ShortURL, error) {
	var shortURL *shortener.ShortURL

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		id, err := insertPending(ctx, tx, originalURL, createdAt)
		if err != nil {
			return err
		}

		code := derive(id)

		if err := assignCode(ctx, tx, id, code); err != nil {
			return err
		}

		shortURL = &shortener.ShortURL{
			ID:          id,
			Code:        code,
			OriginalURL: originalURL,
			CreatedAt:   createdAt,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return shortURL, nil
}

func insertPending(ctx context.Context, q querier, originalURL string, createdAt time.Time) (uint64, error) {
	query := `
		INSERT INTO short_urls (original_url, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64

	if err := q.QueryRow(ctx, query, originalURL, createdAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert short url: %w", err)
	}

	return uint64(id), nil //nolint:gosec // BIGSERIAL starts at 1
}

func assignCode(ctx context.Context, q querier, id uint64, code shortener.Code) error {
	query := `
		UPDATE short_urls
		SET code = $2
		WHERE id = $1 AND (code IS NULL OR code = $2)
	`

	tag, err := q.Exec(ctx, query, int64(id), string(code)) //nolint:gosec // ids come from BIGSERIAL
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %q", shortener.ErrCodeCollision, code)
		}

		return fmt.Errorf("assign code: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var existing *string

	err = q.QueryRow(ctx, `SELECT code FROM short_urls WHERE id = $1`, int64(id)).Scan(&existing) //nolint:gosec
	if errors.Is(err, pgx.ErrNoRows) {
		return shortener.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("assign code: %w", err)
	}

	return fmt.Errorf("%w: record %d already has a code", shortener.ErrCodeCollision, id)
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	query := `
		SELECT id, code, original_url, created_at, click_count
		FROM short_urls
		WHERE code = $1
	`

	url, err := scanShortURL(p.pool.QueryRow(ctx, query, string(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return url, nil
}

func (p *PostgresStore) Top(ctx context.Context, n int) ([]*shortener.ShortURL, error) {
	if n < 1 {
		return []*shortener.ShortURL{}, nil
	}

	query := `
		SELECT id, code, original_url, created_at, click_count
		FROM short_urls
		WHERE code IS NOT NULL
		ORDER BY click_count DESC, id ASC
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query top: %w", err)
	}
	defer rows.Close()

	urls := make([]*shortener.ShortURL, 0, n)

	for rows.Next() {
		url, err := scanShortURL(rows)
		if err != nil {
			return nil, err
		}

		urls = append(urls, url)
	}

	return urls, rows.Err()
}

func (p *PostgresStore) IncrementClicks(ctx context.Context, code shortener.Code) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE short_urls SET click_count = click_count + 1 WHERE code = $1`,
		string(code),
	)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		url    shortener.ShortURL
		id     int64
		code   string
		clicks int64
	)

	if err := row.Scan(&id, &code, &url.OriginalURL, &url.CreatedAt, &clicks); err != nil {
		return nil, err
	}

	url.ID = uint64(id) //nolint:gosec
	url.Code = shortener.Code(code)
	url.ClickCount = uint64(clicks) //nolint:gosec

	return &url, nil
}

// Compile-time checks.
var (
	_ shortener.Repository    = (*PostgresStore)(nil)
	_ shortener.AtomicCreator = (*PostgresStore)(nil)
)
