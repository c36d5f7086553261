package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/serroba/shortlink/internal/shortener"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS short_urls (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		code         TEXT UNIQUE,
		original_url TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		click_count  INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_short_urls_top ON short_urls (click_count DESC, id ASC);
`

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is a SQLite implementation of shortener.Repository.
// It holds a single connection, so writes are serialized by the pool.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreatePending(ctx context.Context, originalURL string, createdAt time.Time) (uint64, error) {
	return sqliteInsertPending(ctx, s.db, originalURL, createdAt)
}

func (s *SQLiteStore) AssignCode(ctx context.Context, id uint64, code shortener.Code) error {
	return sqliteAssignCode(ctx, s.db, id, code)
}

// CreateWithCode allocates the id and assigns its derived code in one transaction.
func (s *SQLiteStore) CreateWithCode(
	ctx context.Context, originalURL string, createdAt time.Time, derive func(id uint64) shortener.Code,
) (*shortener.ShortURL, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	id, err := sqliteInsertPending(ctx, tx, originalURL, createdAt)
	if err != nil {
		return nil, err
	}

	code := derive(id)

	if err := sqliteAssignCode(ctx, tx, id, code); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &shortener.ShortURL{
		ID:          id,
		Code:        code,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
	}, nil
}

func sqliteInsertPending(ctx context.Context, q sqlQuerier, originalURL string, createdAt time.Time) (uint64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO short_urls (original_url, created_at) VALUES (?, ?)`,
		originalURL, createdAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert short url: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert short url: %w", err)
	}

	return uint64(id), nil //nolint:gosec // AUTOINCREMENT starts at 1
}

func sqliteAssignCode(ctx context.Context, q sqlQuerier, id uint64, code shortener.Code) error {
	result, err := q.ExecContext(ctx,
		`UPDATE short_urls SET code = ? WHERE id = ? AND (code IS NULL OR code = ?)`,
		string(code), int64(id), string(code), //nolint:gosec
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %q", shortener.ErrCodeCollision, code)
		}

		return fmt.Errorf("assign code: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	var existing sql.NullString

	err = q.QueryRowContext(ctx, `SELECT code FROM short_urls WHERE id = ?`, int64(id)).Scan(&existing) //nolint:gosec
	if errors.Is(err, sql.ErrNoRows) {
		return shortener.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("assign code: %w", err)
	}

	return fmt.Errorf("%w: record %d already has code %q", shortener.ErrCodeCollision, id, existing.String)
}

func (s *SQLiteStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, original_url, created_at, click_count FROM short_urls WHERE code = ?`,
		string(code),
	)

	url, err := scanSQLiteShortURL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return url, nil
}

func (s *SQLiteStore) Top(ctx context.Context, n int) ([]*shortener.ShortURL, error) {
	if n < 1 {
		return []*shortener.ShortURL{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, original_url, created_at, click_count
		FROM short_urls
		WHERE code IS NOT NULL
		ORDER BY click_count DESC, id ASC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top: %w", err)
	}
	defer rows.Close()

	urls := make([]*shortener.ShortURL, 0, n)

	for rows.Next() {
		url, err := scanSQLiteShortURL(rows)
		if err != nil {
			return nil, err
		}

		urls = append(urls, url)
	}

	return urls, rows.Err()
}

func (s *SQLiteStore) IncrementClicks(ctx context.Context, code shortener.Code) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE short_urls SET click_count = click_count + 1 WHERE code = ?`,
		string(code),
	)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

// Shutdown closes the database.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteShortURL(row rowScanner) (*shortener.ShortURL, error) {
	var (
		url       shortener.ShortURL
		id        int64
		code      string
		createdAt int64
		clicks    int64
	)

	if err := row.Scan(&id, &code, &url.OriginalURL, &createdAt, &clicks); err != nil {
		return nil, err
	}

	url.ID = uint64(id) //nolint:gosec
	url.Code = shortener.Code(code)
	url.CreatedAt = time.Unix(0, createdAt).UTC()
	url.ClickCount = uint64(clicks) //nolint:gosec

	return &url, nil
}

// Compile-time checks.
var (
	_ shortener.Repository    = (*SQLiteStore)(nil)
	_ shortener.AtomicCreator = (*SQLiteStore)(nil)
)
