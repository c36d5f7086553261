package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/serroba/shortlink/internal/store/migrations"
	"go.uber.org/zap"
)

// PostgresConnection owns the pgx pool.
type PostgresConnection struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (p *PostgresConnection) Shutdown() error {
	p.Pool.Close()

	return nil
}

// PostgresPackage provides a migrated PostgreSQL pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresConnection, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if err := migrations.Run(opts.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &PostgresConnection{Pool: pool}, nil
	})
}

// RepositoryPackage provides the record store selected by Options.StoreDriver
// and the health checkers of the backing services.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.SQLiteStore, error) {
		opts := do.MustInvoke[*Options](i)

		return store.NewSQLiteStore(context.Background(), opts.SQLitePath)
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		logger.Info("record store", zap.String("driver", opts.StoreDriver))

		switch opts.StoreDriver {
		case StoreSQLite:
			sqlite, err := do.Invoke[*store.SQLiteStore](i)
			if err != nil {
				return nil, err
			}

			return sqlite, nil
		case StorePostgres:
			conn, err := do.Invoke[*PostgresConnection](i)
			if err != nil {
				return nil, err
			}

			return store.NewPostgresStore(conn.Pool), nil
		default:
			return store.NewMemoryStore(), nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.CacheDriver {
		case CacheRedis:
			conn, err := do.Invoke[*RedisConnection](i)
			if err != nil {
				return nil, err
			}

			return store.NewRedisCache(conn.Client, opts.CacheLifetime()), nil
		case CacheNone:
			return store.NoopCache{}, nil
		default:
			return store.NewLocalCache(opts.CacheLifetime()), nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (map[string]health.Checker, error) {
		opts := do.MustInvoke[*Options](i)
		checkers := make(map[string]health.Checker)

		switch opts.StoreDriver {
		case StoreSQLite:
			checkers["store"] = health.SQLChecker(do.MustInvoke[*store.SQLiteStore](i).DB())
		case StorePostgres:
			checkers["store"] = health.PostgresChecker(do.MustInvoke[*PostgresConnection](i).Pool)
		}

		if opts.CacheDriver == CacheRedis || opts.Events == EventsRedis {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisConnection](i).Client)
		}

		return checkers, nil
	})
}
