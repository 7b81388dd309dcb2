package app

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/practicum/internal/config"
	"github.com/felixgeelhaar/practicum/internal/storage"
	"github.com/felixgeelhaar/practicum/internal/storage/badger"
	"github.com/felixgeelhaar/practicum/internal/storage/local"
	"github.com/felixgeelhaar/practicum/internal/storage/postgres"
	"github.com/felixgeelhaar/practicum/internal/storage/redis"
	"github.com/felixgeelhaar/practicum/internal/storage/sqlite"
)

// OpenStorage opens the configured backend. Shared backends (postgres,
// redis) are scoped by userID. The returned close function is never nil.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, userID string) (storage.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendNone:
		return storage.Nop{}, noop, nil

	case config.BackendMemory:
		return storage.NewMemory(), noop, nil

	case config.BackendLocal:
		kv, err := local.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open local storage: %w", err)
		}
		return kv, noop, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewKVStore(db), db.Close, nil

	case config.BackendBadger:
		kv, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	case config.BackendPostgres:
		kv, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewScoped(kv, userID), func() error { kv.Close(); return nil }, nil

	case config.BackendRedis:
		kv, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewScoped(kv, userID), kv.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}
