package platform

import (
	"context"
	"fmt"

	"github.com/txn2/gamebuddy/pkg/database/migrate"
	"github.com/txn2/gamebuddy/pkg/session"
	"github.com/txn2/gamebuddy/pkg/session/redis"
	"github.com/txn2/gamebuddy/pkg/session/sqlstore"
)

// OpenStorage opens the session storage selected by cfg.Session.
func OpenStorage(ctx context.Context, cfg *Config) (session.Storage, error) {
	sc := cfg.Session
	switch sc.Storage {
	case StorageMemory:
		return session.NewMemoryStorage(), nil
	case StorageFile:
		path, err := cfg.SessionFilePath()
		if err != nil {
			return nil, err
		}
		return session.NewFileStorage(path), nil
	case StoragePostgres, StorageSQLite:
		dialect := migrate.DialectPostgres
		if sc.Storage == StorageSQLite {
			dialect = migrate.DialectSQLite
		}
		store, err := sqlstore.Open(ctx, sqlstore.OpenConfig{
			Dialect:      dialect,
			DSN:          sc.Database.DSN,
			MaxOpenConns: sc.Database.MaxOpenConns,
			Migrate:      sc.Database.ShouldMigrate(),
		})
		if err != nil {
			return nil, fmt.Errorf("opening %s session store: %w", sc.Storage, err)
		}
		return store, nil
	case StorageRedis:
		store, err := redis.New(ctx, redis.Config{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session storage %q", sc.Storage)
	}
}
