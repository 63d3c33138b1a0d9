package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	// Database drivers for the supported dialects.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/txn2/gamebuddy/pkg/database/migrate"
)

// OpenConfig configures Open.
type OpenConfig struct {
	Dialect      string
	DSN          string
	MaxOpenConns int
	Migrate      bool
}

// driverNames maps a dialect to its database/sql driver name.
var driverNames = map[string]string{
	migrate.DialectPostgres: "postgres",
	migrate.DialectSQLite:   "sqlite",
}

// Open connects to the database, optionally applies migrations, and returns
// a store that owns the connection.
func Open(ctx context.Context, cfg OpenConfig) (*Store, error) {
	driver, ok := driverNames[cfg.Dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Dialect, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.Dialect == migrate.DialectSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Dialect, err)
	}

	if cfg.Migrate {
		if err := migrate.Run(db, cfg.Dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrating session schema: %w", err)
		}
	}

	s := New(db, Config{Dialect: cfg.Dialect})
	s.owned = true
	return s, nil
}
