// Package sqlstore provides SQL storage for session entries on PostgreSQL or
// SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/gamebuddy/pkg/database/migrate"
	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	itemsTable   = "session_items"
	colKey       = "item_key"
	colValue     = "item_value"
	colUpdatedAt = "updated_at"

	// Both PostgreSQL and SQLite 3.24+ accept this conflict clause.
	upsertSuffix = "ON CONFLICT (item_key) DO UPDATE SET item_value = EXCLUDED.item_value, updated_at = EXCLUDED.updated_at"
)

// Config configures the SQL session store.
type Config struct {
	// Dialect is migrate.DialectPostgres or migrate.DialectSQLite.
	Dialect string
}

// Store implements session.Storage on a session_items table.
type Store struct {
	db      *sql.DB
	dialect string
	builder sq.StatementBuilderType
	now     func() time.Time
	owned   bool
}

// New creates a store over an existing connection. The caller keeps
// ownership of db.
func New(db *sql.DB, cfg Config) *Store {
	s := &Store{
		db:      db,
		dialect: cfg.Dialect,
		now:     time.Now,
	}
	if cfg.Dialect == migrate.DialectPostgres {
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	} else {
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	}
	return s
}

// GetItems returns the stored values for keys.
func (s *Store) GetItems(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query, args, err := s.builder.
		Select(colKey, colValue).
		From(itemsTable).
		Where(sq.Eq{colKey: keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying session items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning session item: %w", err)
		}
		result[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session items: %w", err)
	}
	return result, nil
}

// SetItems upserts all items in one transaction.
func (s *Store) SetItems(ctx context.Context, items map[string]string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now().UTC()
		for _, k := range keys {
			query, args, err := s.builder.
				Insert(itemsTable).
				Columns(colKey, colValue, colUpdatedAt).
				Values(k, items[k], now).
				Suffix(upsertSuffix).
				ToSql()
			if err != nil {
				return fmt.Errorf("building upsert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upserting session item %q: %w", k, err)
			}
		}
		return nil
	})
}

// RemoveItems deletes keys in one statement.
func (s *Store) RemoveItems(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := s.builder.
		Delete(itemsTable).
		Where(sq.Eq{colKey: keys}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session items: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied session schema migration and whether
// the last migration failed halfway.
func (s *Store) SchemaVersion() (uint, bool, error) {
	return migrate.Version(s.db, s.dialect)
}

// ResetSchema rolls the session schema back, dropping every stored session,
// and migrates it up again.
func (s *Store) ResetSchema() error {
	if err := migrate.Down(s.db, s.dialect); err != nil {
		return err
	}
	if err := migrate.Run(s.db, s.dialect); err != nil {
		return fmt.Errorf("recreating session schema: %w", err)
	}
	return nil
}

// Close closes the connection if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing session database: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ session.Storage = (*Store)(nil)
