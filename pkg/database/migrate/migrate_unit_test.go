package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	migrateTestFilesPerDialect = 4
	migrateTestSuccess         = "success"
	migrateTestFactoryError    = "factory error"
)

// mockMigrator implements the migrator interface for testing.
type mockMigrator struct {
	upErr      error
	downErr    error
	versionVal uint
	dirty      bool
	versionErr error
}

func (m *mockMigrator) Up() error   { return m.upErr }
func (m *mockMigrator) Down() error { return m.downErr }
func (m *mockMigrator) Version() (version uint, dirty bool, err error) {
	return m.versionVal, m.dirty, m.versionErr
}

func useMigrator(t *testing.T, m migrator, err error) {
	t.Helper()
	orig := migratorFactory
	t.Cleanup(func() { migratorFactory = orig })
	migratorFactory = func(_ *sql.DB, _ string) (migrator, error) {
		return m, err
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		t.Run(dialect, func(t *testing.T) {
			entries, err := migrations.ReadDir("migrations/" + dialect)
			require.NoError(t, err)
			assert.Len(t, entries, migrateTestFilesPerDialect)

			names := make(map[string]bool)
			for _, e := range entries {
				names[e.Name()] = true
			}
			for _, expected := range []string{
				"000001_session_items.up.sql",
				"000001_session_items.down.sql",
				"000002_session_items_updated_at.up.sql",
				"000002_session_items_updated_at.down.sql",
			} {
				assert.True(t, names[expected], "expected migration file %s to exist", expected)
			}
		})
	}
}

func TestMigrationFilesNotEmpty(t *testing.T) {
	err := fs.WalkDir(migrations, "migrations", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		content, readErr := migrations.ReadFile(path)
		require.NoError(t, readErr)
		assert.NotEmpty(t, strings.TrimSpace(string(content)), "migration %s is empty", path)
		return nil
	})
	require.NoError(t, err)
}

func TestMigrationUpCreatesSessionItems(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		content, err := migrations.ReadFile("migrations/" + dialect + "/000001_session_items.up.sql")
		require.NoError(t, err)
		sqlText := string(content)
		assert.Contains(t, sqlText, "CREATE TABLE IF NOT EXISTS session_items")
		assert.Contains(t, sqlText, "item_key")
		assert.Contains(t, sqlText, "item_value")
		assert.Contains(t, sqlText, "updated_at")
	}
}

func TestMigrationDownFilesDrop(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		content, err := migrations.ReadFile("migrations/" + dialect + "/000001_session_items.down.sql")
		require.NoError(t, err)
		assert.Contains(t, string(content), "DROP TABLE IF EXISTS session_items")
	}
}

func TestNewMigratorUnsupportedDialect(t *testing.T) {
	_, err := newMigrator(nil, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		m          migrator
		factoryErr error
		wantErr    string
	}{
		{name: migrateTestSuccess, m: &mockMigrator{versionVal: 2}},
		{name: "no change is not an error", m: &mockMigrator{upErr: migrate.ErrNoChange, versionVal: 2}},
		{name: "up error", m: &mockMigrator{upErr: errors.New("up failed")}, wantErr: "running migrations"},
		{name: migrateTestFactoryError, factoryErr: errors.New("factory failed"), wantErr: "factory failed"},
		{name: "version error", m: &mockMigrator{versionErr: errors.New("version failed")}, wantErr: "getting migration version"},
		{name: "nil version is not an error", m: &mockMigrator{versionErr: migrate.ErrNilVersion}},
		{name: "dirty state logs warning", m: &mockMigrator{versionVal: 2, dirty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMigrator(t, tt.m, tt.factoryErr)

			err := Run(nil, DialectSQLite)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVersion(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionVal: 2, dirty: true}, nil)

		v, dirty, err := Version(nil, DialectPostgres)
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{versionErr: errors.New("boom")}, nil)

		_, _, err := Version(nil, DialectPostgres)
		require.Error(t, err)
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		useMigrator(t, nil, errors.New("factory failed"))

		_, _, err := Version(nil, DialectPostgres)
		require.Error(t, err)
	})
}

func TestDown(t *testing.T) {
	t.Run(migrateTestSuccess, func(t *testing.T) {
		useMigrator(t, &mockMigrator{}, nil)
		assert.NoError(t, Down(nil, DialectSQLite))
	})

	t.Run("no change is not an error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{downErr: migrate.ErrNoChange}, nil)
		assert.NoError(t, Down(nil, DialectSQLite))
	})

	t.Run("down error", func(t *testing.T) {
		useMigrator(t, &mockMigrator{downErr: errors.New("down failed")}, nil)
		err := Down(nil, DialectSQLite)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rolling back migrations")
	})
}

func TestMigrationTablesHaveConsumers(t *testing.T) {
	createTableRe := regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?(\w+)`)

	var tables []string
	err := fs.WalkDir(migrations, "migrations", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return walkErr
		}
		content, readErr := migrations.ReadFile(path)
		require.NoError(t, readErr)
		for _, m := range createTableRe.FindAllStringSubmatch(string(content), -1) {
			tables = append(tables, m[1])
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, tables, "migrations should contain CREATE TABLE statements")

	var goFiles []string
	require.NoError(t, collectGoSourceFiles("../../../pkg", &goFiles))
	require.NotEmpty(t, goFiles, "should find Go source files under pkg/")

	var corpus strings.Builder
	for _, path := range goFiles {
		content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files, not user input
		require.NoError(t, readErr)
		corpus.Write(content)  //nolint:revive // strings.Builder.Write never returns an error
		corpus.WriteByte('\n') //nolint:revive // strings.Builder.WriteByte never returns an error
	}
	source := corpus.String()

	for _, table := range tables {
		found := false
		for _, pattern := range []string{"INSERT INTO %s", "FROM %s", "UPDATE %s", "DELETE FROM %s"} {
			if strings.Contains(source, fmt.Sprintf(pattern, table)) {
				found = true
				break
			}
		}
		assert.True(t, found,
			"table %q is created by a migration but no non-test Go code references it", table)
	}
}

// collectGoSourceFiles walks dir recursively and appends non-test,
// non-migration Go source file paths to dst.
func collectGoSourceFiles(dir string, dst *[]string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "migrate" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			*dst = append(*dst, path)
		}
		return nil
	})
}
