package repo

import (
	"fmt"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskgate/go-task-gateway/internal/domain"
)

// newTestDB opens a unique in-memory database per test to avoid schema
// leakage across tests, migrating the given models.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestOpenSQLite_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := MigrateTasks(db); err != nil {
		t.Fatalf("MigrateTasks: %v", err)
	}
	if !db.Migrator().HasTable(&domain.Task{}) || !db.Migrator().HasTable(&domain.IdempotencyRecord{}) {
		t.Fatalf("expected tasks and idempotency_keys tables after migration")
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "tasks.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestMigrateAuth(t *testing.T) {
	db := newTestDB(t)
	if err := MigrateAuth(db); err != nil {
		t.Fatalf("MigrateAuth: %v", err)
	}
	if !db.Migrator().HasTable(&domain.User{}) {
		t.Fatalf("expected users table after migration")
	}
}
