package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// SchemaFunc creates the tables a test needs.
type SchemaFunc func(ctx context.Context, db *bun.DB) error

// SQLiteMemoryDSN returns a shared-cache in-memory DSN unique to name.
func SQLiteMemoryDSN(name string) string {
	name = strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(name)
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
}

// NewSQLiteMemoryDB opens a raw in-memory sqlite database.
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	return sql.Open("sqlite3", SQLiteMemoryDSN(name))
}

// NewBunDB opens an in-memory sqlite bun database scoped to the test and
// applies the supplied schema functions. The database is closed on cleanup.
func NewBunDB(t testing.TB, schemas ...SchemaFunc) *bun.DB {
	t.Helper()
	sqldb, err := NewSQLiteMemoryDB(t.Name())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, schema := range schemas {
		if err := schema(ctx, db); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
	}
	return db
}
