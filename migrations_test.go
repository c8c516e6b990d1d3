package scheduler_test

import (
	"io/fs"
	"strings"
	"testing"

	scheduler "github.com/goliatone/go-cms-scheduler"
)

func TestMigrationsCoverSchedulerTables(t *testing.T) {
	migrations := scheduler.GetMigrationsFS()
	up, err := fs.ReadFile(migrations, "data/sql/migrations/20240601000000_scheduler_tables.up.sql")
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	for _, table := range []string{"scheduled_entities", "scheduled_entity_revisions", "scheduler_locks", "scheduler_audit_events"} {
		if !strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("expected up migration to create %s", table)
		}
	}

	entries, err := fs.ReadDir(migrations, "data/sql/migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected up and down migrations, got %d", len(entries))
	}
}
