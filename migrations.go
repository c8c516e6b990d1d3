package scheduler

import (
	"embed"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded Postgres migrations for the scheduler
// tables. The bun drivers create the same tables on startup.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
