// Package migrations embeds the SQL files that create the three tables
// the Postgres-backed repository reads and writes.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Files lists the migration filenames in application order.
var Files = []string{
	"001_create_tasks.sql",
	"002_create_occurrences.sql",
	"003_create_executions.sql",
}
