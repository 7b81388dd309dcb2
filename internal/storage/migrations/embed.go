package migrations

import "embed"

// FS embeds the SQL migrations for the SQLite key-value table.
//
//go:embed *.sql
var FS embed.FS
