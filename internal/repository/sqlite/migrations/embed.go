package migrations

import "embed"

// FS contains embedded SQLite migrations for the class and roadmap store.
//
//go:embed *.sql
var FS embed.FS
