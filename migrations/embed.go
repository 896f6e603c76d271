// Package migrations embeds the SQL migration files so the server and the
// integration tests can apply them with goose without a path on disk.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
