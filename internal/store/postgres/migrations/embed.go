// Package migrations exposes the embedded schema migrations.
package migrations

import "embed"

// Files contains the SQL migrations bundled into the binaries.
//
//go:embed *.sql
var Files embed.FS
