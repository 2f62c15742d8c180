// Package migrations carries the Postgres storage migrations compiled into
// the binary.
package migrations

import "embed"

// Files holds every *.sql migration.
//
//go:embed *.sql
var Files embed.FS
