// Package migrations ships the storage schemas inside the binary and
// applies them on startup, so operators never run SQL by hand.
package migrations

import "embed"

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS
