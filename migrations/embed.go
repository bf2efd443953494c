// AngelaMos | 2026
// embed.go

// Package migrations embeds the SQL schema applied by core.Migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
