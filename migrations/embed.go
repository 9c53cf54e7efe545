// Package migrations embeds the SQL schema files so the binary can migrate a
// fresh database without the files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
