// Package migrations embeds the schema migrations shipped inside the
// service binaries.
package migrations

import "embed"

// FS contains the embedded SQL migrations.
//
//go:embed *.sql
var FS embed.FS
