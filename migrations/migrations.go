// Package migrations holds the goose-format SQL schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
