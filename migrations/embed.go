// Package migrations embeds the scrapper schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
