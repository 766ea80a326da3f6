// Package migrations embeds the MySQL schema of the seating store.
package migrations

import "embed"

// Files holds the numbered *.sql files, applied in filename order.
//
//go:embed *.sql
var Files embed.FS
