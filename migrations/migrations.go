// Package migrations embeds the goose SQL migrations for the PostgreSQL side
// of the backend (users, point ledger, coupons).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
