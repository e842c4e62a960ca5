// Package migrations contiene el esquema de la base en formato goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
