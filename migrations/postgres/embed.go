// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene el schema del store postgres.
//
//go:embed *.sql
var FS embed.FS

// OptionsSchema es el archivo con la tabla de opciones.
const OptionsSchema = "0001_options.sql"
