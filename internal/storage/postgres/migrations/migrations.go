// migrations — embedded SQL-схема auth-подсистемы.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
