// Package migrations embeds the SQL schema of the device inventory.
package migrations

import (
	"embed"

	"github.com/nerrad567/beamline-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
