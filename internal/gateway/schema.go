package gateway

import (
	"embed"
	"sync"

	"github.com/ai360store-ux/Digimarket/pkg/database"
)

// Migrations holds the SQL that provisions the document tables and asset
// bucket. Backends that own their database apply it directly.
//
//go:embed migrations/*.up.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

var (
	scriptOnce sync.Once
	script     string
)

// ProvisioningScript returns the provisioning SQL as one script an operator
// can paste into the hosted store's SQL console.
func ProvisioningScript() string {
	scriptOnce.Do(func() {
		s, err := database.MigrationScript(Migrations, MigrationsDir)
		if err != nil {
			// embedded files are always readable
			panic(err)
		}
		script = s
	})
	return script
}
