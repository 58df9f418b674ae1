// Package migrations holds the schema changes for the ledger table. They are
// Go migrations so the same code serves every supported dialect.
package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

// TxOpener returns a dialector bound to a migration transaction.
type TxOpener func(tx *sql.Tx) gorm.Dialector

// All returns every migration in version order.
func All(open TxOpener) []*goose.Migration {
	return []*goose.Migration{
		createAfterSeeders(open),
	}
}
