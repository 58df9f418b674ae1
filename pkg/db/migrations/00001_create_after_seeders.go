package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// AfterSeeder is the ledger row as created by version 1.
type AfterSeeder struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	Seeder    string  `gorm:"size:191;not null;uniqueIndex"`
	Batch     int     `gorm:"not null;default:0"`
	Tag       *string `gorm:"size:191"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AfterSeeder) TableName() string { return "after_seeders" }

func createAfterSeeders(open TxOpener) *goose.Migration {
	up := func(ctx context.Context, tx *sql.Tx) error {
		gormDB, err := openTx(open, tx)
		if err != nil {
			return err
		}
		return gormDB.WithContext(ctx).AutoMigrate(&AfterSeeder{})
	}

	down := func(ctx context.Context, tx *sql.Tx) error {
		gormDB, err := openTx(open, tx)
		if err != nil {
			return err
		}
		return gormDB.WithContext(ctx).Migrator().DropTable(&AfterSeeder{})
	}

	return goose.NewGoMigration(1, &goose.GoFunc{RunTx: up}, &goose.GoFunc{RunTx: down})
}

func openTx(open TxOpener, tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(open(tx), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}
