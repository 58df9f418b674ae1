package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"afterseed/pkg/db/migrations"
)

// Migrate installs or upgrades the ledger schema.
func Migrate(ctx context.Context, database *gorm.DB, log zerolog.Logger) error {
	if database == nil {
		return errors.New("nil database provided")
	}

	driver, err := driverOf(database)
	if err != nil {
		return err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(driver.gooseDialect(), sqlDB, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations.All(driver.txDialector)...),
	)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, res := range results {
		log.Info().Int64("version", res.Source.Version).Dur("duration", res.Duration).Msg("applied migration")
	}
	return nil
}
