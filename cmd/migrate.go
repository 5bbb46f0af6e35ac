package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/lingkungan/db/migrations"
	"github.com/frahmantamala/lingkungan/internal"
	datamodel "github.com/frahmantamala/lingkungan/internal/core/datamodel/lingkungan"
	"github.com/frahmantamala/lingkungan/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "run the embedded db migrations",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	// The SQL migrations are PostgreSQL; SQLite development databases are
	// created from the models instead.
	if cfg.Database.Driver == internal.DriverSQLite {
		db, err := openDatabase(cfg.Database, lg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Gorm.AutoMigrate(datamodel.Models()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		lg.Info("sqlite schema migrated")
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	lg.Info("migrations applied", "command", command)
	return nil
}
