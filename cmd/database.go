package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/lingkungan/internal"
	datamodel "github.com/frahmantamala/lingkungan/internal/core/datamodel/lingkungan"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database bundles the GORM handle used by repositories and the sqlx handle
// used by read models. Both share one connection pool.
type Database struct {
	Gorm *gorm.DB
	SQLX *sqlx.DB
}

func (d *Database) Close() error {
	return d.SQLX.Close()
}

// openDatabase connects with the configured driver and applies pool limits.
func openDatabase(cfg internal.DatabaseConfig, lg *slog.Logger) (*Database, error) {
	var (
		dialector  gorm.Dialector
		sqlxDriver string
	)
	switch cfg.Driver {
	case internal.DriverSQLite:
		dialector = sqlite.Open(cfg.Source)
		sqlxDriver = "sqlite3"
	default:
		dialector = postgres.Open(cfg.Source)
		sqlxDriver = "pgx"
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == internal.DriverSQLite {
		// SQLite allows one writer; a single connection keeps transactions serialized.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate || cfg.Driver == internal.DriverSQLite {
		if err := db.AutoMigrate(datamodel.Models()...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to auto-migrate: %w", err)
		}
		lg.Info("schema auto-migrated", "driver", cfg.Driver)
	}

	return &Database{
		Gorm: db,
		SQLX: sqlx.NewDb(sqlDB, sqlxDriver),
	}, nil
}
