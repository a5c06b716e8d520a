// Package migration applies the embedded schema migrations at startup.
package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/cargovera/cargovera/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run migrates the schema to the latest version. sqlite deployments are
// development-only and rely on AutoMigrate instead.
func Run(cfg config.Config, conn *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if cfg.DBType == "sqlite" {
		log.Info("skipping migrations for sqlite")
		return autoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	var driver database.Driver
	switch cfg.DBType {
	case "postgres":
		driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	case "mysql":
		driver, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	default:
		return fmt.Errorf("unsupported %s type", cfg.DBType)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.DBType, driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.Info("schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
