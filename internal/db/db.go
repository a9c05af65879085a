// Package db opens the bot database and owns its schema for each supported
// driver.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ahsanfayaz52/notebot/internal/config"
)

// Open connects to the database selected by cfg.DBDriver.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return OpenMySQL(ctx, cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DBPath)
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.DBDriver)
}

// CreateTables creates any missing tables. Safe to run repeatedly.
func CreateTables(ctx context.Context, db *sql.DB, driver string) error {
	switch driver {
	case config.DriverMySQL:
		return createMySQLTables(ctx, db)
	case config.DriverSQLite:
		return createSQLiteTables(ctx, db)
	}
	return fmt.Errorf("db: unsupported driver %q", driver)
}

// Migrate prepares a fresh deployment: for MySQL it creates the database
// itself first, then the tables.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.DBDriver == config.DriverMySQL {
		if err := CreateMySQLDatabase(ctx, cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName); err != nil {
			return err
		}
	}

	conn, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return CreateTables(ctx, conn, cfg.DBDriver)
}
