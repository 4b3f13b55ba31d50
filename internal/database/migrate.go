package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationDirs maps a database driver to its directory under migrations/.
var migrationDirs = map[string]string{
	"postgres": "postgresql",
	"mysql":    "mysql",
	"sqlite":   "sqlite",
}

// Migrate applies all pending migrations from migrationsPath to db.
// It returns nil when the schema is already up to date.
//
// The migrate instance is not closed: closing it would close db, which the caller owns.
func Migrate(db *sql.DB, driver string, migrationsPath string) error {
	var (
		dbDriver migratedb.Driver
		err      error
	)

	switch driver {
	case "postgres":
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case "mysql":
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
	case "sqlite":
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported database driver for migrations: %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), driver, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrationsPath resolves migrations/<dir> for driver by walking up from the
// current working directory.
func MigrationsPath(driver string) (string, error) {
	dirName, ok := migrationDirs[driver]
	if !ok {
		return "", fmt.Errorf("unsupported database driver for migrations: %q", driver)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		migrationsPath := filepath.Join(dir, "migrations", dirName)
		if _, err := os.Stat(migrationsPath); err == nil {
			return migrationsPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found for %s", driver)
		}
		dir = parent
	}
}
