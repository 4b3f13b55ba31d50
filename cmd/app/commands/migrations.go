package commands

import (
	"database/sql"
	"log/slog"

	"github.com/allisson/streamgate/internal/database"
)

// RunMigrations applies pending migrations for driver on db.
// The in-memory registry has no schema, so it is a no-op for "memory".
func RunMigrations(logger *slog.Logger, db *sql.DB, driver string) error {
	if driver == "memory" {
		logger.Info("in-memory device registry has no schema, skipping migrations")
		return nil
	}

	logger.Info("running database migrations", slog.String("driver", driver))

	migrationsPath, err := database.MigrationsPath(driver)
	if err != nil {
		return err
	}

	if err := database.Migrate(db, driver, migrationsPath); err != nil {
		return err
	}

	logger.Info("migrations completed successfully")
	return nil
}
