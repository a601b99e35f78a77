package bootstrap

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/aie-platform/innovation-backend/config"
	"github.com/aie-platform/innovation-backend/internal/db/migrations"
	"github.com/aie-platform/innovation-backend/internal/storage/postgres"
)

// RunMigrations applies the embedded schema migrations. A no-op when the
// schema is already current.
func RunMigrations(cfg *config.DatabaseConfig) error {
	conn, err := postgres.NewConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(conn, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
