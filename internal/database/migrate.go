package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:blankimports // File source driver
	"github.com/golang-migrate/migrate/v4/source/iofs"

	infraconfig "github.com/nordicstoday/nordics-today/infrastructure/config"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrator applies the schema. With an empty Dir the migrations compiled
// into the binary are used.
type Migrator struct {
	DB  infraconfig.DatabaseConfig
	Dir string
	Log logger.Logger
}

func (m Migrator) open() (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", m.DB.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create postgres driver: %w", err)
	}

	var mig *migrate.Migrate
	if m.Dir == "" {
		src, srcErr := iofs.New(embeddedMigrations, "migrations")
		if srcErr != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("open embedded migrations: %w", srcErr)
		}
		mig, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	} else {
		dir := m.Dir
		if abs, absErr := filepath.Abs(dir); absErr == nil {
			dir = abs
		}
		mig, err = migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return mig, func() { _, _ = mig.Close() }, nil
}

func (m Migrator) source() string {
	if m.Dir == "" {
		return "embedded"
	}
	return m.Dir
}

// Up applies every pending migration.
func (m Migrator) Up() error {
	mig, closeFn, err := m.open()
	if err != nil {
		return err
	}
	defer closeFn()

	if err = mig.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Info("No pending migrations", logger.String("source", m.source()))
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	m.Log.Info("Migrations applied successfully", logger.String("source", m.source()))
	return nil
}

// Down rolls back steps migrations (at least one).
func (m Migrator) Down(steps int) error {
	if steps < 1 {
		steps = 1
	}
	mig, closeFn, err := m.open()
	if err != nil {
		return err
	}
	defer closeFn()

	if err = mig.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", err)
	}

	m.Log.Info("Migrations rolled back", logger.Int("steps", steps))
	return nil
}

// Version reports the applied schema version. A database without any
// migration reports version 0.
func (m Migrator) Version() (version uint, dirty bool, err error) {
	mig, closeFn, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err = mig.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}
