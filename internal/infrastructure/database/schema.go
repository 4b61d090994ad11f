package database

import (
	"errors"
	"fmt"
	"io/fs"

	"clinic-booking/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrSchemaNotMigrated = errors.New("database schema has not been migrated")
	ErrSchemaDirty       = errors.New("database schema is dirty, a previous migration failed")
	ErrSchemaOutdated    = errors.New("database schema is behind the embedded migrations")
)

// NewMigrator wires golang-migrate to the pool behind db and the embedded SQL files.
// Closing it releases one connection; the pool itself stays open.
func NewMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// LatestVersion returns the highest version among the embedded migrations.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

// EnsureSchema runs once at startup. With autoMigrate it applies pending
// migrations; either way it refuses to start on a missing, dirty or stale schema.
func EnsureSchema(db *gorm.DB, autoMigrate bool, log *logrus.Logger) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	defer m.Close()

	if autoMigrate {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return ErrSchemaNotMigrated
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return ErrSchemaDirty
	}

	latest, err := LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	if version < latest {
		return fmt.Errorf("%w: at %d, want %d", ErrSchemaOutdated, version, latest)
	}

	log.WithField("version", version).Info("Database schema verified")
	return nil
}
