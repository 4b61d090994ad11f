package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"clinic-booking/config"
	"clinic-booking/internal/infrastructure/database"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
)

const usage = "usage: migrate [up | down [N] | force VERSION | version]"

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		logrus.Fatalf("Failed to create migrator: %v", err)
	}
	defer m.Close()

	if err := run(m, os.Args[1:]); err != nil {
		logrus.Fatal(err)
	}
}

func run(m *migrate.Migrate, args []string) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		// Without N only the last migration is reverted.
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version: %w", err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case "version":
	default:
		return errors.New(usage)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logrus.Info("No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Schema version")
	return nil
}
