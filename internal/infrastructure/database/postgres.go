package database

import (
	"fmt"

	"clinic-booking/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresConnection opens the pool. Sessions run in UTC; DATE columns are
// compared as civil dates and never shifted through the clinic timezone.
func NewPostgresConnection(cfg config.DBConfig, env string) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC connect_timeout=%d",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, int(cfg.ConnectTimeout.Seconds()),
	)

	logLevel := logger.Warn
	if env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	logrus.Info("Successfully connected to PostgreSQL database")

	return db, nil
}
