package database

import (
	"fmt"
	"log"

	"coursegen-worker/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

func Connect(databaseURL string, logLevel string) (*DB, error) {
	var gormLogLevel logger.LogLevel
	switch logLevel {
	case "debug":
		gormLogLevel = logger.Info
	case "warn":
		gormLogLevel = logger.Warn
	case "error":
		gormLogLevel = logger.Error
	default:
		gormLogLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established")
	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&models.Job{},
		&models.KnowledgePack{},
		&models.CatalogCourse{},
		&models.CatalogVersion{},
		&models.CatalogUpdateEntry{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// The catalog version counter is a single seeded row.
	if err := db.DB.FirstOrCreate(&models.CatalogVersion{ID: 1}).Error; err != nil {
		return fmt.Errorf("failed to seed catalog version counter: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
