package config

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitPostgres opens a pooled gorm connection for uri.
func InitPostgres(uri string) (*gorm.DB, error) {
	if uri == "" {
		return nil, errors.New("postgres uri is empty")
	}
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// InitPostgresTiers opens the user-scoped and the elevated (service) connections. When both
// URIs are equal a single pool is shared.
func InitPostgresTiers(cfg *App) (app *gorm.DB, service *gorm.DB, err error) {
	app, err = InitPostgres(cfg.PostgresURI)
	if err != nil {
		return nil, nil, err
	}
	if cfg.PostgresServiceURI == "" || cfg.PostgresServiceURI == cfg.PostgresURI {
		return app, app, nil
	}
	service, err = InitPostgres(cfg.PostgresServiceURI)
	if err != nil {
		return nil, nil, err
	}
	return app, service, nil
}
