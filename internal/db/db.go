package db

import (
	"fmt"
	"runtime"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/db/models"
	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DatabaseDriverSQLite:
		return sqlite.Open(cfg.Database + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"), nil
	case config.DatabaseDriverMySQL:
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)
		if cfg.ExtraParameters != "" {
			dsn += "&" + cfg.ExtraParameters
		}
		return mysql.Open(dsn), nil
	case config.DatabaseDriverPostgres:
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s", cfg.Host, port, cfg.Username, cfg.Password, cfg.Database)
		if cfg.ExtraParameters != "" {
			dsn += " " + cfg.ExtraParameters
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func MakeDB(config *config.Config) (db *gorm.DB, err error) {
	dial, err := dialector(config.Persistence.Database)
	if err != nil {
		return nil, err
	}
	db, err = gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	if config.HTTP.Tracing.Enabled {
		if err = db.Use(otelgorm.NewPlugin()); err != nil {
			return db, fmt.Errorf("failed to trace database: %w", err)
		}
	}

	err = db.AutoMigrate(&models.StorageEntry{})
	if err != nil {
		return db, fmt.Errorf("failed to migrate database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	const connsPerCPU = 10
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	const maxIdleTime = 10 * time.Minute
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return
}
