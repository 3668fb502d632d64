package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// Open connects with the configured driver and migrates the schema.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	serviceLog := logg.With("service", "Database", "driver", cfg.Driver)

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("db: POSTGRES_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "notegen.db"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	serviceLog.Info("Database ready")
	return db, nil
}
