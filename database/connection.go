package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

// Open connects to the session database named by dsn.
// Supported forms: postgres://..., postgresql://... and sqlite://<path>.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if driver == "sqlite" {
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("session database connected", zap.String("driver", driver))
	return db, nil
}

// Migrate creates or updates the session table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.CallSessionRecord{}); err != nil {
		return fmt.Errorf("migrate call_sessions: %w", err)
	}
	return nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("parse session store DSN: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return postgres.Open(dsn), "postgres", nil
	case "sqlite":
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return nil, "", fmt.Errorf("sqlite DSN needs a path")
		}
		return sqlite.Open(path), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported session store scheme %q", u.Scheme)
	}
}
