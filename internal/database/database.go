// Package database opens the control database and migrates its tables.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-control/internal/database/models"
)

// DB is the connection opened by Connect.
var DB *gorm.DB

const memory = ":memory:"

// Config holds database configuration.
type Config struct {
	URL         string // "file:./control.db", a plain path or ":memory:"
	MaxIdleConn int
	MaxOpenConn int
	Debug       bool
}

// Path strips the URL scheme from a DATABASE_URL value.
func Path(url string) string {
	p := strings.TrimPrefix(strings.TrimSpace(url), "file:")
	if p == "" {
		return memory
	}
	return p
}

// dsn adds the connection pragmas. WAL only applies to file databases.
func dsn(path string) string {
	pragmas := []string{"_pragma=busy_timeout(5000)"}
	if path != memory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return path + "?" + strings.Join(pragmas, "&")
}

func newLogger(debug bool) logger.Interface {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return logger.New(log.StandardLogger(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Connect opens the database, creating its directory when needed.
// An in-memory database is pinned to a single connection.
func Connect(cfg Config) (*gorm.DB, error) {
	path := Path(cfg.URL)
	if path != memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:                 newLogger(cfg.Debug),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if path == memory {
		// closing the last connection drops the database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db
	log.Infof("💾 Database connected: %s", path)
	return db, nil
}

// Migrate creates or updates the fixture, group, binding and setting tables.
func Migrate(db *gorm.DB) error {
	tables := models.All()
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Debugf("💾 Migrated %d tables", len(tables))
	return nil
}

// Close closes the connection opened by Connect.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}
