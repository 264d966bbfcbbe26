package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Open connects to the configured database and applies pool configuration.
// MySQL connections are retried with exponential backoff because the server
// may still be booting when the process starts.
func Open(ctx context.Context) (*gorm.DB, error) {
	cfg := config.Cfg.Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%v: create storage dir: %w", config.ModuleDatabase, err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case "mysql":
		dialector = mysql.Open(config.Cfg.Dsn)
	default:
		return nil, fmt.Errorf("%v: unsupported driver %q", config.ModuleDatabase, cfg.Driver)
	}

	var db *gorm.DB
	connect := func() error {
		conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			logger.Warn("%v: connect failed: %v", config.ModuleDatabase, err)
			return err
		}
		db = conn
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if cfg.Driver == "sqlite" {
		policy = backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	if err := backoff.Retry(connect, policy); err != nil {
		logger.Error(err, "%v: failed to connect to database", config.ModuleDatabase)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	lifetime := time.Duration(cfg.MaxLifetime) * time.Minute
	sqlDB.SetConnMaxIdleTime(lifetime)
	sqlDB.SetConnMaxLifetime(lifetime)

	if cfg.Driver == "mysql" && len(cfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Replicas))
		for _, dsn := range cfg.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(cfg.MaxIdleConns).
			SetMaxOpenConns(cfg.MaxOpenConns).
			SetConnMaxLifetime(lifetime)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("%v: register replicas: %w", config.ModuleDatabase, err)
		}
		logger.Info("%v: %d read replicas registered", config.ModuleDatabase, len(replicas))
	}

	return db, nil
}

// Ping verifies the connection is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
