// Package db opens the SQL backend and prepares its schema.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/diewo77/go-quotes/internal/config"
	"github.com/diewo77/go-quotes/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Models lists every table managed by AutoMigrate.
var Models = []any{&models.DocumentRecord{}, &models.User{}}

const connectAttempts = 10

var passwordPattern = regexp.MustCompile(`(password=)(\S+)`)

// Open connects to the configured database, retrying while PostgreSQL starts.
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	switch cfg.Driver {
	case "sqlite":
		slog.Info("opening sqlite database", "path", cfg.Path)
		return gorm.Open(sqlite.Open(cfg.Path), gcfg)
	case "postgres":
		dsn := cfg.DSN()
		slog.Info("connecting to postgres", "dsn", passwordPattern.ReplaceAllString(dsn, "${1}***"))
		var (
			conn *gorm.DB
			err  error
		)
		for i := 0; i < connectAttempts; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), gcfg)
			if err == nil {
				break
			}
			slog.Warn("retrying database connection", "attempt", i+1, "err", err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		if err := conn.Exec("SELECT 1").Error; err != nil {
			return nil, fmt.Errorf("db ping failed: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate brings the schema up to date. SQL migrations are used when
// requested for PostgreSQL; otherwise GORM's AutoMigrate.
func Migrate(conn *gorm.DB, cfg config.DatabaseConfig, sqlMigrations bool) error {
	if sqlMigrations && cfg.Driver == "postgres" {
		if err := RunSQLMigrations(cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models {
			if err := conn.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range []string{"quote_documents", "users"} {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// RunSQLMigrations applies the embedded migrations to the database at url.
func RunSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
