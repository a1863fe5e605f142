package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Migrate applies every pending schema migration
func (db *DB) Migrate(ctx context.Context) error {
	return db.runGoose(func(sqlDB *sql.DB) error {
		return goose.UpContext(ctx, sqlDB, migrationDir)
	})
}

// MigrateDown rolls back the most recent migration
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.runGoose(func(sqlDB *sql.DB) error {
		return goose.DownContext(ctx, sqlDB, migrationDir)
	})
}

// SchemaVersion returns the current migration version
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	var version int64
	err := db.runGoose(func(sqlDB *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, sqlDB)
		version = v
		return err
	})
	return version, err
}

func (db *DB) runGoose(fn func(sqlDB *sql.DB) error) error {
	goose.SetLogger(&gooseLogger{})
	goose.SetBaseFS(migrationFiles)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer func() { _ = sqlDB.Close() }()

	if err := fn(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zap
type gooseLogger struct{}

func (l *gooseLogger) Printf(format string, v ...interface{}) { zap.S().Infof(format, v...) }
func (l *gooseLogger) Fatalf(format string, v ...interface{}) { zap.S().Fatalf(format, v...) }
