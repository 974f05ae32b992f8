package database

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func withGoose(db *gorm.DB, fn func(*gorm.DB) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(db)
}

// MigrateUp applies all pending SQL migrations.
func MigrateUp(ctx context.Context, db *gorm.DB) error {
	return withGoose(db, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return goose.UpContext(ctx, sqlDB, migrationDir)
	})
}

// MigrateDown rolls back the most recent SQL migration.
func MigrateDown(ctx context.Context, db *gorm.DB) error {
	return withGoose(db, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return goose.DownContext(ctx, sqlDB, migrationDir)
	})
}

// MigrationStatus prints the applied/pending state of every migration.
func MigrationStatus(ctx context.Context, db *gorm.DB) error {
	return withGoose(db, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return goose.StatusContext(ctx, sqlDB, migrationDir)
	})
}

// MigrationVersion returns the current goose schema version.
func MigrationVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	var version int64
	err := withGoose(db, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		version, err = goose.GetDBVersionContext(ctx, sqlDB)
		return err
	})
	return version, err
}

// MigrationFiles lists the embedded migration file names.
func MigrationFiles() ([]string, error) {
	entries, err := migrationFS.ReadDir(migrationDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
