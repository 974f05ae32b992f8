package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// Accepted values of DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

var productionLikeEnvs = map[string]bool{
	"production": true,
	"prod":       true,
	"staging":    true,
	"stage":      true,
}

// SchemaPlan is what ApplySchema does for one config. When both steps run,
// goose migrations go first.
type SchemaPlan struct {
	Mode        string
	Environment string
	SQL         bool
	AutoMigrate bool
}

// SchemaStatus is a plan plus the goose version the database is at. The
// version is only read when the plan runs migrations.
type SchemaStatus struct {
	SchemaPlan
	CurrentVersion int64
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment and driver.
//
//	hybrid  migrations everywhere, AutoMigrate outside production-like envs
//	sql     migrations only
//	auto    AutoMigrate only; production-like envs need DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE
//
// The migrations are PostgreSQL DDL, so SQLite always plans AutoMigrate.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:        strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Environment: cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	prod := productionLikeEnvs[strings.ToLower(strings.TrimSpace(cfg.Env))]

	switch plan.Mode {
	case SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto:
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}

	switch {
	case cfg.DBDriver == "sqlite":
		if plan.Mode == SchemaModeSQL {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=sql requires the postgres driver")
		}
		plan.AutoMigrate = true
	case plan.Mode == SchemaModeSQL:
		plan.SQL = true
	case plan.Mode == SchemaModeHybrid:
		plan.SQL = true
		plan.AutoMigrate = !prod
	case prod && !cfg.DBAutoMigrateAllowDestructive:
		return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
	default:
		plan.AutoMigrate = true
	}
	return plan, nil
}

// ApplySchema brings the schema up to date according to PlanSchema.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}
	if plan.SQL {
		if err := MigrateUp(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.AutoMigrate {
		middleware.Logger.InfoContext(ctx, "auto-migrating models",
			slog.String("mode", plan.Mode), slog.String("env", plan.Environment))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if plan.SQL {
		if status.CurrentVersion, err = MigrationVersion(ctx, db); err != nil {
			return nil, err
		}
	}
	return status, nil
}
