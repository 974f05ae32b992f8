// Command inkwellctl runs schema migrations and seeds development data.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// openDB connects to the configured database. applySchema runs the
// configured schema policy first.
var openDB = func(ctx context.Context, applySchema bool) (*gorm.DB, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	var db *gorm.DB
	if applySchema {
		db, err = database.Connect(ctx, cfg)
	} else {
		db, err = database.Open(cfg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return db, cfg, nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "inkwellctl",
		Usage: "Inkwell database operations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply, roll back or inspect SQL migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "Apply all pending migrations", Action: migrateUp},
					{Name: "down", Usage: "Roll back the latest migration", Action: migrateDown},
					{Name: "status", Usage: "Show schema policy and migration state", Action: migrateStatus},
				},
			},
			{
				Name:   "seed",
				Usage:  "Populate the database with generated or fixture data",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "users", Usage: "Number of random users", Value: 20},
					&cli.IntFlag{Name: "posts", Usage: "Number of random posts", Value: 60},
					&cli.IntFlag{Name: "follows", Usage: "Most users each seeded user follows", Value: 5},
					&cli.Int64Flag{Name: "seed", Usage: "Random seed, 0 for a random run"},
					&cli.StringFlag{Name: "fixtures", Aliases: []string{"f"}, Usage: "YAML fixtures file; disables random data"},
					&cli.BoolFlag{Name: "clean", Usage: "Delete existing data first"},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	if c.Bool("verbose") {
		middleware.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return nil
}

func withDB(c *cli.Context, applySchema bool, fn func(ctx context.Context, db *gorm.DB, cfg *config.Config) error) error {
	ctx := c.Context
	db, cfg, err := openDB(ctx, applySchema)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(ctx, db, cfg)
}

func migrateUp(c *cli.Context) error {
	return withDB(c, false, func(ctx context.Context, db *gorm.DB, _ *config.Config) error {
		if err := database.MigrateUp(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
		return nil
	})
}

func migrateDown(c *cli.Context) error {
	return withDB(c, false, func(ctx context.Context, db *gorm.DB, _ *config.Config) error {
		if err := database.MigrateDown(ctx, db); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Println("rolled back latest migration")
		return nil
	})
}

func migrateStatus(c *cli.Context) error {
	return withDB(c, false, func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s run_sql=%t run_auto=%t version=%d",
			status.Mode, status.Environment, status.SQL, status.AutoMigrate, status.CurrentVersion)
		if status.SQL {
			return database.MigrationStatus(ctx, db)
		}
		return nil
	})
}

func seedCommand(c *cli.Context) error {
	if c.Int("users") < 0 || c.Int("posts") < 0 {
		return cli.Exit("--users and --posts must not be negative", 2)
	}
	if c.Int("posts") > 0 && c.Int("users") == 0 && c.String("fixtures") == "" {
		return cli.Exit("--posts needs at least one user", 2)
	}

	var fx *seed.Fixtures
	if path := c.String("fixtures"); path != "" {
		loaded, err := seed.LoadFixtures(path)
		if err != nil {
			return err
		}
		fx = loaded
	}

	return withDB(c, true, func(ctx context.Context, db *gorm.DB, _ *config.Config) error {
		s := seed.NewSeeder(db)
		if c.Bool("clean") {
			if err := s.ClearAll(ctx); err != nil {
				return err
			}
		}

		var (
			report seed.Report
			err    error
		)
		if fx != nil {
			report, err = s.Apply(ctx, fx)
		} else {
			report, err = s.Random(ctx, seed.Options{
				NumUsers:       c.Int("users"),
				NumPosts:       c.Int("posts"),
				FollowsPerUser: c.Int("follows"),
				Seed:           c.Int64("seed"),
			})
		}
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		fmt.Fprintln(c.App.Writer, report.String())
		return nil
	})
}
