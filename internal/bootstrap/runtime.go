// Package bootstrap prepares the database and cache shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"campusqa/internal/cache"
	"campusqa/internal/config"
	"campusqa/internal/database"
	"campusqa/internal/models"
	"campusqa/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations and/or AutoMigrate per DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedDevPreset loads cfg.DevSeedPreset into an empty development database.
	SeedDevPreset bool
}

// connect is swapped out in tests.
var connect = database.Connect

// InitRuntime connects to DB and Redis, applies the schema and optionally
// seeds a development preset. A nil Redis client means caching and rate
// limits run in degraded mode. On error nothing is left open.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			closeDB(db)
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDevPreset {
		if err := seedDevPreset(ctx, cfg, db); err != nil {
			closeDB(db)
			if r != nil {
				_ = r.Close()
				cache.SetClient(nil)
			}
			return nil, nil, fmt.Errorf("seed development preset: %w", err)
		}
	}

	return db, r, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Warn("closing database after failed startup", slog.String("error", err.Error()))
	}
}

// seedDevPreset applies cfg.DevSeedPreset when running in development and no
// users exist yet. It never touches other environments.
func seedDevPreset(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	preset := strings.TrimSpace(cfg.DevSeedPreset)
	if preset == "" || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		slog.InfoContext(ctx, "database already populated, skipping dev seed", slog.Int64("users", users))
		return nil
	}

	p, err := seed.LoadPreset(preset)
	if err != nil {
		return err
	}
	sum, err := seed.NewSeeder(db, seed.Options{}).ApplyPreset(ctx, p)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "development preset seeded",
		slog.String("preset", p.Name),
		slog.Int("students", sum.Students),
		slog.Int("questions", sum.Questions),
		slog.String("password", seed.DefaultPassword),
	)
	return nil
}
