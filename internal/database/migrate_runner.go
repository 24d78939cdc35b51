package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"campusqa/internal/middleware"

	"gorm.io/gorm"
)

// migrationLog is one row of migration_logs, written in the same
// transaction as the script it records.
type migrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (migrationLog) TableName() string {
	return "migration_logs"
}

// appliedVersions lists recorded versions in ascending order. A database
// that has never been migrated has none.
func appliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	if !db.Migrator().HasTable(&migrationLog{}) {
		return []int{}, nil
	}
	var versions []int
	if err := db.WithContext(ctx).Model(&migrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

// RunMigrations applies every embedded migration that migration_logs does not list yet.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return migrateUp(ctx, db, migrations)
}

func migrateUp(ctx context.Context, db *gorm.DB, registered []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&migrationLog{}); err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := checkKnownVersions(applied, registered); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied, registered) {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("apply migration %s: %w", m.String(), err)
			}
			return tx.Create(&migrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return err
		}
		middleware.Logger.Info("migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
	}
	return nil
}

// checkKnownVersions refuses to run against a database that recorded a
// version this binary does not ship.
func checkKnownVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version }) {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs lists versions unknown to this build: %s", strings.Join(unknown, ", "))
}

// RollbackMigration runs the down script of an applied migration and drops its log row.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return migrateDown(ctx, db, migrations, version)
}

func migrateDown(ctx context.Context, db *gorm.DB, registered []Migration, version int) error {
	idx := slices.IndexFunc(registered, func(m Migration) bool { return m.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	m := registered[idx]

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back migration %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&migrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("migration rolled back", slog.Int("version", version), slog.String("name", m.Name))
	return nil
}
