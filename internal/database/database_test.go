package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"campusqa/internal/config"
	"campusqa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	err := configurePool(db, &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)

	// zero values fall back to defaults
	require.NoError(t, configurePool(db, &config.Config{}))
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestQueryLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := &queryLogger{
		log:   slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		level: logger.Warn,
		slow:  50 * time.Millisecond,
	}
	query := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	tests := []struct {
		name  string
		l     logger.Interface
		begin time.Time
		err   error
		want  string
	}{
		{"Fast query is quiet", l, time.Now(), nil, ""},
		{"Record not found is quiet", l, time.Now(), gorm.ErrRecordNotFound, ""},
		{"Failure is logged", l, time.Now(), errors.New("boom"), "query failed"},
		{"Slow query is logged", l, time.Now().Add(-time.Second), nil, "slow query"},
		{"Silent drops failures", l.LogMode(logger.Silent), time.Now(), errors.New("boom"), ""},
		{"Info logs every query", l.LogMode(logger.Info), time.Now(), nil, "msg=query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.l.Trace(ctx, tt.begin, query, tt.err)
			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "SELECT 1")
		})
	}
	assert.Equal(t, logger.Warn, l.level, "LogMode returns a copy")
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Equal(t, "000001_init", all[0].String())
	assert.Contains(t, all[0].UpScript, "idx_answer_likes_answer_user")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS reputation_events")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{"Missing down", fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
		}},
		{"Bad name", fstest.MapFS{
			"m/first.up.sql":   {Data: []byte("SELECT 1;")},
			"m/first.down.sql": {Data: []byte("SELECT 1;")},
		}},
		{"Duplicate version", fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_b.down.sql": {Data: []byte("SELECT 1;")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fs, "m")
			assert.Error(t, err)
		})
	}
}

func testMigrations(t *testing.T) []Migration {
	t.Helper()
	list, err := LoadMigrations(fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);")},
		"m/000002_second.down.sql": {Data: []byte("DROP TABLE second;")},
		"m/000001_first.up.sql":    {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
		"m/000001_first.down.sql":  {Data: []byte("DROP TABLE first;")},
	}, "m")
	require.NoError(t, err)
	return list
}

func TestRunAndRollbackMigrations(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	list := testMigrations(t)
	require.Equal(t, 1, list[0].Version)

	require.NoError(t, migrateUp(ctx, db, list))
	// second run is a no-op
	require.NoError(t, migrateUp(ctx, db, list))

	applied, err := appliedVersions(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("second"))

	require.NoError(t, migrateDown(ctx, db, list, 2))
	assert.False(t, db.Migrator().HasTable("second"))
	assert.Error(t, migrateDown(ctx, db, list, 2), "already rolled back")
	assert.Error(t, migrateDown(ctx, db, list, 7), "unknown version")

	// a version recorded in the DB but absent from code blocks startup
	assert.Error(t, migrateUp(ctx, db, list[:0]))
}

func TestAppliedVersions_MissingTable(t *testing.T) {
	db := openSQLite(t)
	applied, err := appliedVersions(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"Hybrid dev", config.Config{Env: "development", DBSchemaMode: "hybrid"}, true, true, false},
		{"Hybrid default mode", config.Config{Env: "development"}, true, true, false},
		{"Hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"Hybrid staging", config.Config{Env: "staging", DBSchemaMode: "hybrid"}, true, false, false},
		{"SQL only", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"Auto dev", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"Auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"Auto prod allowed", config.Config{Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"Unknown mode", config.Config{Env: "development", DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestApplySchema_AutoOnSQLite(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.AnswerLike{}, "idx_answer_likes_answer_user"))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestPendingMigrations(t *testing.T) {
	list := testMigrations(t)
	pending := pendingMigrations([]int{1}, list)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}
