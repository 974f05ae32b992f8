package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func memDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql", config.Config{DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"auto prod allowed", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"sqlite hybrid", config.Config{DBDriver: "sqlite"}, false, true, false},
		{"sqlite sql refused", config.Config{DBDriver: "sqlite", DBSchemaMode: "sql"}, false, false, true},
		{"unknown", config.Config{DBSchemaMode: "magic"}, false, false, true},
		{"sqlite unknown", config.Config{DBDriver: "sqlite", DBSchemaMode: "magic"}, false, false, true},
		{"staging hybrid", config.Config{Env: " Staging ", DBSchemaMode: "HYBRID"}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			plan, err := PlanSchema(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.SQL)
			assert.Equal(t, tt.wantAuto, plan.AutoMigrate)
		})
	}
}

func TestApplySchema_SQLiteAutoMigrate(t *testing.T) {
	db := memDB(t)

	err := ApplySchema(context.Background(), db, &config.Config{DBDriver: "sqlite", Env: "test"})
	require.NoError(t, err)

	for _, table := range []string{"users", "follows", "posts", "comments", "likes", "saved_posts"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestGetSchemaStatus_SQLiteSkipsVersion(t *testing.T) {
	db := memDB(t)

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{DBDriver: "sqlite", Env: "test"})
	require.NoError(t, err)
	assert.Equal(t, SchemaModeHybrid, status.Mode)
	assert.False(t, status.SQL)
	assert.True(t, status.AutoMigrate)
	assert.Zero(t, status.CurrentVersion)
}

func TestPersistentModels_IncludesFollowEdges(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.Follow); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Follow")
}

func TestMigrationFiles_Embedded(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	assert.Contains(t, files, "00001_create_users_and_follows.sql")
	assert.Contains(t, files, "00002_create_posts.sql")
	assert.Contains(t, files, "00003_create_saved_posts.sql")
	assert.Contains(t, files, "00004_profile_text_columns.sql")
}

// Username and bio lengths are enforced in grapheme clusters by validation.
func TestProfileColumns_HaveNoCharacterLimit(t *testing.T) {
	s, err := schema.Parse(&models.User{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	for _, name := range []string{"Username", "Bio"} {
		field := s.LookUpField(name)
		require.NotNil(t, field, name)
		assert.Zero(t, field.Size, name)
		assert.Equal(t, schema.DataType("text"), field.DataType, name)
	}

	up, err := migrationFS.ReadFile(migrationDir + "/00004_profile_text_columns.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "ALTER COLUMN username TYPE TEXT")
	assert.Contains(t, string(up), "ALTER COLUMN bio TYPE TEXT")
}

func TestManager_ConnectsOnceForConcurrentCallers(t *testing.T) {
	var opens int32
	opener := func(_ context.Context, _ *config.Config) (*gorm.DB, error) {
		atomic.AddInt32(&opens, 1)
		return gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	}
	m := NewManagerWithOpener(&config.Config{}, opener)
	defer m.Close()

	var wg sync.WaitGroup
	handles := make([]*gorm.DB, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := m.DB(context.Background())
			assert.NoError(t, err)
			handles[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestManager_RetriesAfterFailure(t *testing.T) {
	attempts := 0
	opener := func(_ context.Context, _ *config.Config) (*gorm.DB, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	}
	m := NewManagerWithOpener(&config.Config{}, opener)
	defer m.Close()

	_, err := m.DB(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConnection))
	assert.Equal(t, 1, attempts)

	db, err := m.DB(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 2, attempts)
}

func TestManager_UnreachableDatabase(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("no route to host"))

	opener := func(ctx context.Context, _ *config.Config) (*gorm.DB, error) {
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
			return nil, err
		}
		return db, nil
	}
	m := NewManagerWithOpener(&config.Config{}, opener)

	_, err = m.DB(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConnection))
	assert.NoError(t, mock.ExpectationsWereMet())
}
