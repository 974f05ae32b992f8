package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupTestDB returns a migrated in-memory sqlite database. A single
// connection keeps every query on the same in-memory instance.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		ExternalID: "ext_" + name,
		Email:      fmt.Sprintf("%s@example.com", name),
		Username:   name,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, title, content string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:     title,
		Content:   content,
		AuthorID:  author.ID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), p))
	return p
}

type failingConn struct {
	err error
}

func (c failingConn) DB(context.Context) (*gorm.DB, error) {
	return nil, c.err
}

func timeAt(minutes int) time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}
