package service

import (
	"context"
	"sync"
	"testing"

	"inkwell/internal/database"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingInvalidator captures invalidated paths.
type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *recordingInvalidator) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type testEnv struct {
	db    *gorm.DB
	users *UserService
	posts *PostService
	views *recordingInvalidator
	ctx   context.Context
}

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

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	views := &recordingInvalidator{}

	return &testEnv{
		db:    db,
		users: NewUserService(userRepo, followRepo, postRepo, views),
		posts: NewPostService(postRepo, userRepo, followRepo, views, 0),
		views: views,
		ctx:   context.Background(),
	}
}

// signUp provisions a user whose external id is "user_<name>".
func (e *testEnv) signUp(t *testing.T, name string) string {
	t.Helper()
	ext := "user_" + name
	_, err := e.users.CreateUser(e.ctx, CreateUserInput{
		ExternalID: ext,
		Email:      name + "@example.com",
		Username:   name,
		Photo:      "https://img.example.com/" + name + ".png",
	})
	require.NoError(t, err)
	return ext
}

func strPtr(s string) *string { return &s }

type failingConn struct {
	err error
}

func (c failingConn) DB(context.Context) (*gorm.DB, error) {
	return nil, c.err
}
