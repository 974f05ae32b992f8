package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "alice")
	assert.NotEqual(t, uuid.Nil, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byExt, err := repo.GetByExternalID(ctx, "ext_alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byExt.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.GetByExternalID(ctx, "ext_nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	createUser(t, db, "alice")

	err := repo.Create(context.Background(), &models.User{
		ExternalID: "ext_other",
		Email:      "other@example.com",
		Username:   "alice",
	})
	assert.True(t, models.IsCode(err, models.CodeDuplicate))
}

func TestUserRepository_ExistsByExternalIDOrUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, db, "alice")

	tests := []struct {
		name       string
		externalID string
		username   string
		want       bool
	}{
		{"external id match", "ext_alice", "someone", true},
		{"username match", "ext_x", "alice", true},
		{"no match", "ext_x", "bob", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ExistsByExternalIDOrUsername(ctx, tt.externalID, tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	createUser(t, db, "bob")

	require.NoError(t, repo.Update(ctx, alice.ID, map[string]any{"bio": "hello", "about": ""}))
	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, "", got.About)

	err = repo.Update(ctx, alice.ID, map[string]any{"username": "bob"})
	assert.True(t, models.IsCode(err, models.CodeDuplicate))

	err = repo.Update(ctx, uuid.New(), map[string]any{"bio": "x"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	assert.NoError(t, repo.Update(ctx, alice.ID, nil))
}

func TestUserRepository_Update_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Update(context.Background(), uuid.New(), map[string]any{"username": "taken"})
	assert.True(t, models.IsCode(err, models.CodeDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WillReturnError(errors.New("connection timeout"))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	createUser(t, db, "alicia")
	bob := createUser(t, db, "bob")
	require.NoError(t, repo.Update(ctx, bob.ID, map[string]any{"bio": "Friends with ALICE"}))
	createUser(t, db, "carol")

	users, total, err := repo.List(ctx, UserFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, users, 4)

	users, total, err = repo.List(ctx, UserFilter{Search: "Ali", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 3)

	users, total, err = repo.List(ctx, UserFilter{Search: "ali", ExcludeID: &alice.ID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, u := range users {
		assert.NotEqual(t, alice.ID, u.ID)
	}

	users, total, err = repo.List(ctx, UserFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, users, 1)

	_, total, err = repo.List(ctx, UserFilter{Search: "%", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total, "wildcards are matched literally")
}

func TestUserRepository_SavedPosts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice, "Saved", "body", timeAt(0))

	require.NoError(t, repo.SavePost(ctx, alice.ID, post.ID))
	require.NoError(t, repo.SavePost(ctx, alice.ID, post.ID))

	saved, err := repo.SavedPostIDs(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{post.ID}, saved[alice.ID])

	require.NoError(t, repo.UnsavePost(ctx, alice.ID, post.ID))
	saved, err = repo.SavedPostIDs(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	assert.Empty(t, saved[alice.ID])
}

func TestUserRepository_ConnectionFailure(t *testing.T) {
	connErr := models.NewConnectionError(errors.New("dial tcp: refused"))
	repo := NewUserRepositoryWithConn(failingConn{err: connErr})

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, models.IsCode(err, models.CodeConnection))
}

