package repository

import (
	"context"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	t.Run("Follow and read both directions", func(t *testing.T) {
		require.NoError(t, repo.Follow(ctx, alice.ID, bob.ID))

		edges, err := repo.Edges(ctx, []uuid.UUID{bob.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, alice.ID, edges[0].FollowerID)
		assert.Equal(t, bob.ID, edges[0].FolloweeID)

		ok, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsFollowing(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Double follow is rejected", func(t *testing.T) {
		err := repo.Follow(ctx, alice.ID, bob.ID)
		assert.True(t, models.IsCode(err, models.CodeAlreadyFollowing))

		edges, err := repo.Edges(ctx, []uuid.UUID{bob.ID})
		require.NoError(t, err)
		assert.Len(t, edges, 1)
	})

	t.Run("Self follow is rejected", func(t *testing.T) {
		err := repo.Follow(ctx, carol.ID, carol.ID)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("FollowingAmong and Edges", func(t *testing.T) {
		require.NoError(t, repo.Follow(ctx, alice.ID, carol.ID))

		among, err := repo.FollowingAmong(ctx, alice.ID, []uuid.UUID{bob.ID, carol.ID, alice.ID})
		require.NoError(t, err)
		assert.True(t, among[bob.ID])
		assert.True(t, among[carol.ID])
		assert.False(t, among[alice.ID])

		edges, err := repo.Edges(ctx, []uuid.UUID{carol.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, alice.ID, edges[0].FollowerID)
	})

	t.Run("Unfollow", func(t *testing.T) {
		require.NoError(t, repo.Unfollow(ctx, alice.ID, bob.ID))

		ok, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		err = repo.Unfollow(ctx, alice.ID, bob.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFollowing))
	})
}

func TestFollowRepository_Unfollow_NoEdge(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE follower_id = $1 AND followee_id = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Unfollow(context.Background(), uuid.New(), uuid.New())
	assert.True(t, models.IsCode(err, models.CodeNotFollowing))
	assert.NoError(t, mock.ExpectationsWereMet())
}
