package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow edge operations.
// Both directions of the graph are read from the same edge table, so a
// user's followers and another user's following list cannot drift apart.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	FollowingAmong(ctx context.Context, followerID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, error)
	Edges(ctx context.Context, userIDs []uuid.UUID) ([]models.Follow, error)
}

type followRepository struct {
	conn    Conn
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewFollowRepository creates a follow repository over an open handle.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return NewFollowRepositoryWithConn(Static(db))
}

// NewFollowRepositoryWithConn creates a follow repository over a lazy connection.
func NewFollowRepositoryWithConn(conn Conn) FollowRepository {
	return &followRepository{
		conn:    conn,
		log:     observability.NewRepoLogger("follows"),
		metrics: observability.NewDatabaseMetrics("follows"),
	}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return models.NewValidationError("Users cannot follow themselves")
	}
	defer r.metrics.TrackQuery("follow")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Follow{}).
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.NewAlreadyFollowingError()
		}
		return tx.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewAlreadyFollowingError()
		}
		return fail(ctx, r.log, "follow", err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"follower_id": followerID.String(),
		"followee_id": followeeID.String(),
	})
	return nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	defer r.metrics.TrackQuery("unfollow")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	result := db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return fail(ctx, r.log, "unfollow", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFollowingError()
	}
	r.log.LogDelete(ctx, map[string]any{
		"follower_id": followerID.String(),
		"followee_id": followeeID.String(),
	})
	return nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	defer r.metrics.TrackQuery("is_following")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error; err != nil {
		return false, fail(ctx, r.log, "is_following", err)
	}
	return count > 0, nil
}

// FollowingAmong reports which of candidates followerID follows, in one query.
func (r *followRepository) FollowingAmong(ctx context.Context, followerID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}
	defer r.metrics.TrackQuery("following_among")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	if err := db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id IN ?", followerID, candidates).
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, fail(ctx, r.log, "following_among", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Edges returns every edge touching any of userIDs, oldest first.
func (r *followRepository) Edges(ctx context.Context, userIDs []uuid.UUID) ([]models.Follow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	defer r.metrics.TrackQuery("edges")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var edges []models.Follow
	if err := db.Where("follower_id IN ? OR followee_id IN ?", userIDs, userIDs).
		Order("created_at ASC").
		Find(&edges).Error; err != nil {
		return nil, fail(ctx, r.log, "edges", err)
	}
	return edges, nil
}
