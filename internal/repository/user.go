package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows a user listing.
type UserFilter struct {
	Search    string
	ExcludeID *uuid.UUID
	Limit     int
	Offset    int
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	ExistsByExternalIDOrUsername(ctx context.Context, externalID, username string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	SavePost(ctx context.Context, userID, postID uuid.UUID) error
	UnsavePost(ctx context.Context, userID, postID uuid.UUID) error
	SavedPostIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

// userRepository implements UserRepository
type userRepository struct {
	conn    Conn
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewUserRepository creates a user repository over an open handle.
func NewUserRepository(db *gorm.DB) UserRepository {
	return NewUserRepositoryWithConn(Static(db))
}

// NewUserRepositoryWithConn creates a user repository over a lazy connection.
func NewUserRepositoryWithConn(conn Conn) UserRepository {
	return &userRepository{
		conn:    conn,
		log:     observability.NewRepoLogger("users"),
		metrics: observability.NewDatabaseMetrics("users"),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	if err := db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewDuplicateError("User already exists")
		}
		return fail(ctx, r.log, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID.String()})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, fail(ctx, r.log, "get_by_id", err)
	}
	return &user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_external_id")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", externalID)
		}
		return nil, fail(ctx, r.log, "get_by_external_id", err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer r.metrics.TrackQuery("get_by_ids")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fail(ctx, r.log, "get_by_ids", err)
	}
	return users, nil
}

func (r *userRepository) ExistsByExternalIDOrUsername(ctx context.Context, externalID, username string) (bool, error) {
	defer r.metrics.TrackQuery("exists")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&models.User{}).
		Where("external_id = ? OR username = ?", externalID, username).
		Count(&count).Error; err != nil {
		return false, fail(ctx, r.log, "exists", err)
	}
	return count > 0, nil
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	defer r.metrics.TrackQuery("update")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	result := db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return models.NewDuplicateError("Username is already taken")
		}
		return fail(ctx, r.log, "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": id.String()})
	return nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	defer r.metrics.TrackQuery("list")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, 0, err
	}

	q := db.Model(&models.User{})
	if filter.Search != "" {
		p := containsPattern(filter.Search)
		q = q.Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(bio) LIKE ? ESCAPE '\'`, p, p)
	}
	if filter.ExcludeID != nil {
		q = q.Where("id <> ?", *filter.ExcludeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fail(ctx, r.log, "list", err)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Order("id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, fail(ctx, r.log, "list", err)
	}
	return users, total, nil
}

func (r *userRepository) SavePost(ctx context.Context, userID, postID uuid.UUID) error {
	defer r.metrics.TrackQuery("save_post")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	saved := &models.SavedPost{UserID: userID, PostID: postID}
	if err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(saved).Error; err != nil {
		return fail(ctx, r.log, "save_post", err)
	}
	return nil
}

func (r *userRepository) UnsavePost(ctx context.Context, userID, postID uuid.UUID) error {
	defer r.metrics.TrackQuery("unsave_post")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	if err := db.Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.SavedPost{}).Error; err != nil {
		return fail(ctx, r.log, "unsave_post", err)
	}
	return nil
}

func (r *userRepository) SavedPostIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	defer r.metrics.TrackQuery("saved_post_ids")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var rows []models.SavedPost
	if err := db.Where("user_id IN ?", userIDs).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fail(ctx, r.log, "saved_post_ids", err)
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.PostID)
	}
	return out, nil
}
