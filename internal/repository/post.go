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

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	GetAuthorID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error)
	Search(ctx context.Context, query string) ([]models.Post, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	Like(ctx context.Context, userID, postID uuid.UUID) error
	Unlike(ctx context.Context, userID, postID uuid.UUID) error
	AddComment(ctx context.Context, comment *models.Comment) error
}

// postRepository implements PostRepository
type postRepository struct {
	conn    Conn
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a post repository over an open handle.
func NewPostRepository(db *gorm.DB) PostRepository {
	return NewPostRepositoryWithConn(Static(db))
}

// NewPostRepositoryWithConn creates a post repository over a lazy connection.
func NewPostRepositoryWithConn(conn Conn) PostRepository {
	return &postRepository{
		conn:    conn,
		log:     observability.NewRepoLogger("posts"),
		metrics: observability.NewDatabaseMetrics("posts"),
	}
}

// withDetails loads the author, likers and comment authors. Likes and
// comments come back oldest first.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("likes.created_at ASC")
		}).
		Preload("Likes.User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		Preload("Comments.User")
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("posts.created_at DESC").Order("posts.id DESC")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	if err := db.Omit(clause.Associations).Create(post).Error; err != nil {
		return fail(ctx, r.log, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"post_id":   post.ID.String(),
		"author_id": post.AuthorID.String(),
	})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := withDetails(db).First(&post, "posts.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, fail(ctx, r.log, "get_by_id", err)
	}
	return &post, nil
}

// GetAuthorID resolves only the author of a post, for ownership checks.
func (r *postRepository) GetAuthorID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	defer r.metrics.TrackQuery("get_author_id")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return uuid.Nil, err
	}
	var post models.Post
	if err := db.Select("id", "author_id").First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, models.NewNotFoundError("Post", id)
		}
		return uuid.Nil, fail(ctx, r.log, "get_author_id", err)
	}
	return post.AuthorID, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	defer r.metrics.TrackQuery("list")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := newestFirst(withDetails(db)).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, fail(ctx, r.log, "list", err)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error) {
	defer r.metrics.TrackQuery("list_by_author")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := newestFirst(withDetails(db)).
		Where("posts.author_id = ?", authorID).
		Find(&posts).Error; err != nil {
		return nil, fail(ctx, r.log, "list_by_author", err)
	}
	return posts, nil
}

// Search matches query case-insensitively against title or content.
func (r *postRepository) Search(ctx context.Context, query string) ([]models.Post, error) {
	defer r.metrics.TrackQuery("search")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return nil, err
	}
	p := containsPattern(query)
	var posts []models.Post
	if err := newestFirst(withDetails(db)).
		Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\'`, p, p).
		Find(&posts).Error; err != nil {
		return nil, fail(ctx, r.log, "search", err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	defer r.metrics.TrackQuery("update")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fail(ctx, r.log, "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": id.String()})
	return nil
}

// Delete removes a post together with its comments, likes and bookmarks.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.metrics.TrackQuery("delete")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return fail(ctx, r.log, "delete", err)
	}
	r.log.LogDelete(ctx, map[string]any{"post_id": id.String()})
	return nil
}

// Like records userID's like on postID. Repeated likes are no-ops.
func (r *postRepository) Like(ctx context.Context, userID, postID uuid.UUID) error {
	defer r.metrics.TrackQuery("like")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	like := &models.Like{UserID: userID, PostID: postID}
	if err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like).Error; err != nil {
		return fail(ctx, r.log, "like", err)
	}
	return nil
}

// Unlike removes userID's like on postID if present.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	defer r.metrics.TrackQuery("unlike")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	if err := db.Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error; err != nil {
		return fail(ctx, r.log, "unlike", err)
	}
	return nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("add_comment")()
	db, err := session(ctx, r.conn)
	if err != nil {
		return err
	}
	if err := db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return fail(ctx, r.log, "add_comment", err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"comment_id": comment.ID.String(),
		"post_id":    comment.PostID.String(),
	})
	return nil
}
