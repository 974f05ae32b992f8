package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/serialize"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// PostService owns posts, their likes and their comments.
type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	profiles *profileRenderer
	views    ViewInvalidator
	viewTTL  time.Duration
}

// PostInput is the input for creating a post.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// PostPatch is a partial post update. Nil fields are left unchanged.
type PostPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Image   *string `json:"image"`
}

// NewPostService returns a new PostService. views may be nil; a zero
// viewTTL uses cache.DefaultViewTTL.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	views ViewInvalidator,
	viewTTL time.Duration,
) *PostService {
	if viewTTL <= 0 {
		viewTTL = cache.DefaultViewTTL
	}
	return &PostService{
		posts:    posts,
		users:    users,
		profiles: &profileRenderer{users: users, follows: follows},
		views:    orNoop(views),
		viewTTL:  viewTTL,
	}
}

// CreatePost stores a new post written by the actor.
func (s *PostService) CreatePost(ctx context.Context, actorExternalID string, in PostInput) (_ *serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost")
	defer func() { span.SetError(err); span.End() }()

	actor, err := s.users.GetByExternalID(ctx, actorExternalID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePost(validation.Post{Title: &in.Title, Content: &in.Content}); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Image:    in.Image,
		AuthorID: actor.ID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.RecordMutation("post", "create")
	s.views.Invalidate(ctx, HomePath)

	return s.load(ctx, post.ID)
}

// GetPostByID returns the fully expanded post, or nil when it does not
// exist. The post body, likes and comments are served from the view cache
// when available; user data is always read from the store.
func (s *PostService) GetPostByID(ctx context.Context, id string) (_ *serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.GetPostByID", attribute.String("post.id", id))
	defer func() { span.SetError(err); span.End() }()

	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var view serialize.Post
	err = cache.Aside(ctx, cache.ViewKey(PostViewPath(pid)), &view, s.viewTTL, func() error {
		post, err := s.posts.GetByID(ctx, pid)
		if err != nil {
			return err
		}
		view = serialize.NewPost(post, nil)
		return nil
	})
	if models.IsCode(err, models.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// hydrate expands every user referenced by a cached post view from current
// rows. Users that no longer exist stay bare ids.
func (s *PostService) hydrate(ctx context.Context, view *serialize.Post) error {
	var ids []uuid.UUID
	add := func(raw string) {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	add(view.Author.ID())
	for _, l := range view.Likes {
		add(l.ID())
	}
	for _, c := range view.Comments {
		add(c.User.ID())
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID.String()] = &users[i]
	}

	if author, ok := byID[view.Author.ID()]; ok {
		profile, err := s.profiles.renderOne(ctx, author, PopulateOptions{})
		if err != nil {
			return err
		}
		view.Author = serialize.Expanded(*profile)
	} else {
		view.Author = serialize.IDRef[serialize.User](view.Author.ID())
	}
	for i, l := range view.Likes {
		if u, ok := byID[l.ID()]; ok {
			view.Likes[i] = serialize.Expanded(serialize.NewUserSummary(u, false))
		} else {
			view.Likes[i] = serialize.IDRef[serialize.UserSummary](l.ID())
		}
	}
	for i, c := range view.Comments {
		if u, ok := byID[c.User.ID()]; ok {
			view.Comments[i].User = serialize.Expanded(serialize.NewUserSummary(u, true))
		} else {
			view.Comments[i].User = serialize.IDRef[serialize.UserSummary](c.User.ID())
		}
	}
	return nil
}

// GetPosts returns one page of posts, newest first.
func (s *PostService) GetPosts(ctx context.Context, page, limit int) (_ []serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.GetPosts")
	defer func() { span.SetError(err); span.End() }()

	page, limit = normalizePage(page, limit)
	posts, err := s.posts.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, posts)
}

// GetPostsByUser returns every post by one author, newest first. authorID
// may be an internal or an external id.
func (s *PostService) GetPostsByUser(ctx context.Context, authorID string) (_ []serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.GetPostsByUser")
	defer func() { span.SetError(err); span.End() }()

	var uid uuid.UUID
	if isExternalID(authorID) {
		author, err := s.users.GetByExternalID(ctx, authorID)
		if err != nil {
			return nil, err
		}
		uid = author.ID
	} else if uid, err = parseID(authorID); err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByAuthor(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, posts)
}

// SearchPosts matches query case-insensitively against titles and content.
func (s *PostService) SearchPosts(ctx context.Context, query string) (_ []serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.SearchPosts")
	defer func() { span.SetError(err); span.End() }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	posts, err := s.posts.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, posts)
}

// UpdatePost applies patch to a post. Only its author may edit it.
func (s *PostService) UpdatePost(ctx context.Context, id, actorExternalID string, patch PostPatch) (_ *serialize.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.UpdatePost", attribute.String("post.id", id))
	defer func() { span.SetError(err); span.End() }()

	pid, _, err := s.authorize(ctx, id, actorExternalID, "edit")
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePost(validation.Post{Title: patch.Title, Content: patch.Content}); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Content != nil {
		fields["content"] = *patch.Content
	}
	if patch.Image != nil {
		fields["image"] = *patch.Image
	}
	if len(fields) > 0 {
		if err := s.posts.Update(ctx, pid, fields); err != nil {
			return nil, err
		}
		observability.RecordMutation("post", "update")
		s.views.Invalidate(ctx, HomePath, PostViewPath(pid))
	}
	return s.load(ctx, pid)
}

// DeletePost removes a post with its comments and likes. Only its author
// may delete it.
func (s *PostService) DeletePost(ctx context.Context, id, actorExternalID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.DeletePost", attribute.String("post.id", id))
	defer func() { span.SetError(err); span.End() }()

	pid, authorID, err := s.authorize(ctx, id, actorExternalID, "delete")
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, pid); err != nil {
		return err
	}
	observability.RecordMutation("post", "delete")
	s.views.Invalidate(ctx, HomePath, PostViewPath(pid), ProfileViewPath(authorID))
	return nil
}

// authorize resolves the post and the actor and checks that the actor wrote
// the post.
func (s *PostService) authorize(ctx context.Context, id, actorExternalID, action string) (uuid.UUID, uuid.UUID, error) {
	pid, err := parseID(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	authorID, err := s.posts.GetAuthorID(ctx, pid)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	actor, err := s.users.GetByExternalID(ctx, actorExternalID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if actor.ID != authorID {
		return uuid.Nil, uuid.Nil, models.NewUnauthorizedError("Only the author can " + action + " this post")
	}
	return pid, authorID, nil
}

// LikePost adds the actor to the post's likes. Liking twice is a no-op.
func (s *PostService) LikePost(ctx context.Context, actorExternalID, postID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.LikePost")
	defer func() { span.SetError(err); span.End() }()

	actor, pid, err := s.resolveActorAndPost(ctx, actorExternalID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.Like(ctx, actor.ID, pid); err != nil {
		return err
	}
	observability.RecordMutation("like", "create")
	s.views.Invalidate(ctx, HomePath, PostViewPath(pid))
	return nil
}

// UnlikePost removes the actor from the post's likes, if present.
func (s *PostService) UnlikePost(ctx context.Context, actorExternalID, postID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.UnlikePost")
	defer func() { span.SetError(err); span.End() }()

	actor, pid, err := s.resolveActorAndPost(ctx, actorExternalID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.Unlike(ctx, actor.ID, pid); err != nil {
		return err
	}
	observability.RecordMutation("like", "delete")
	s.views.Invalidate(ctx, HomePath, PostViewPath(pid))
	return nil
}

// AddComment appends a comment by the actor to a post.
func (s *PostService) AddComment(ctx context.Context, actorExternalID, postID, content string) (_ *serialize.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.AddComment")
	defer func() { span.SetError(err); span.End() }()

	if err := validation.ValidateComment(content); err != nil {
		return nil, err
	}
	actor, pid, err := s.resolveActorAndPost(ctx, actorExternalID, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  pid,
		UserID:  actor.ID,
		Content: content,
	}
	if err := s.posts.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	observability.RecordMutation("comment", "create")
	s.views.Invalidate(ctx, HomePath, PostViewPath(pid))

	comment.User = *actor
	view := serialize.NewComment(comment)
	return &view, nil
}

func (s *PostService) resolveActorAndPost(ctx context.Context, actorExternalID, postID string) (*models.User, uuid.UUID, error) {
	pid, err := parseID(postID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	actor, err := s.users.GetByExternalID(ctx, actorExternalID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if _, err := s.posts.GetAuthorID(ctx, pid); err != nil {
		return nil, uuid.Nil, err
	}
	return actor, pid, nil
}

// load reads one post from the store, bypassing the view cache.
func (s *PostService) load(ctx context.Context, id uuid.UUID) (*serialize.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.render(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// render serializes posts with their authors expanded to full profiles.
func (s *PostService) render(ctx context.Context, posts []models.Post) ([]serialize.Post, error) {
	out := make([]serialize.Post, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	seen := map[uuid.UUID]bool{}
	var authors []models.User
	for i := range posts {
		a := posts[i].Author
		if a.ID != uuid.Nil && !seen[a.ID] {
			seen[a.ID] = true
			authors = append(authors, a)
		}
	}
	profiles, err := s.profiles.render(ctx, authors, PopulateOptions{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*serialize.User, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}

	for i := range posts {
		out = append(out, serialize.NewPost(&posts[i], byID[posts[i].AuthorID.String()]))
	}
	return out, nil
}
