package service

import (
	"context"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/serialize"
	"inkwell/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// UserService owns user records and the follow graph.
type UserService struct {
	users    repository.UserRepository
	follows  repository.FollowRepository
	posts    repository.PostRepository
	profiles *profileRenderer
	views    ViewInvalidator
}

// CreateUserInput is the input for provisioning a user after sign-up.
type CreateUserInput struct {
	ExternalID string
	Email      string
	Username   string
	FirstName  string
	LastName   string
	Photo      string
	Bio        string
	About      string
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	About    *string `json:"about"`
	Photo    *string `json:"photo"`
}

// ListUsersOptions filters and pages GetAllUsers.
type ListUsersOptions struct {
	Page             int
	Limit            int
	Search           string
	ExcludeID        string
	ViewerExternalID string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// UserPage is one page of users.
type UserPage struct {
	Users      []serialize.User `json:"users"`
	Pagination Pagination       `json:"pagination"`
}

// NewUserService returns a new UserService. views may be nil.
func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	views ViewInvalidator,
) *UserService {
	return &UserService{
		users:    users,
		follows:  follows,
		posts:    posts,
		profiles: &profileRenderer{users: users, follows: follows},
		views:    orNoop(views),
	}
}

// CreateUser inserts a new user after checking required fields, profile
// limits and uniqueness of external id and username.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (_ *serialize.User, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.CreateUser")
	defer func() { span.SetError(err); span.End() }()

	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Username = strings.TrimSpace(in.Username)
	if in.ExternalID == "" || in.Username == "" {
		return nil, models.NewValidationError("External ID and username are required")
	}
	if err := validation.ValidateProfile(validation.Profile{
		Username: &in.Username,
		Bio:      &in.Bio,
		About:    &in.About,
	}); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByExternalIDOrUsername(ctx, in.ExternalID, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewDuplicateError("User already exists")
	}

	user := &models.User{
		ExternalID: in.ExternalID,
		Email:      in.Email,
		Username:   in.Username,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Photo:      in.Photo,
		Bio:        in.Bio,
		About:      in.About,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.RecordMutation("user", "create")

	view := serialize.NewUser(user)
	return &view, nil
}

// GetUserByID returns the user with the given internal id, or nil when
// there is none. Ids carrying the identity-provider prefix are looked up as
// external ids.
func (s *UserService) GetUserByID(ctx context.Context, id string, opts PopulateOptions) (_ *serialize.User, err error) {
	if isExternalID(id) {
		return s.GetUserByExternalID(ctx, id, opts)
	}
	span, ctx := observability.NewSpan(ctx, "UserService.GetUserByID", attribute.String("user.id", id))
	defer func() { span.SetError(err); span.End() }()

	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, uid)
	if models.IsCode(err, models.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.profiles.renderOne(ctx, user, opts)
}

// GetUserByExternalID returns the user issued externalID, or nil.
func (s *UserService) GetUserByExternalID(ctx context.Context, externalID string, opts PopulateOptions) (_ *serialize.User, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.GetUserByExternalID")
	defer func() { span.SetError(err); span.End() }()

	if strings.TrimSpace(externalID) == "" {
		return nil, models.NewValidationError("External ID is required")
	}
	user, err := s.users.GetByExternalID(ctx, externalID)
	if models.IsCode(err, models.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.profiles.renderOne(ctx, user, opts)
}

// GetCurrentUser returns the signed-in user without expanding follow lists.
func (s *UserService) GetCurrentUser(ctx context.Context, externalID string) (*serialize.User, error) {
	return s.GetUserByExternalID(ctx, externalID, PopulateOptions{})
}

// UpdateUser applies a profile patch to the user issued externalID and
// returns the updated profile with follow lists expanded.
func (s *UserService) UpdateUser(ctx context.Context, externalID string, patch UserPatch) (_ *serialize.User, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.UpdateUser")
	defer func() { span.SetError(err); span.End() }()

	if err := validation.ValidateProfile(validation.Profile{
		Username: patch.Username,
		Bio:      patch.Bio,
		About:    patch.About,
	}); err != nil {
		return nil, err
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Username != nil {
		fields["username"] = strings.TrimSpace(*patch.Username)
	}
	if patch.Bio != nil {
		fields["bio"] = *patch.Bio
	}
	if patch.About != nil {
		fields["about"] = *patch.About
	}
	if patch.Photo != nil {
		fields["photo"] = *patch.Photo
	}
	if err := s.users.Update(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	observability.RecordMutation("user", "update")
	s.views.Invalidate(ctx, ProfilePath, ProfileViewPath(user.ID))

	updated, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.profiles.renderOne(ctx, updated, PopulateOptions{Followers: true, Following: true})
}

// FollowUser makes the actor follow the target.
func (s *UserService) FollowUser(ctx context.Context, actorExternalID, targetExternalID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.FollowUser")
	defer func() { span.SetError(err); span.End() }()

	actor, target, err := s.resolvePair(ctx, actorExternalID, targetExternalID)
	if err != nil {
		return err
	}
	if err := s.follows.Follow(ctx, actor.ID, target.ID); err != nil {
		return err
	}
	observability.RecordMutation("follow", "create")
	s.views.Invalidate(ctx, HomePath, ProfilePath, ProfileViewPath(actor.ID), ProfileViewPath(target.ID))
	return nil
}

// UnfollowUser removes the actor's follow of the target.
func (s *UserService) UnfollowUser(ctx context.Context, actorExternalID, targetExternalID string) (err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.UnfollowUser")
	defer func() { span.SetError(err); span.End() }()

	actor, target, err := s.resolvePair(ctx, actorExternalID, targetExternalID)
	if err != nil {
		return err
	}
	if err := s.follows.Unfollow(ctx, actor.ID, target.ID); err != nil {
		return err
	}
	observability.RecordMutation("follow", "delete")
	s.views.Invalidate(ctx, HomePath, ProfilePath, ProfileViewPath(actor.ID), ProfileViewPath(target.ID))
	return nil
}

// IsFollowing reports whether the actor follows the target.
func (s *UserService) IsFollowing(ctx context.Context, actorExternalID, targetExternalID string) (bool, error) {
	actor, target, err := s.resolvePair(ctx, actorExternalID, targetExternalID)
	if err != nil {
		return false, err
	}
	return s.follows.IsFollowing(ctx, actor.ID, target.ID)
}

func (s *UserService) resolvePair(ctx context.Context, actorExternalID, targetExternalID string) (*models.User, *models.User, error) {
	actor, err := s.users.GetByExternalID(ctx, actorExternalID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.users.GetByExternalID(ctx, targetExternalID)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

// GetAllUsers returns one page of users, optionally filtered by a
// case-insensitive search on username and bio. When a viewer is given each
// user is annotated with whether the viewer follows them.
func (s *UserService) GetAllUsers(ctx context.Context, opts ListUsersOptions) (_ *UserPage, err error) {
	span, ctx := observability.NewSpan(ctx, "UserService.GetAllUsers")
	defer func() { span.SetError(err); span.End() }()

	page, limit := normalizePage(opts.Page, opts.Limit)
	filter := repository.UserFilter{
		Search: strings.TrimSpace(opts.Search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if opts.ExcludeID != "" {
		id, perr := uuid.Parse(opts.ExcludeID)
		if perr != nil {
			middleware.Logger.WarnContext(ctx, "ignoring malformed exclude id",
				"exclude_id", opts.ExcludeID, "error", perr)
		} else {
			filter.ExcludeID = &id
		}
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views, err := s.profiles.render(ctx, users, PopulateOptions{})
	if err != nil {
		return nil, err
	}

	if opts.ViewerExternalID != "" {
		if err := s.annotateFollowing(ctx, opts.ViewerExternalID, users, views); err != nil {
			return nil, err
		}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &UserPage{
		Users: views,
		Pagination: Pagination{
			Total: total,
			Pages: pages,
			Page:  page,
			Limit: limit,
		},
	}, nil
}

func (s *UserService) annotateFollowing(ctx context.Context, viewerExternalID string, users []models.User, views []serialize.User) error {
	following := map[uuid.UUID]bool{}
	viewer, err := s.users.GetByExternalID(ctx, viewerExternalID)
	switch {
	case models.IsCode(err, models.CodeNotFound):
		// An unknown viewer follows nobody.
	case err != nil:
		return err
	default:
		ids := make([]uuid.UUID, len(users))
		for i := range users {
			ids[i] = users[i].ID
		}
		following, err = s.follows.FollowingAmong(ctx, viewer.ID, ids)
		if err != nil {
			return err
		}
	}
	for i := range views {
		v := following[users[i].ID]
		views[i].IsFollowing = &v
	}
	return nil
}

// SavePost bookmarks a post for the actor. Saving twice is a no-op.
func (s *UserService) SavePost(ctx context.Context, actorExternalID, postID string) error {
	actor, pid, err := s.resolveActorAndPost(ctx, actorExternalID, postID)
	if err != nil {
		return err
	}
	if err := s.users.SavePost(ctx, actor.ID, pid); err != nil {
		return err
	}
	observability.RecordMutation("saved_post", "create")
	s.views.Invalidate(ctx, ProfileViewPath(actor.ID))
	return nil
}

// UnsavePost removes a bookmark. Removing a missing bookmark is a no-op.
func (s *UserService) UnsavePost(ctx context.Context, actorExternalID, postID string) error {
	actor, pid, err := s.resolveActorAndPost(ctx, actorExternalID, postID)
	if err != nil {
		return err
	}
	if err := s.users.UnsavePost(ctx, actor.ID, pid); err != nil {
		return err
	}
	observability.RecordMutation("saved_post", "delete")
	s.views.Invalidate(ctx, ProfileViewPath(actor.ID))
	return nil
}

func (s *UserService) resolveActorAndPost(ctx context.Context, actorExternalID, postID string) (*models.User, uuid.UUID, error) {
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
