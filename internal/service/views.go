// Package service provides the user and post operations behind the API.
package service

import (
	"context"
	"strings"

	"inkwell/internal/models"

	"github.com/google/uuid"
)

// DefaultPageSize applies when a listing is requested without a limit.
const DefaultPageSize = 10

// View paths marked stale after mutations.
const (
	HomePath    = "/"
	ProfilePath = "/profile"
)

// ProfileViewPath is the rendered profile of one user.
func ProfileViewPath(userID uuid.UUID) string {
	return "/profile/" + userID.String()
}

// PostViewPath is the rendered page of one post.
func PostViewPath(postID uuid.UUID) string {
	return "/post/" + postID.String()
}

// ViewInvalidator marks rendered views stale. It has no result; failures
// stay inside the implementation.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, paths ...string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) {}

func orNoop(v ViewInvalidator) ViewInvalidator {
	if v == nil {
		return noopInvalidator{}
	}
	return v
}

// parseID parses an internal id, reporting malformed input as an invalid id.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, models.NewInvalidIDError(raw)
	}
	return id, nil
}

// isExternalID reports whether raw is an identity-provider id rather than
// an internal one.
func isExternalID(raw string) bool {
	return strings.HasPrefix(raw, models.ExternalIDPrefix)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	return page, limit
}
