package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/serialize"

	"github.com/google/uuid"
)

// PopulateOptions selects which follow lists are expanded into full users
// instead of bare ids.
type PopulateOptions struct {
	Followers bool
	Following bool
}

type userGraph struct {
	followers []uuid.UUID
	following []uuid.UUID
	saved     []uuid.UUID
}

// profileRenderer serializes users together with their follow graph and
// saved posts, batching the lookups for a whole page of users.
type profileRenderer struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func (r *profileRenderer) graphs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*userGraph, error) {
	out := make(map[uuid.UUID]*userGraph, len(ids))
	for _, id := range ids {
		out[id] = &userGraph{}
	}
	edges, err := r.follows.Edges(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if g, ok := out[e.FollowerID]; ok {
			g.following = append(g.following, e.FolloweeID)
		}
		if g, ok := out[e.FolloweeID]; ok {
			g.followers = append(g.followers, e.FollowerID)
		}
	}
	saved, err := r.users.SavedPostIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, postIDs := range saved {
		if g, ok := out[id]; ok {
			g.saved = postIDs
		}
	}
	return out, nil
}

func (r *profileRenderer) render(ctx context.Context, users []models.User, opts PopulateOptions) ([]serialize.User, error) {
	if len(users) == 0 {
		return []serialize.User{}, nil
	}
	ids := make([]uuid.UUID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	graphs, err := r.graphs(ctx, ids)
	if err != nil {
		return nil, err
	}

	expanded := map[uuid.UUID]*models.User{}
	if opts.Followers || opts.Following {
		var need []uuid.UUID
		for _, g := range graphs {
			if opts.Followers {
				need = append(need, g.followers...)
			}
			if opts.Following {
				need = append(need, g.following...)
			}
		}
		related, err := r.users.GetByIDs(ctx, need)
		if err != nil {
			return nil, err
		}
		for i := range related {
			expanded[related[i].ID] = &related[i]
		}
	}

	out := make([]serialize.User, len(users))
	for i := range users {
		g := graphs[users[i].ID]
		view := serialize.NewUser(&users[i])
		view.Followers = refs(g.followers, opts.Followers, expanded)
		view.Following = refs(g.following, opts.Following, expanded)
		view.SavedPosts = serialize.PostIDs(g.saved)
		out[i] = view
	}
	return out, nil
}

func (r *profileRenderer) renderOne(ctx context.Context, u *models.User, opts PopulateOptions) (*serialize.User, error) {
	views, err := r.render(ctx, []models.User{*u}, opts)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func refs(ids []uuid.UUID, expand bool, users map[uuid.UUID]*models.User) []serialize.Ref[serialize.User] {
	out := make([]serialize.Ref[serialize.User], 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok && expand {
			out = append(out, serialize.Expanded(serialize.NewUser(u)))
			continue
		}
		out = append(out, serialize.IDRef[serialize.User](id.String()))
	}
	return out
}
