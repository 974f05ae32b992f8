package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"gorm.io/gorm"
)

// Options controls a random seeding run.
type Options struct {
	NumUsers int
	NumPosts int
	// FollowsPerUser is the most users each seeded user follows.
	FollowsPerUser int
	// Seed fixes the random sequence; zero picks a random one.
	Seed int64
}

// Report counts what a run created.
type Report struct {
	Users    int
	Follows  int
	Posts    int
	Likes    int
	Comments int
	Saves    int
}

func (r Report) String() string {
	return fmt.Sprintf("users=%d follows=%d posts=%d likes=%d comments=%d saves=%d",
		r.Users, r.Follows, r.Posts, r.Likes, r.Comments, r.Saves)
}

// Seeder writes seed data through the user and post services.
type Seeder struct {
	db    *gorm.DB
	users *service.UserService
	posts *service.PostService
}

// NewSeeder creates a Seeder bound to db. Views are not invalidated.
func NewSeeder(db *gorm.DB) *Seeder {
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	return &Seeder{
		db:    db,
		users: service.NewUserService(userRepo, followRepo, postRepo, nil),
		posts: service.NewPostService(postRepo, userRepo, followRepo, nil, 0),
	}
}

// ClearAll deletes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{
		&models.Comment{}, &models.Like{}, &models.SavedPost{},
		&models.Follow{}, &models.Post{}, &models.User{},
	}
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, t := range tables {
		if err := db.Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "seed data cleared")
	return nil
}

// Random creates opts.NumUsers users with a random follow graph, then
// opts.NumPosts posts with likes, comments and bookmarks spread across them.
func (s *Seeder) Random(ctx context.Context, opts Options) (Report, error) {
	var report Report
	f := NewFactory(opts.Seed)

	externalIDs := make([]string, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := s.users.CreateUser(ctx, f.User())
		if err != nil {
			return report, fmt.Errorf("create user: %w", err)
		}
		externalIDs = append(externalIDs, u.ExternalID)
	}
	report.Users = len(externalIDs)
	if len(externalIDs) == 0 {
		return report, nil
	}

	maxFollows := opts.FollowsPerUser
	if maxFollows <= 0 {
		maxFollows = 5
	}
	for _, actor := range externalIDs {
		for n := f.Pick(maxFollows + 1); n > 0; n-- {
			target := externalIDs[f.Pick(len(externalIDs))]
			if target == actor {
				continue
			}
			err := s.users.FollowUser(ctx, actor, target)
			if models.IsCode(err, models.CodeAlreadyFollowing) {
				continue
			}
			if err != nil {
				return report, fmt.Errorf("follow: %w", err)
			}
			report.Follows++
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := externalIDs[f.Pick(len(externalIDs))]
		post, err := s.posts.CreatePost(ctx, author, f.Post())
		if err != nil {
			return report, fmt.Errorf("create post: %w", err)
		}
		report.Posts++

		for _, reader := range externalIDs {
			if reader == author {
				continue
			}
			if f.Chance(30) {
				if err := s.posts.LikePost(ctx, reader, post.ID); err != nil {
					return report, fmt.Errorf("like: %w", err)
				}
				report.Likes++
			}
			if f.Chance(15) {
				if _, err := s.posts.AddComment(ctx, reader, post.ID, f.Comment()); err != nil {
					return report, fmt.Errorf("comment: %w", err)
				}
				report.Comments++
			}
			if f.Chance(10) {
				if err := s.users.SavePost(ctx, reader, post.ID); err != nil {
					return report, fmt.Errorf("save: %w", err)
				}
				report.Saves++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "random seed complete", slog.String("report", report.String()))
	return report, nil
}

// Apply writes fixtures. Users are created first, then follows, then posts
// with their likes and comments, then bookmarks.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (Report, error) {
	var report Report
	external := make(map[string]string, len(fx.Users))

	for _, u := range fx.Users {
		ext := u.ExternalID
		if ext == "" {
			ext = models.ExternalIDPrefix + u.Username
		}
		created, err := s.users.CreateUser(ctx, service.CreateUserInput{
			ExternalID: ext,
			Email:      u.Email,
			Username:   u.Username,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Photo:      u.Photo,
			Bio:        u.Bio,
			About:      u.About,
		})
		if err != nil {
			return report, fmt.Errorf("user %q: %w", u.Username, err)
		}
		external[u.Username] = created.ExternalID
		report.Users++
	}

	lookup := func(username string) (string, error) {
		ext, ok := external[username]
		if !ok {
			return "", fmt.Errorf("unknown fixture user %q", username)
		}
		return ext, nil
	}

	for _, edge := range fx.Follows {
		follower, err := lookup(edge.Follower)
		if err != nil {
			return report, err
		}
		followee, err := lookup(edge.Followee)
		if err != nil {
			return report, err
		}
		if err := s.users.FollowUser(ctx, follower, followee); err != nil {
			return report, fmt.Errorf("follow %s -> %s: %w", edge.Follower, edge.Followee, err)
		}
		report.Follows++
	}

	postIDs := make([]string, 0, len(fx.Posts))
	for i, p := range fx.Posts {
		author, err := lookup(p.Author)
		if err != nil {
			return report, err
		}
		post, err := s.posts.CreatePost(ctx, author, service.PostInput{
			Title:   p.Title,
			Content: p.Content,
			Image:   p.Image,
		})
		if err != nil {
			return report, fmt.Errorf("post %d: %w", i, err)
		}
		postIDs = append(postIDs, post.ID)
		report.Posts++

		for _, name := range p.Likes {
			liker, err := lookup(name)
			if err != nil {
				return report, err
			}
			if err := s.posts.LikePost(ctx, liker, post.ID); err != nil {
				return report, fmt.Errorf("post %d like: %w", i, err)
			}
			report.Likes++
		}
		for _, c := range p.Comments {
			commenter, err := lookup(c.User)
			if err != nil {
				return report, err
			}
			if _, err := s.posts.AddComment(ctx, commenter, post.ID, c.Content); err != nil {
				return report, fmt.Errorf("post %d comment: %w", i, err)
			}
			report.Comments++
		}
	}

	for _, u := range fx.Users {
		for _, idx := range u.Saved {
			if idx < 0 || idx >= len(postIDs) {
				return report, fmt.Errorf("user %q saves unknown post %d", u.Username, idx)
			}
			if err := s.users.SavePost(ctx, external[u.Username], postIDs[idx]); err != nil {
				return report, fmt.Errorf("user %q save: %w", u.Username, err)
			}
			report.Saves++
		}
	}

	middleware.Logger.InfoContext(ctx, "fixtures applied", slog.String("report", report.String()))
	return report, nil
}
