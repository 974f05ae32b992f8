package serialize

import (
	"inkwell/internal/content"
	"inkwell/internal/models"

	"github.com/google/uuid"
)

// User is the serialized user profile.
type User struct {
	ID          string      `json:"id"`
	ExternalID  string      `json:"external_id"`
	Email       string      `json:"email"`
	Username    string      `json:"username"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Photo       string      `json:"photo"`
	Bio         string      `json:"bio"`
	About       string      `json:"about"`
	Followers   []Ref[User] `json:"followers"`
	Following   []Ref[User] `json:"following"`
	SavedPosts  []string    `json:"saved_posts"`
	IsFollowing *bool       `json:"is_following,omitempty"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

func (u User) RefID() string { return u.ID }

// UserSummary is the partial projection used for likes and comment authors.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Photo    string `json:"photo,omitempty"`
}

func (u UserSummary) RefID() string { return u.ID }

// Comment is a serialized comment.
type Comment struct {
	ID        string           `json:"id"`
	User      Ref[UserSummary] `json:"user"`
	Content   string           `json:"content"`
	CreatedAt string           `json:"created_at"`
}

// Post is a serialized post.
type Post struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	Image     string             `json:"image"`
	Author    Ref[User]          `json:"author"`
	Likes     []Ref[UserSummary] `json:"likes"`
	Comments  []Comment          `json:"comments"`
	Summary   content.Summary    `json:"summary"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

// NewUser serializes u without any graph data; Followers, Following and
// SavedPosts are empty.
func NewUser(u *models.User) User {
	return User{
		ID:         u.ID.String(),
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Photo:      u.Photo,
		Bio:        u.Bio,
		About:      u.About,
		Followers:  []Ref[User]{},
		Following:  []Ref[User]{},
		SavedPosts: []string{},
		CreatedAt:  Time(u.CreatedAt),
		UpdatedAt:  Time(u.UpdatedAt),
	}
}

// PostIDs renders post ids as strings.
func PostIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// NewUserSummary projects u down to id, username and optionally photo.
func NewUserSummary(u *models.User, withPhoto bool) UserSummary {
	s := UserSummary{ID: u.ID.String(), Username: u.Username}
	if withPhoto {
		s.Photo = u.Photo
	}
	return s
}

// NewPost serializes p. author is the already serialized author profile;
// when nil the author is rendered as a bare id. Likes and comment users are
// expanded when their user rows were loaded.
func NewPost(p *models.Post, author *User) Post {
	out := Post{
		ID:        p.ID.String(),
		Title:     p.Title,
		Content:   p.Content,
		Image:     p.Image,
		Author:    IDRef[User](p.AuthorID.String()),
		Likes:     make([]Ref[UserSummary], 0, len(p.Likes)),
		Comments:  make([]Comment, 0, len(p.Comments)),
		Summary:   content.Summarize(p.Content, p.Image),
		CreatedAt: Time(p.CreatedAt),
		UpdatedAt: Time(p.UpdatedAt),
	}
	if author != nil {
		out.Author = Expanded(*author)
	}
	for i := range p.Likes {
		like := &p.Likes[i]
		if like.User.ID != uuid.Nil {
			out.Likes = append(out.Likes, Expanded(NewUserSummary(&like.User, false)))
		} else {
			out.Likes = append(out.Likes, IDRef[UserSummary](like.UserID.String()))
		}
	}
	for i := range p.Comments {
		out.Comments = append(out.Comments, NewComment(&p.Comments[i]))
	}
	return out
}

// NewComment serializes c, expanding its author when loaded.
func NewComment(c *models.Comment) Comment {
	user := IDRef[UserSummary](c.UserID.String())
	if c.User.ID != uuid.Nil {
		user = Expanded(NewUserSummary(&c.User, true))
	}
	return Comment{
		ID:        c.ID.String(),
		User:      user,
		Content:   c.Content,
		CreatedAt: Time(c.CreatedAt),
	}
}

// LikedBy reports whether userID appears in the post's likes.
func (p Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.ID() == userID {
			return true
		}
	}
	return false
}
