package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written data set, usually loaded from YAML:
//
//	users:
//	  - username: alice
//	    bio: Writes about Go
//	follows:
//	  - {follower: bob, followee: alice}
//	posts:
//	  - author: alice
//	    title: Hello
//	    content: <p>First post</p>
//	    likes: [bob]
//	    comments:
//	      - {user: bob, content: Welcome!}
type Fixtures struct {
	Users   []FixtureUser   `yaml:"users"`
	Follows []FixtureFollow `yaml:"follows"`
	Posts   []FixturePost   `yaml:"posts"`
}

// FixtureUser is a user keyed by username. ExternalID defaults to the
// username with the identity provider's prefix.
type FixtureUser struct {
	Username   string `yaml:"username"`
	ExternalID string `yaml:"external_id"`
	Email      string `yaml:"email"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Photo      string `yaml:"photo"`
	Bio        string `yaml:"bio"`
	About      string `yaml:"about"`
	// Saved lists bookmarked posts by their position in Posts.
	Saved      []int  `yaml:"saved"`
}

// FixtureFollow is a follow edge between two usernames.
type FixtureFollow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

// FixturePost is a post written by the named author.
type FixturePost struct {
	Author   string           `yaml:"author"`
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Image    string           `yaml:"image"`
	Likes    []string         `yaml:"likes"`
	Comments []FixtureComment `yaml:"comments"`
}

// FixtureComment is a comment by the named user.
type FixtureComment struct {
	User    string `yaml:"user"`
	Content string `yaml:"content"`
}

// ParseFixtures decodes YAML fixtures. Unknown keys are rejected.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

// LoadFixtures reads and decodes a YAML fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}
