// Package seed creates demo and test data for development databases.
// Everything is written through the services, so seeded data obeys the
// same rules as data created over the API.
package seed

import (
	"fmt"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds randomized inputs for users, posts and comments.
type Factory struct {
	faker *gofakeit.Faker
	next  int
}

// NewFactory returns a Factory. A zero seed picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// User returns sign-up input with a unique username and external id.
func (f *Factory) User(overrides ...func(*service.CreateUserInput)) service.CreateUserInput {
	f.next++
	suffix := fmt.Sprintf("%d", f.next)
	base := strings.ToLower(f.faker.Username())
	if room := validation.UsernameMaxLen - len(suffix); len(base) > room {
		base = base[:room]
	}

	in := service.CreateUserInput{
		ExternalID: models.ExternalIDPrefix + strings.ReplaceAll(f.faker.UUID(), "-", ""),
		Email:      f.faker.Email(),
		Username:   base + suffix,
		FirstName:  f.faker.FirstName(),
		LastName:   f.faker.LastName(),
		Photo:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Bio:        f.faker.Sentence(8),
		About:      f.faker.Paragraph(1, 2, 10, " "),
	}
	if validation.Length(in.Bio) > validation.BioMaxLen {
		in.Bio = ""
	}
	if validation.Length(in.About) > validation.AboutMaxLen {
		in.About = ""
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// Post returns post input with an HTML body and, sometimes, an image.
func (f *Factory) Post(overrides ...func(*service.PostInput)) service.PostInput {
	paragraphs := f.faker.Number(1, 4)
	var body strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&body, "<p>%s</p>", f.faker.Paragraph(1, 4, 12, " "))
	}

	in := service.PostInput{
		Title:   strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content: body.String(),
	}
	if f.faker.Bool() {
		in.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// Comment returns a short comment body.
func (f *Factory) Comment() string {
	return f.faker.Sentence(f.faker.Number(3, 15))
}

// Pick returns a random index in [0, n).
func (f *Factory) Pick(n int) int {
	return f.faker.Number(0, n-1)
}

// Chance reports true with probability pct/100.
func (f *Factory) Chance(pct int) bool {
	return f.faker.Number(1, 100) <= pct
}
