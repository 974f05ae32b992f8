package validation

import (
	"strings"

	"inkwell/internal/models"
)

// Post carries the post fields being written. Nil means unchanged.
type Post struct {
	Title   *string
	Content *string
}

// ValidatePost rejects blank titles and blank content.
func ValidatePost(p Post) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return models.NewValidationError("Title is required")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return models.NewValidationError("Content is required")
	}
	return nil
}

// ValidateComment only requires non-blank content; comments have no length cap.
func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Comment content is required")
	}
	return nil
}
