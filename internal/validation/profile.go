// Package validation holds the field rules shared by every mutating operation.
package validation

import (
	"fmt"
	"strings"

	"inkwell/internal/models"

	"github.com/rivo/uniseg"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	BioMaxLen      = 160
	AboutMaxLen    = 500
)

// Profile is the set of user fields subject to length rules.
// Nil fields are not being written and are skipped.
type Profile struct {
	Username *string
	Bio      *string
	About    *string
}

// Length counts user-perceived characters, so emoji and combining marks count once.
func Length(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// ValidateProfile checks username, bio and about against their limits.
func ValidateProfile(p Profile) error {
	if p.Username != nil {
		n := Length(strings.TrimSpace(*p.Username))
		if n < UsernameMinLen || n > UsernameMaxLen {
			return models.NewFieldValidationError(models.CodeInvalidUsername,
				fmt.Sprintf("Username must be between %d and %d characters", UsernameMinLen, UsernameMaxLen))
		}
	}
	if p.Bio != nil && Length(*p.Bio) > BioMaxLen {
		return models.NewFieldValidationError(models.CodeInvalidBio,
			fmt.Sprintf("Bio must be less than %d characters", BioMaxLen))
	}
	if p.About != nil && Length(*p.About) > AboutMaxLen {
		return models.NewFieldValidationError(models.CodeInvalidAbout,
			fmt.Sprintf("About must be less than %d characters", AboutMaxLen))
	}
	return nil
}
