// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalIDPrefix marks identifiers issued by the identity provider.
const ExternalIDPrefix = "user_"

// User is a profile provisioned from the identity provider on sign-up.
// Follow relationships live in the follows table, never on the row itself.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID string    `gorm:"uniqueIndex;not null" json:"external_id"`
	Email      string    `gorm:"not null" json:"email"`
	Username   string    `gorm:"uniqueIndex;not null;type:text" json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Photo      string    `gorm:"not null" json:"photo"`
	Bio        string    `gorm:"type:text" json:"bio"`
	About      string    `gorm:"type:text" json:"about"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a fresh UUID when none was set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
