package models

import (
	"time"

	"github.com/google/uuid"
)

// Follow is a directed edge: FollowerID follows FolloweeID.
// A user's followers and following sets are both read from these edges.
type Follow struct {
	FollowerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
