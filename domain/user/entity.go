package user

import (
	"time"
)

// User represents a directory entry for a known user.
type User struct {
	ID          string     `gorm:"primaryKey;type:text" json:"id"`
	DisplayName string     `gorm:"not null;type:text" json:"display_name"`
	Email       string     `gorm:"uniqueIndex;type:text" json:"email,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}
