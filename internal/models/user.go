package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// User is a locally registered account. Accounts managed by an external
// identity provider never get a row here.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // bcrypt hash

	// Pending password reset; both empty when none is outstanding.
	ResetTokenHash string     `gorm:"size:255" json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
}

// SessionID is the opaque identifier carried in the session cookie and used
// as the document storage slot.
func (u *User) SessionID() string {
	return "local:" + strconv.FormatUint(uint64(u.ID), 10)
}
