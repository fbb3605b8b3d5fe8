package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is the local principal. Accounts registered through an OAuth provider
// have no password hash until they set one.
type User struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"size:64;uniqueIndex;not null"`
	PasswordHash *string        `json:"-"`
	IsAdmin      bool           `json:"is_admin" gorm:"not null;default:false"`
	AvatarURL    string         `json:"avatar_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
