package domain

import "time"

// IdentityBinding associates a local user with one external identity.
// Unique both ways: an external subject maps to at most one user, and a user
// holds at most one binding per provider.
type IdentityBinding struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	Provider  string `json:"provider" gorm:"size:32;not null;uniqueIndex:idx_provider_subject,priority:1;uniqueIndex:idx_user_provider,priority:2"`
	SubjectID string `json:"subject_id" gorm:"size:191;not null;uniqueIndex:idx_provider_subject,priority:2"`

	UserID int64 `json:"user_id" gorm:"not null;uniqueIndex:idx_user_provider,priority:1"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}
