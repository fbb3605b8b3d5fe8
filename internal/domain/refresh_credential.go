package domain

import "time"

// RefreshCredential is the stored record of an outstanding refresh token.
//
// Security notes:
// - Only the SHA-256 hash of the raw token is stored (TokenHash).
// - Rows are deleted on rotation and revocation, never flagged. Redemption
//   is a delete keyed by (hash, device); the affected-row count is the
//   single-use guarantee under concurrency.
type RefreshCredential struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	DeviceID  string `json:"device_id" gorm:"size:128;index;not null"`
	TokenHash string `json:"-" gorm:"size:64;uniqueIndex;not null"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}
