package repository

import (
	"context"
	"time"

	"blogauth/internal/domain"

	"gorm.io/gorm"
)

// RefreshCredentialRepository provides DB access for stored refresh
// credentials. All mutations are deletes or inserts; there is no update path.
type RefreshCredentialRepository struct {
	db *gorm.DB
}

func NewRefreshCredentialRepository(db *gorm.DB) *RefreshCredentialRepository {
	return &RefreshCredentialRepository{db: db}
}

func (r *RefreshCredentialRepository) Create(ctx context.Context, c *domain.RefreshCredential) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Redeem deletes the row matching (hash, device) and returns how many rows
// went away. One atomic delete; two concurrent redemptions of the same token
// race on the row and at most one sees count 1.
func (r *RefreshCredentialRepository) Redeem(ctx context.Context, tokenHash, deviceID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("token_hash = ? AND device_id = ?", tokenHash, deviceID).
		Delete(&domain.RefreshCredential{})
	return res.RowsAffected, res.Error
}

func (r *RefreshCredentialRepository) DeleteForDevice(ctx context.Context, userID int64, deviceID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Delete(&domain.RefreshCredential{}).Error
}

func (r *RefreshCredentialRepository) DeleteForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.RefreshCredential{}).Error
}

func (r *RefreshCredentialRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&domain.RefreshCredential{})
	return res.RowsAffected, res.Error
}
