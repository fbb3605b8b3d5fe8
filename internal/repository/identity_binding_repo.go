package repository

import (
	"context"

	"blogauth/internal/domain"

	"gorm.io/gorm"
)

type IdentityBindingRepository struct {
	db *gorm.DB
}

func NewIdentityBindingRepository(db *gorm.DB) *IdentityBindingRepository {
	return &IdentityBindingRepository{db: db}
}

func (r *IdentityBindingRepository) Create(ctx context.Context, b *domain.IdentityBinding) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *IdentityBindingRepository) GetByProviderSubject(ctx context.Context, provider, subjectID string) (*domain.IdentityBinding, error) {
	var b domain.IdentityBinding
	err := r.db.WithContext(ctx).
		Where("provider = ? AND subject_id = ?", provider, subjectID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *IdentityBindingRepository) GetByUserProvider(ctx context.Context, userID int64, provider string) (*domain.IdentityBinding, error) {
	var b domain.IdentityBinding
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *IdentityBindingRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.IdentityBinding{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *IdentityBindingRepository) DeleteByUserProvider(ctx context.Context, userID int64, provider string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&domain.IdentityBinding{}).Error
}
