package auth

import (
	"context"

	"blogauth/internal/domain"
)

// UserRepositoryInterface — only the methods the auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	SetPasswordHash(ctx context.Context, userID int64, hash string) error
}

// RefreshCredentialRepositoryInterface — storage for refresh credentials
type RefreshCredentialRepositoryInterface interface {
	Create(ctx context.Context, c *domain.RefreshCredential) error
	Redeem(ctx context.Context, tokenHash, deviceID string) (int64, error)
	DeleteForDevice(ctx context.Context, userID int64, deviceID string) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}
