package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"blogauth/internal/domain"
	"blogauth/internal/pkg/apperr"
	"blogauth/internal/pkg/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service owns the refresh-credential lifecycle. It is the only writer of
// the refresh_credentials table: rows are created by Issue and deleted by
// Rotate, Revoke or the expiry sweep those operations run.
type Service struct {
	users       UserRepositoryInterface
	credentials RefreshCredentialRepositoryInterface
	signer      *token.Signer
	verifier    *token.Verifier
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func NewService(
	users UserRepositoryInterface,
	credentials RefreshCredentialRepositoryInterface,
	signer *token.Signer,
	verifier *token.Verifier,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		users:       users,
		credentials: credentials,
		signer:      signer,
		verifier:    verifier,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Issue mints a fresh access/refresh pair for (userID, deviceID) and records
// the refresh token's hash. Expired rows and the rows targeted by the revoke
// condition are swept first, so after Issue at most one live credential
// exists for the device (or the user, with revokeAll).
func (s *Service) Issue(ctx context.Context, userID int64, isAdmin bool, deviceID string, revokeAll bool) (*TokenPair, error) {
	_, _ = s.credentials.DeleteExpired(ctx)
	if revokeAll {
		_ = s.credentials.DeleteForUser(ctx, userID)
	} else {
		_ = s.credentials.DeleteForDevice(ctx, userID, deviceID)
	}

	principal := token.Principal{ID: userID, IsAdmin: isAdmin}

	accessToken, err := s.signer.Sign(token.Claims{User: &principal, Type: token.TypeAccess}, s.accessTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not sign access token", err)
	}
	refreshToken, err := s.signer.Sign(token.Claims{User: &principal, Type: token.TypeRefresh}, s.refreshTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not sign refresh token", err)
	}

	cred := &domain.RefreshCredential{
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not persist refresh credential", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate redeems a refresh token. Redemption is a single delete keyed by
// (token hash, device); the affected-row count decides the outcome, so two
// concurrent calls with the same token cannot both succeed. The caller gets
// the embedded principal back and must Issue a new pair itself.
func (s *Service) Rotate(ctx context.Context, refreshToken, deviceID string) (*token.Principal, error) {
	res := s.verifier.Verify(refreshToken)
	switch res.Status {
	case token.StatusValid:
		// fall through to redemption
	case token.StatusExpired:
		return nil, apperr.New(apperr.Unauthorized, "refresh token expired")
	case token.StatusInvalid:
		return nil, apperr.New(apperr.Unauthorized, "invalid refresh token")
	}
	if res.Claims.Type != token.TypeRefresh || res.Claims.User == nil {
		return nil, apperr.New(apperr.Unauthorized, "not a refresh token")
	}

	count, err := s.credentials.Redeem(ctx, hashToken(refreshToken), deviceID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not redeem refresh credential", err)
	}
	if count != 1 {
		return nil, apperr.New(apperr.Unauthorized, "refresh token already redeemed or revoked")
	}

	return res.Claims.User, nil
}

// Revoke drops the credential for one device, or for all of the user's
// devices when deviceID is empty. Revoking something already gone is a no-op.
func (s *Service) Revoke(ctx context.Context, userID int64, deviceID string) error {
	_, _ = s.credentials.DeleteExpired(ctx)
	if deviceID == "" {
		_ = s.credentials.DeleteForUser(ctx, userID)
	} else {
		_ = s.credentials.DeleteForDevice(ctx, userID, deviceID)
	}
	return nil
}

// Register creates a local principal with a password.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not check username", err)
	}
	if exists {
		return nil, apperr.New(apperr.Conflict, "username already taken")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not hash password", err)
	}

	user := &domain.User{Username: username, PasswordHash: &hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not create user", err)
	}
	return user, nil
}

// Login verifies the password and issues a pair for the device.
func (s *Service) Login(ctx context.Context, username, password, deviceID string, revokeOthers bool) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.Unauthorized, "invalid credentials")
		}
		return nil, nil, apperr.Wrap(apperr.Internal, "could not load user", err)
	}
	if !user.HasPassword() {
		return nil, nil, apperr.New(apperr.Unauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperr.New(apperr.Unauthorized, "invalid credentials")
	}

	pair, err := s.Issue(ctx, user.ID, user.IsAdmin, deviceID, revokeOthers)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "could not load user", err)
	}
	return user, nil
}

// SetPassword lets a user without a password (OAuth-registered) create one,
// or an existing password be replaced.
func (s *Service) SetPassword(ctx context.Context, userID int64, password string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return apperr.Wrap(apperr.Internal, "could not load user", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "could not hash password", err)
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return apperr.Wrap(apperr.Internal, "could not update password", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
