package federation

import (
	"context"
	"errors"
	"strings"

	"blogauth/internal/database"
	"blogauth/internal/domain"
	"blogauth/internal/modules/federation/provider"
	"blogauth/internal/pkg/apperr"
	"blogauth/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the identity federation linker. All identity_bindings access
// goes through IdentityBindingRepository; writes run inside one transaction,
// with the unique indexes as the arbiter when concurrent claims on the same
// external identity slip past the read checks.
type Service struct {
	db          *gorm.DB
	bindings    *repository.IdentityBindingRepository
	newUsername func() string
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:          db,
		bindings:    repository.NewIdentityBindingRepository(db),
		newUsername: placeholderUsername,
	}
}

const usernameAttempts = 3

// Link binds (provider, subjectID) to userID. An existing binding of the
// same external identity to another account is a conflict and stays
// untouched; a prior binding of (userID, provider) is replaced.
func (s *Service) Link(ctx context.Context, userID int64, providerName, subjectID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "user not found")
			}
			return err
		}

		bindings := repository.NewIdentityBindingRepository(tx)

		existing, err := bindings.GetByProviderSubject(ctx, providerName, subjectID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				return apperr.New(apperr.Conflict, "external identity already bound to another account")
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := bindings.DeleteByUserProvider(ctx, userID, providerName); err != nil {
			return err
		}
		err = bindings.Create(ctx, &domain.IdentityBinding{
			Provider:  providerName,
			SubjectID: subjectID,
			UserID:    userID,
		})
		if database.IsDuplicateKey(err) {
			// a concurrent claim on the same subject committed between the
			// read check and this insert
			return apperr.New(apperr.Conflict, "external identity already bound to another account")
		}
		return err
	})
	return internalUnlessTagged(err, "could not link external identity")
}

// LoginOrNull resolves an external identity to its local user. A missing
// binding or a soft-deleted owner both come back (nil, nil): no local
// account, register or reject.
func (s *Service) LoginOrNull(ctx context.Context, providerName, subjectID string) (*domain.User, error) {
	binding, err := s.bindings.GetByProviderSubject(ctx, providerName, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "could not look up binding", err)
	}

	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, binding.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "could not load user", err)
	}
	return &user, nil
}

// Unlink removes the (userID, provider) binding. Removing a binding that is
// not there is a no-op. Removing the user's last binding while they have no
// password would strand the account, so that fails instead.
func (s *Service) Unlink(ctx context.Context, userID int64, providerName string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "user not found")
			}
			return err
		}

		bindings := repository.NewIdentityBindingRepository(tx)

		if _, err := bindings.GetByUserProvider(ctx, userID, providerName); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		count, err := bindings.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count == 1 && !user.HasPassword() {
			return apperr.New(apperr.Unprocessable, "cannot unlink the only sign-in method of a passwordless account")
		}

		return bindings.DeleteByUserProvider(ctx, userID, providerName)
	})
	return internalUnlessTagged(err, "could not unlink external identity")
}

// RegisterExternal creates a local principal for a never-seen external
// identity: placeholder username, the provider's avatar, no password. User
// and binding land in the same transaction so a failure leaves no orphan.
// Losing the identity insert to a concurrent callback is a conflict, not an
// internal failure.
func (s *Service) RegisterExternal(ctx context.Context, ident *provider.ExternalIdentity) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.createWithFreshUsername(tx, &user, ident.AvatarURL); err != nil {
			return err
		}
		err := repository.NewIdentityBindingRepository(tx).Create(ctx, &domain.IdentityBinding{
			Provider:  ident.Provider,
			SubjectID: ident.SubjectID,
			UserID:    user.ID,
		})
		if database.IsDuplicateKey(err) {
			return apperr.New(apperr.Conflict, "external identity already bound to another account")
		}
		return err
	})
	if err != nil {
		return nil, internalUnlessTagged(err, "could not register external user")
	}
	return &user, nil
}

// createWithFreshUsername inserts the user under a generated placeholder
// username, regenerating when the name is taken. Each attempt runs in a
// savepoint so a rejected insert does not abort the enclosing transaction.
func (s *Service) createWithFreshUsername(tx *gorm.DB, user *domain.User, avatarURL string) error {
	var err error
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		*user = domain.User{Username: s.newUsername(), AvatarURL: avatarURL}
		err = tx.Transaction(func(tx *gorm.DB) error {
			return tx.Create(user).Error
		})
		if !database.IsDuplicateKey(err) {
			return err
		}
	}
	return err
}

func placeholderUsername() string {
	return "user_" + strings.Split(uuid.NewString(), "-")[0]
}

// internalUnlessTagged passes tagged errors through and wraps everything
// else (driver failures, constraint violations) as Internal.
func internalUnlessTagged(err error, message string) error {
	if err == nil {
		return nil
	}
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return apperr.Wrap(apperr.Internal, message, err)
}
