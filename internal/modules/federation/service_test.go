package federation

import (
	"context"
	"fmt"
	"testing"

	"blogauth/internal/database"
	"blogauth/internal/domain"
	"blogauth/internal/modules/federation/provider"
	"blogauth/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique shared-cache name so every test gets its own in-memory DB
	// that survives across pool connections
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, passwordHash *string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: passwordHash}
	require.NoError(t, db.Create(u).Error)
	return u
}

func strPtr(v string) *string { return &v }

func TestLink_And_LoginOrNull(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	userA := createUser(t, db, "alice", strPtr("hash"))

	require.NoError(t, svc.Link(ctx, userA.ID, "google", "ext-1"))

	got, err := svc.LoginOrNull(ctx, "google", "ext-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, userA.ID, got.ID)
}

func TestLink_ConflictLeavesBindingUntouched(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	userA := createUser(t, db, "alice", strPtr("hash"))
	userB := createUser(t, db, "bob", strPtr("hash"))

	require.NoError(t, svc.Link(ctx, userA.ID, "google", "ext-1"))

	err := svc.Link(ctx, userB.ID, "google", "ext-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// the original binding still wins
	got, err := svc.LoginOrNull(ctx, "google", "ext-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, userA.ID, got.ID)
}

func TestLink_ReplacesPriorBindingForProvider(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	userA := createUser(t, db, "alice", strPtr("hash"))

	require.NoError(t, svc.Link(ctx, userA.ID, "google", "ext-old"))
	require.NoError(t, svc.Link(ctx, userA.ID, "google", "ext-new"))

	old, err := svc.LoginOrNull(ctx, "google", "ext-old")
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := svc.LoginOrNull(ctx, "google", "ext-new")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, userA.ID, current.ID)

	var count int64
	require.NoError(t, db.Model(&domain.IdentityBinding{}).Where("user_id = ?", userA.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLink_SameBindingIsIdempotent(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	userA := createUser(t, db, "alice", strPtr("hash"))

	require.NoError(t, svc.Link(ctx, userA.ID, "github", "ext-7"))
	require.NoError(t, svc.Link(ctx, userA.ID, "github", "ext-7"))
}

func TestLink_UnknownOrDeletedUser(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	err := svc.Link(ctx, 999, "google", "ext-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	ghost := createUser(t, db, "ghost", strPtr("hash"))
	require.NoError(t, db.Delete(&domain.User{}, ghost.ID).Error)

	err = svc.Link(ctx, ghost.ID, "google", "ext-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestLoginOrNull_SoftDeletedOwner(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createUser(t, db, "gone", strPtr("hash"))
	require.NoError(t, svc.Link(ctx, user.ID, "google", "ext-9"))
	require.NoError(t, db.Delete(&domain.User{}, user.ID).Error)

	got, err := svc.LoginOrNull(ctx, "google", "ext-9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnlink_GuardsPasswordlessAccount(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	// OAuth-registered user: one binding, no password
	user := createUser(t, db, "oauth-only", nil)
	require.NoError(t, svc.Link(ctx, user.ID, "google", "ext-1"))

	err := svc.Unlink(ctx, user.ID, "google")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unprocessable))

	// binding survives the refused unlink
	got, err := svc.LoginOrNull(ctx, "google", "ext-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// once a password exists the unlink goes through
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).
		Update("password_hash", "bcrypt-hash").Error)
	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))

	got, err = svc.LoginOrNull(ctx, "google", "ext-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnlink_SecondBindingKeepsAccountReachable(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createUser(t, db, "multi", nil)
	require.NoError(t, svc.Link(ctx, user.ID, "google", "ext-1"))
	require.NoError(t, svc.Link(ctx, user.ID, "github", "ext-2"))

	// two bindings: removing one is fine even without a password
	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))

	err := svc.Unlink(ctx, user.ID, "github")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unprocessable))
}

func TestUnlink_MissingBindingIsNoOp(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createUser(t, db, "alice", strPtr("hash"))
	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))
	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))
}

func TestRegisterExternal_RacedIdentityIsConflict(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	userA := createUser(t, db, "alice", strPtr("hash"))
	require.NoError(t, svc.Link(ctx, userA.ID, "github", "ext-42"))

	// a concurrent callback claimed the identity between the lookup and the
	// insert; the unique index turns the losing insert into a conflict
	_, err := svc.RegisterExternal(ctx, &provider.ExternalIdentity{
		Provider:  "github",
		SubjectID: "ext-42",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	// the winning account still owns the identity, and the rolled-back
	// registration left no orphan user behind
	got, err := svc.LoginOrNull(ctx, "github", "ext-42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, userA.ID, got.ID)

	var users int64
	require.NoError(t, db.Model(&domain.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestRegisterExternal_RegeneratesTakenUsername(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	createUser(t, db, "user_taken", strPtr("hash"))

	names := []string{"user_taken", "user_fresh"}
	svc.newUsername = func() string {
		name := names[0]
		if len(names) > 1 {
			names = names[1:]
		}
		return name
	}

	user, err := svc.RegisterExternal(ctx, &provider.ExternalIdentity{
		Provider:  "google",
		SubjectID: "ext-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "user_fresh", user.Username)
}

func TestRegisterExternal(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.RegisterExternal(ctx, &provider.ExternalIdentity{
		Provider:  "github",
		SubjectID: "ext-42",
		AvatarURL: "https://avatars.example/42.png",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, len(user.Username) > len("user_"))
	assert.Equal(t, "https://avatars.example/42.png", user.AvatarURL)
	assert.False(t, user.HasPassword())

	got, err := svc.LoginOrNull(ctx, "github", "ext-42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}
