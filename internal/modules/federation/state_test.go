package federation

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"blogauth/internal/pkg/apperr"
	"blogauth/internal/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateService(t *testing.T, ttl time.Duration) (*StateService, *token.Signer) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer := token.NewSigner(priv)
	return NewStateService(signer, token.NewVerifier(pub), ttl), signer
}

func TestState_RoundTrip(t *testing.T) {
	svc, _ := newStateService(t, 15*time.Minute)

	caller := int64(12)
	raw, err := svc.Sign(token.StatePayload{
		DeviceID: "D1",
		Redirect: "/settings/connections",
		UserID:   &caller,
	})
	require.NoError(t, err)

	payload, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "D1", payload.DeviceID)
	assert.Equal(t, "/settings/connections", payload.Redirect)
	require.NotNil(t, payload.UserID)
	assert.Equal(t, caller, *payload.UserID)
	assert.NotZero(t, payload.ConsentedAt)
}

func TestState_RejectsExpired(t *testing.T) {
	svc, _ := newStateService(t, time.Millisecond)

	raw, err := svc.Sign(token.StatePayload{DeviceID: "D1"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	_, err = svc.Verify(raw)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestState_RejectsWrongType(t *testing.T) {
	svc, signer := newStateService(t, 15*time.Minute)

	// an access token is not a state token even though the signature checks out
	raw, err := signer.Sign(token.Claims{
		User: &token.Principal{ID: 1},
		Type: token.TypeAccess,
	}, time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestState_RejectsGarbage(t *testing.T) {
	svc, _ := newStateService(t, 15*time.Minute)

	for _, raw := range []string{"", "bogus", "a.b.c"} {
		_, err := svc.Verify(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	}
}
