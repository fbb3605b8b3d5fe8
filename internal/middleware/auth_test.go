package middleware

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogauth/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *token.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer := token.NewSigner(priv)
	verifier := token.NewVerifier(pub)

	r := gin.New()
	r.GET("/protected", RequireAuth(verifier), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})
	r.GET("/admin", RequireAuth(verifier), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, signer
}

func doRequest(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r, signer := setupRouter(t)

	access, err := signer.Sign(token.Claims{
		User: &token.Principal{ID: 1},
		Type: token.TypeAccess,
	}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doRequest(r, "/protected", access).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/protected", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/protected", "garbage").Code)
}

func TestRequireAuth_RejectsRefreshToken(t *testing.T) {
	r, signer := setupRouter(t)

	refresh, err := signer.Sign(token.Claims{
		User: &token.Principal{ID: 1},
		Type: token.TypeRefresh,
	}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/protected", refresh).Code)
}

func TestAdminOnly(t *testing.T) {
	r, signer := setupRouter(t)

	admin, err := signer.Sign(token.Claims{
		User: &token.Principal{ID: 1, IsAdmin: true},
		Type: token.TypeAccess,
	}, time.Minute)
	require.NoError(t, err)
	regular, err := signer.Sign(token.Claims{
		User: &token.Principal{ID: 2},
		Type: token.TypeAccess,
	}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doRequest(r, "/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, "/admin", regular).Code)
}
