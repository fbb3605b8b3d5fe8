package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
	TypeState   Type = "state"
)

// Principal is the user snapshot embedded in access and refresh tokens.
type Principal struct {
	ID      int64 `json:"id"`
	IsAdmin bool  `json:"is_admin"`
}

// StatePayload carries request context across an OAuth provider redirect.
type StatePayload struct {
	DeviceID    string `json:"device_id"`
	ConsentedAt int64  `json:"consented_at"`
	Redirect    string `json:"redirect"`
	UserID      *int64 `json:"user_id,omitempty"`
}

// Claims is the payload of every token this service signs. Exactly one of
// User or State is set, matching Type.
type Claims struct {
	User  *Principal    `json:"user,omitempty"`
	State *StatePayload `json:"state,omitempty"`
	Type  Type          `json:"type"`
	jwtlib.RegisteredClaims
}

// Signer mints Ed25519-signed tokens. The private key never leaves the
// issuing process.
type Signer struct {
	key ed25519.PrivateKey
}

func NewSigner(key ed25519.PrivateKey) *Signer {
	return &Signer{key: key}
}

func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwtlib.NewNumericDate(now)
	claims.ExpiresAt = jwtlib.NewNumericDate(now.Add(ttl))

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodEdDSA, claims)
	return t.SignedString(s.key)
}

type Status int

const (
	StatusValid Status = iota
	StatusExpired
	StatusInvalid
)

// Verification is the closed result of verifying a token. Claims is non-nil
// only when Status is StatusValid.
type Verification struct {
	Status Status
	Claims *Claims
}

// Verifier checks token signatures. It holds only the public key, so it can
// run in a process that never sees the signing key.
type Verifier struct {
	key ed25519.PublicKey
}

func NewVerifier(key ed25519.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// Verify never fails on malformed input; garbage comes back StatusInvalid.
func (v *Verifier) Verify(raw string) Verification {
	var claims Claims
	t, err := jwtlib.ParseWithClaims(raw, &claims, func(t *jwtlib.Token) (any, error) {
		return v.key, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodEdDSA.Alg()}))

	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Verification{Status: StatusExpired}
		}
		return Verification{Status: StatusInvalid}
	}
	if !t.Valid {
		return Verification{Status: StatusInvalid}
	}
	return Verification{Status: StatusValid, Claims: &claims}
}
