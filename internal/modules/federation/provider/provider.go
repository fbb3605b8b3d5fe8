package provider

import (
	"context"
	"errors"
)

// ErrUnavailable marks upstream failures (token endpoint down, profile
// fetch failed) so callers can tell them apart from bad input.
var ErrUnavailable = errors.New("provider unavailable")

// ExternalIdentity is the normalized profile every adapter returns.
type ExternalIdentity struct {
	Provider  string
	SubjectID string
	AvatarURL string
}

// Provider is the contract every external identity provider implements.
// Implementations return identity facts only; linking and session decisions
// happen elsewhere.
type Provider interface {
	// Name returns the provider identifier (e.g. "google", "github").
	Name() string

	// AuthCodeURL returns the authorization URL carrying the signed state.
	AuthCodeURL(state string) string

	// ExchangeCode trades the authorization code for a normalized identity.
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}
