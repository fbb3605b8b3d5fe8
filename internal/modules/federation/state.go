package federation

import (
	"time"

	"blogauth/internal/pkg/apperr"
	"blogauth/internal/pkg/token"
)

// StateService builds and checks the signed state envelope that rides the
// OAuth redirect. The type tag scopes the token to this one purpose; an
// access or refresh token presented as state is rejected.
type StateService struct {
	signer   *token.Signer
	verifier *token.Verifier
	ttl      time.Duration
}

func NewStateService(signer *token.Signer, verifier *token.Verifier, ttl time.Duration) *StateService {
	return &StateService{signer: signer, verifier: verifier, ttl: ttl}
}

func (s *StateService) Sign(payload token.StatePayload) (string, error) {
	payload.ConsentedAt = time.Now().Unix()
	raw, err := s.signer.Sign(token.Claims{State: &payload, Type: token.TypeState}, s.ttl)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "could not sign state token", err)
	}
	return raw, nil
}

func (s *StateService) Verify(raw string) (*token.StatePayload, error) {
	res := s.verifier.Verify(raw)
	switch res.Status {
	case token.StatusValid:
		// fall through to the type check
	case token.StatusExpired:
		return nil, apperr.New(apperr.Unauthorized, "state token expired")
	case token.StatusInvalid:
		return nil, apperr.New(apperr.Unauthorized, "invalid state token")
	}
	if res.Claims.Type != token.TypeState || res.Claims.State == nil {
		return nil, apperr.New(apperr.Unauthorized, "not a state token")
	}
	return res.Claims.State, nil
}
