package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleName = "google"

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type Google struct {
	config *oauth2.Config
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "profile"},
		},
	}
}

func (p *Google) Name() string { return googleName }

func (p *Google) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *Google) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange: %v", ErrUnavailable, err)
	}

	resp, err := p.config.Client(ctx, tok).Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: google userinfo: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google userinfo status %d", ErrUnavailable, resp.StatusCode)
	}

	var profile struct {
		ID      string `json:"id"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: google userinfo decode: %v", ErrUnavailable, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: google userinfo missing subject id", ErrUnavailable)
	}

	return &ExternalIdentity{
		Provider:  googleName,
		SubjectID: profile.ID,
		AvatarURL: profile.Picture,
	}, nil
}
