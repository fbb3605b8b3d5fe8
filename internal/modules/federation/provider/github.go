package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const githubName = "github"

const githubUserURL = "https://api.github.com/user"

type GitHub struct {
	config *oauth2.Config
}

func NewGitHub(clientID, clientSecret, redirectURL string) *GitHub {
	return &GitHub{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user"},
		},
	}
}

func (p *GitHub) Name() string { return githubName }

func (p *GitHub) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *GitHub) ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: github token exchange: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: github user request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github user fetch: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: github user status %d", ErrUnavailable, resp.StatusCode)
	}

	var profile struct {
		ID        int64  `json:"id"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: github user decode: %v", ErrUnavailable, err)
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("%w: github user missing id", ErrUnavailable)
	}

	return &ExternalIdentity{
		Provider:  githubName,
		SubjectID: strconv.FormatInt(profile.ID, 10),
		AvatarURL: profile.AvatarURL,
	}, nil
}
