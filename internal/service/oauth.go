package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// OAuthIdentity is what a provider reports about the signed-in principal.
type OAuthIdentity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// OAuthExchanger exchanges provider authorization codes for identities.
// Two providers are supported: google and facebook.
type OAuthExchanger struct {
	providers map[string]oauthProvider
}

// OAuthCredentials holds per-provider client configuration.
type OAuthCredentials struct {
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	RedirectURL          string
}

// NewOAuthExchanger builds an exchanger for every configured provider
func NewOAuthExchanger(creds OAuthCredentials) *OAuthExchanger {
	providers := make(map[string]oauthProvider)

	if creds.GoogleClientID != "" {
		providers["google"] = oauthProvider{
			config: &oauth2.Config{
				ClientID:     creds.GoogleClientID,
				ClientSecret: creds.GoogleClientSecret,
				RedirectURL:  creds.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			userInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		}
	}

	if creds.FacebookClientID != "" {
		providers["facebook"] = oauthProvider{
			config: &oauth2.Config{
				ClientID:     creds.FacebookClientID,
				ClientSecret: creds.FacebookClientSecret,
				RedirectURL:  creds.RedirectURL,
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			userInfoURL: "https://graph.facebook.com/me?fields=name,email",
		}
	}

	return &OAuthExchanger{providers: providers}
}

// AuthCodeURL returns the provider's consent page URL for the given state
func (e *OAuthExchanger) AuthCodeURL(provider, state string) (string, error) {
	p, ok := e.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades an authorization code for the provider's identity
func (e *OAuthExchanger) Exchange(ctx context.Context, provider, code string) (*OAuthIdentity, error) {
	p, ok := e.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	var identity OAuthIdentity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if identity.Email == "" {
		return nil, errors.New("provider did not report an email")
	}

	return &identity, nil
}
