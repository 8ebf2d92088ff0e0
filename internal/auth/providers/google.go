package providers

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/leadstack/gmail-ingest/internal/auth/constants"
	"github.com/leadstack/gmail-ingest/internal/config"
)

// GoogleProvider implements Provider against Google's OAuth endpoints.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
}

func NewGoogleProvider(cfg *config.Config) *GoogleProvider {
	return &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.OAuth.RedirectURL(),
			Scopes:       constants.Scopes,
		},
	}
}

// AuthCodeURL builds the consent URL. access_type=offline together with
// prompt=consent makes Google issue a refresh token even on re-consent.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// Refresh trades the refresh token for a fresh access token. The access
// token Google hands out alongside a consent can be short-lived, so the
// flow refreshes once up front to normalize it.
func (p *GoogleProvider) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	refreshed, err := p.oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: token.RefreshToken,
	}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	// Google omits the refresh token from refresh responses; carry it over
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	return refreshed, nil
}

// UserEmail fetches the authenticated account's email via the userinfo API.
func (p *GoogleProvider) UserEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response carries no email")
	}
	return info.Email, nil
}

// TokenEndpoint returns the token URI recorded with persisted credentials.
func (p *GoogleProvider) TokenEndpoint() string {
	return p.oauth2Config.Endpoint.TokenURL
}
