// Package providers implements identity-provider integrations for the
// install flow.
package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider abstracts the identity provider the install flow talks to.
// All methods are blocking remote calls; callers bound them with a
// request-scoped context.
type Provider interface {
	// AuthCodeURL constructs the authorization URL carrying the given
	// anti-forgery state token.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for credentials.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh mints a fresh access token from the token's refresh token.
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

	// UserEmail resolves the authenticated account's stable identifier.
	UserEmail(ctx context.Context, token *oauth2.Token) (string, error)
}
