// Package store persists connected-account credentials in Firestore.
package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/fx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/leadstack/gmail-ingest/internal/auth/constants"
	"github.com/leadstack/gmail-ingest/internal/auth/models"
	"github.com/leadstack/gmail-ingest/internal/config"
)

// Accounts persists credential bundles keyed by account email.
type Accounts interface {
	Save(ctx context.Context, email string, token *oauth2.Token) error
}

// FirestoreAccounts stores one document per connected account in the
// users collection.
type FirestoreAccounts struct {
	client *firestore.Client
	oauth  *config.OAuthConfig
}

func NewFirestoreAccounts(client *firestore.Client, cfg *config.Config) *FirestoreAccounts {
	return &FirestoreAccounts{
		client: client,
		oauth:  &cfg.OAuth,
	}
}

// Save merge-upserts the credential bundle so re-authorization updates
// the existing document without clearing unrelated fields.
func (s *FirestoreAccounts) Save(ctx context.Context, email string, token *oauth2.Token) error {
	_, err := s.client.Collection(constants.UsersCollection).Doc(email).Set(ctx, s.fields(token), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save account %s: %w", email, err)
	}
	return nil
}

func (s *FirestoreAccounts) fields(token *oauth2.Token) map[string]interface{} {
	account := models.ConnectedAccount{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     google.Endpoint.TokenURL,
		ClientID:     s.oauth.ClientID,
		ClientSecret: s.oauth.ClientSecret,
		Scopes:       constants.Scopes,
	}
	return account.Fields()
}

// NewClient creates the process-wide Firestore handle using application
// default credentials. It is created once at startup and closed when the
// application stops.
func NewClient(lc fx.Lifecycle, cfg *config.Config) (*firestore.Client, error) {
	client, err := firestore.NewClient(context.Background(), cfg.OAuth.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

// Module provides the persistence dependencies
var Module = fx.Module("store",
	fx.Provide(
		NewClient,
		fx.Annotate(
			NewFirestoreAccounts,
			fx.As(new(Accounts)),
		),
	),
)
