// Package auth wires the install flow: the state store, the Google
// provider, and the HTTP handlers driving the three-step web flow.
package auth

import (
	"context"
	"net/http"

	"go.uber.org/fx"

	"github.com/leadstack/gmail-ingest/internal/auth/handlers"
	"github.com/leadstack/gmail-ingest/internal/auth/providers"
	"github.com/leadstack/gmail-ingest/internal/auth/state"
	"github.com/leadstack/gmail-ingest/internal/config"
	"github.com/leadstack/gmail-ingest/internal/store"
	"github.com/leadstack/gmail-ingest/internal/watch"
)

// Service represents the OAuth install service
type Service struct {
	config  *config.OAuthConfig
	handler *handlers.Handler
	states  *state.Store
}

// NewService creates a new install service
func NewService(cfg *config.Config, provider providers.Provider, states *state.Store, accounts store.Accounts, watcher watch.Registrar) *Service {
	return &Service{
		config:  &cfg.OAuth,
		handler: handlers.NewHandler(&cfg.OAuth, provider, states, accounts, watcher),
		states:  states,
	}
}

// RegisterRoutes registers all install-flow routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handler.HandleIndex)
	mux.HandleFunc("/install", s.handler.HandleInstall)
	mux.HandleFunc("/auth/callback", s.handler.HandleAuthCallback)
}

// NewStateStore creates the pending-token store and ties its expiry
// sweeper to the application lifecycle.
func NewStateStore(lc fx.Lifecycle) *state.Store {
	s := state.NewStore()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Close()
			return nil
		},
	})
	return s
}

// Module provides the install flow dependencies
var Module = fx.Module("auth",
	fx.Provide(
		NewStateStore,
		fx.Annotate(
			providers.NewGoogleProvider,
			fx.As(new(providers.Provider)),
		),
		NewService,
	),
)
