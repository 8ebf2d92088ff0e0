// Package handlers implements the three-step install flow: issue the
// authorization redirect, validate the returning callback, and hand the
// resulting credentials to the persistence and watch collaborators.
package handlers

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/leadstack/gmail-ingest/internal/auth/providers"
	"github.com/leadstack/gmail-ingest/internal/auth/state"
	"github.com/leadstack/gmail-ingest/internal/config"
	"github.com/leadstack/gmail-ingest/internal/logger"
	"github.com/leadstack/gmail-ingest/internal/store"
	"github.com/leadstack/gmail-ingest/internal/utils"
	"github.com/leadstack/gmail-ingest/internal/watch"
)

// callTimeout bounds each external collaborator call
const callTimeout = 15 * time.Second

const indexPage = `<h1>Gmail Leads Ingest</h1>
<p><a href="/install">Connect Your Gmail &amp; Sheets</a></p>`

const installPage = `<h2>Connect Gmail</h2><p><a href="%s">Click to Authorize</a></p>`

const successPage = `<h2>Success!</h2>
<p>Connected: <strong>%s</strong></p>
<p>Tokens saved. Gmail watch active.</p>
<p>You can close this tab.</p>`

// Handler serves the install flow endpoints
type Handler struct {
	oauth    *config.OAuthConfig
	provider providers.Provider
	states   *state.Store
	accounts store.Accounts
	watcher  watch.Registrar
}

// NewHandler creates a new Handler instance
func NewHandler(oauth *config.OAuthConfig, provider providers.Provider, states *state.Store, accounts store.Accounts, watcher watch.Registrar) *Handler {
	return &Handler{
		oauth:    oauth,
		provider: provider,
		states:   states,
		accounts: accounts,
		watcher:  watcher,
	}
}

// HandleIndex serves the landing page
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	utils.WriteHTML(w, http.StatusOK, indexPage)
}

// HandleInstall issues a fresh state token and renders the authorization
// link. The one state-store write is its only side effect.
func (h *Handler) HandleInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.oauth.Configured() {
		h.fail(w, errMisconfigured, nil)
		return
	}

	authURL := h.provider.AuthCodeURL(h.states.Issue())
	utils.WriteHTML(w, http.StatusOK, fmt.Sprintf(installPage, authURL))
}

// HandleAuthCallback validates the redirect back from Google and completes
// the install. The state token is consumed before anything touches the
// authorization code; a forged, replayed, or expired callback stops there.
func (h *Handler) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.fail(w, errProviderDenied, fmt.Errorf("provider reported %q", errParam))
		return
	}

	code := q.Get("code")
	stateParam := q.Get("state")
	if code == "" || stateParam == "" {
		h.fail(w, errMalformedCallback, nil)
		return
	}

	if !h.states.Consume(stateParam) {
		h.fail(w, errInvalidState, nil)
		return
	}

	ctx := r.Context()

	token, err := h.exchange(ctx, code)
	if err != nil {
		h.fail(w, errTokenExchange, err)
		return
	}

	email, err := h.userEmail(ctx, token)
	if err != nil {
		h.fail(w, errIdentityLookup, err)
		return
	}

	// The user has authorized; from here on failures are logged and the
	// flow carries on. Re-running the install recovers a lost write, and
	// watch registration is retriable out of band.
	h.persist(ctx, email, token)
	h.registerWatch(ctx, email, token)

	utils.WriteHTML(w, http.StatusOK, fmt.Sprintf(successPage, html.EscapeString(email)))
}

// exchange trades the code for credentials and proactively refreshes them
// once: the first-issued access token can be short-lived. A failed refresh
// aborts the flow the same way a failed exchange does.
func (h *Handler) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken != "" {
		token, err = h.provider.Refresh(ctx, token)
		if err != nil {
			return nil, err
		}
	}
	return token, nil
}

func (h *Handler) userEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return h.provider.UserEmail(ctx, token)
}

func (h *Handler) persist(ctx context.Context, email string, token *oauth2.Token) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := h.accounts.Save(ctx, email, token); err != nil {
		logger.Error("Failed to persist credentials", zap.String("email", email), zap.Error(err))
	}
}

func (h *Handler) registerWatch(ctx context.Context, email string, token *oauth2.Token) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := h.watcher.Register(ctx, token); err != nil {
		logger.Warn("Failed to register mailbox watch", zap.String("email", email), zap.Error(err))
		return
	}
	logger.Info("Mailbox watch registered", zap.String("email", email))
}
