package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/leadstack/gmail-ingest/internal/auth/state"
	"github.com/leadstack/gmail-ingest/internal/config"
)

type fakeProvider struct {
	exchangeCalls int
	refreshCalls  int
	exchangeErr   error
	refreshErr    error
	userEmailErr  error
	email         string
	refreshToken  string
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-token", RefreshToken: f.refreshToken}, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth2.Token{AccessToken: "refreshed-token", RefreshToken: token.RefreshToken}, nil
}

func (f *fakeProvider) UserEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	if f.userEmailErr != nil {
		return "", f.userEmailErr
	}
	return f.email, nil
}

type fakeAccounts struct {
	saveCalls int
	saveErr   error
	email     string
	token     *oauth2.Token
}

func (f *fakeAccounts) Save(ctx context.Context, email string, token *oauth2.Token) error {
	f.saveCalls++
	f.email = email
	f.token = token
	return f.saveErr
}

type fakeRegistrar struct {
	registerCalls int
	registerErr   error
}

func (f *fakeRegistrar) Register(ctx context.Context, token *oauth2.Token) error {
	f.registerCalls++
	return f.registerErr
}

type fixture struct {
	handler  *Handler
	provider *fakeProvider
	accounts *fakeAccounts
	watcher  *fakeRegistrar
	states   *state.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	states := state.NewStore()
	t.Cleanup(states.Close)

	provider := &fakeProvider{email: "user@example.com", refreshToken: "refresh-token"}
	accounts := &fakeAccounts{}
	watcher := &fakeRegistrar{}
	oauth := &config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      "http://localhost:8080",
	}

	return &fixture{
		handler:  NewHandler(oauth, provider, states, accounts, watcher),
		provider: provider,
		accounts: accounts,
		watcher:  watcher,
		states:   states,
	}
}

func (f *fixture) callback(t *testing.T, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+params.Encode(), nil)
	rec := httptest.NewRecorder()
	f.handler.HandleAuthCallback(rec, req)
	return rec
}

func TestHandleIndex(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleIndex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/install"`)
}

func TestHandleIndex_UnknownPath(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleIndex(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleInstall(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/install", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleInstall(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://accounts.google.com/o/oauth2/auth?state=")
	assert.Equal(t, 1, f.states.Pending(), "install records exactly one pending token")
}

func TestHandleInstall_Misconfigured(t *testing.T) {
	f := newFixture(t)
	f.handler.oauth = &config.OAuthConfig{}

	req := httptest.NewRequest(http.MethodGet, "/install", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleInstall(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, f.states.Pending())
}

func TestCallback_ProviderDenied(t *testing.T) {
	f := newFixture(t)
	token := f.states.Issue()

	// error wins regardless of other params
	rec := f.callback(t, url.Values{
		"error": {"access_denied"},
		"code":  {"validcode"},
		"state": {token},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.provider.exchangeCalls)
}

func TestCallback_MissingParams(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"missing code", url.Values{"state": {"some-state"}}},
		{"missing state", url.Values{"code": {"validcode"}}},
		{"missing both", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.callback(t, tt.params)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Missing code or state")
			assert.Zero(t, f.provider.exchangeCalls)
		})
	}
}

func TestCallback_InvalidState(t *testing.T) {
	f := newFixture(t)

	rec := f.callback(t, url.Values{
		"code":  {"validcode"},
		"state": {"never-issued"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid state parameter")
	assert.Zero(t, f.provider.exchangeCalls, "state gate must precede the token exchange")
	assert.Zero(t, f.accounts.saveCalls)
	assert.Zero(t, f.watcher.registerCalls)
}

func TestCallback_ReplayedState(t *testing.T) {
	f := newFixture(t)
	token := f.states.Issue()

	first := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})
	require.Equal(t, http.StatusOK, first.Code)

	second := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, 1, f.provider.exchangeCalls, "replay must not reach the exchange")
}

func TestCallback_Success(t *testing.T) {
	f := newFixture(t)
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")

	require.Equal(t, 1, f.accounts.saveCalls)
	assert.Equal(t, "user@example.com", f.accounts.email)
	assert.Equal(t, "refreshed-token", f.accounts.token.AccessToken)
	assert.Equal(t, "refresh-token", f.accounts.token.RefreshToken)

	assert.Equal(t, 1, f.provider.refreshCalls, "credentials carrying a refresh token are refreshed once")
	assert.Equal(t, 1, f.watcher.registerCalls)
}

func TestCallback_NoRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.provider.refreshToken = ""
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.provider.refreshCalls, "nothing to refresh without a refresh token")
	assert.Equal(t, 1, f.accounts.saveCalls)
}

func TestCallback_ExchangeFails(t *testing.T) {
	f := newFixture(t)
	f.provider.exchangeErr = fmt.Errorf("boom")
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to get token")
	assert.Zero(t, f.accounts.saveCalls, "no partial persistence")
	assert.Zero(t, f.watcher.registerCalls)
}

func TestCallback_RefreshFails(t *testing.T) {
	f := newFixture(t)
	f.provider.refreshErr = fmt.Errorf("boom")
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to get token")
	assert.Zero(t, f.accounts.saveCalls)
}

func TestCallback_IdentityLookupFails(t *testing.T) {
	f := newFixture(t)
	f.provider.userEmailErr = fmt.Errorf("boom")
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to get user info")
	assert.Zero(t, f.accounts.saveCalls, "nothing persisted without an identity")
	assert.Zero(t, f.watcher.registerCalls)
}

func TestCallback_PersistenceFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.accounts.saveErr = fmt.Errorf("boom")
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusOK, rec.Code, "a failed write must not strand the user mid-flow")
	assert.Equal(t, 1, f.watcher.registerCalls, "watch registration is still attempted")
}

func TestCallback_WatchFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.watcher.registerErr = fmt.Errorf("already registered")
	token := f.states.Issue()

	rec := f.callback(t, url.Values{"code": {"validcode"}, "state": {token}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")
}
