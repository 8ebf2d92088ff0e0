package models

import "cloud.google.com/go/firestore"

// ConnectedAccount is the credential bundle persisted for one connected
// account, keyed by the account's email. It is merge-upserted so
// re-authorization updates the record instead of duplicating it.
type ConnectedAccount struct {
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Fields returns the stored document contents for a merge upsert.
// saved_at is assigned by the Firestore server on write.
func (a *ConnectedAccount) Fields() map[string]interface{} {
	return map[string]interface{}{
		"token":         a.Token,
		"refresh_token": a.RefreshToken,
		"token_uri":     a.TokenURI,
		"client_id":     a.ClientID,
		"client_secret": a.ClientSecret,
		"scopes":        a.Scopes,
		"saved_at":      firestore.ServerTimestamp,
	}
}
