package constants

import (
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"
)

const (
	// DefaultPort is the default port for the install service
	DefaultPort = 8080

	// CallbackPath is the path Google redirects back to after consent
	CallbackPath = "/auth/callback"

	// WatchTopicFormat is the Pub/Sub topic the mailbox watch publishes to,
	// parameterized by GCP project id
	WatchTopicFormat = "projects/%s/topics/gmail-push"

	// UsersCollection is the Firestore collection holding connected accounts
	UsersCollection = "users"
)

// Scopes requested during install: mailbox read/modify plus spreadsheets
var Scopes = []string{gmail.GmailModifyScope, sheets.SpreadsheetsScope}
