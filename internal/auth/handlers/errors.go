package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/leadstack/gmail-ingest/internal/logger"
	"github.com/leadstack/gmail-ingest/internal/utils"
)

// flowError classifies an install-flow failure and carries the HTTP status
// surfaced to the browser. Persistence and watch failures are deliberately
// absent: those are logged and never fail the flow.
type flowError struct {
	Kind    string
	Status  int
	Message string
}

func (e *flowError) Error() string {
	return e.Kind + ": " + e.Message
}

var (
	errMisconfigured     = &flowError{"misconfigured_server", http.StatusInternalServerError, "Missing CLIENT_ID or CLIENT_SECRET"}
	errProviderDenied    = &flowError{"provider_denied", http.StatusBadRequest, "Authorization was declined"}
	errMalformedCallback = &flowError{"malformed_callback", http.StatusBadRequest, "Missing code or state"}
	errInvalidState      = &flowError{"invalid_state", http.StatusBadRequest, "Invalid state parameter"}
	errTokenExchange     = &flowError{"token_exchange_failed", http.StatusInternalServerError, "Failed to get token"}
	errIdentityLookup    = &flowError{"identity_lookup_failed", http.StatusInternalServerError, "Failed to get user info"}
)

// fail logs the failure and writes its short public reason. Causes stay in
// the log; response bodies never carry them.
func (h *Handler) fail(w http.ResponseWriter, fe *flowError, cause error) {
	if cause != nil {
		logger.Error("Install flow failed", zap.String("kind", fe.Kind), zap.Error(cause))
	} else {
		logger.Warn("Install flow rejected", zap.String("kind", fe.Kind))
	}
	utils.WriteError(w, fe.Status, fe.Message)
}
