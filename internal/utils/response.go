package utils

import (
	"io"
	"net/http"

	"github.com/leadstack/gmail-ingest/internal/logger"
	"go.uber.org/zap"
)

// WriteHTML writes an HTML response with the given status
func WriteHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		logger.Error("Failed to write response body", zap.Error(err))
	}
}

// WriteError writes a short plain-text error response. Bodies carry a
// one-line reason only, never credential material or stack traces.
func WriteError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
