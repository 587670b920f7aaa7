// Package api provides the JSON HTTP handlers of the settings UI.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/config"
)

// Controller is the live session the handlers read and change.
type Controller interface {
	Snapshot() app.Snapshot
	SetEnabled(enabled bool)
	SetTracking(t config.Tracking) error
	Last() (app.Event, bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
