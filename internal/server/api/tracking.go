package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/config"
)

// TrackingHandler serves /api/tracking and /api/status.
type TrackingHandler struct {
	ctrl Controller
}

// NewTrackingHandler creates a TrackingHandler for ctrl.
func NewTrackingHandler(ctrl Controller) *TrackingHandler {
	return &TrackingHandler{ctrl: ctrl}
}

type trackingRequest struct {
	Enabled  *bool            `json:"enabled"`
	Tracking *config.Tracking `json:"tracking"`
}

type statusResponse struct {
	app.Snapshot
	Last *app.Event `json:"last,omitempty"`
}

// ServeHTTP handles GET and PUT on /api/tracking.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Status handles GET /api/status.
func (h *TrackingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{Snapshot: h.ctrl.Snapshot()}
	if ev, ok := h.ctrl.Last(); ok {
		resp.Last = &ev
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) update(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil && req.Tracking == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	if req.Tracking != nil {
		if err := h.ctrl.SetTracking(*req.Tracking); err != nil {
			if errors.Is(err, config.ErrInvalidConfig) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to apply tracking")
			return
		}
	}
	if req.Enabled != nil {
		h.ctrl.SetEnabled(*req.Enabled)
	}

	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}
