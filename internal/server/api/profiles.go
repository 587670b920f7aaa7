package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/store"
)

// ProfileHandler serves /api/profiles. Activating a profile applies its
// tunables to the live session and remembers it for the next start.
type ProfileHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(s *store.Store, ctrl Controller) *ProfileHandler {
	return &ProfileHandler{store: s, ctrl: ctrl}
}

type profileRequest struct {
	Name     string           `json:"name"`
	Tracking *config.Tracking `json:"tracking"`
}

type listProfilesResponse struct {
	Profiles []*store.Profile `json:"profiles"`
	Active   string           `json:"active,omitempty"`
}

// ServeHTTP routes /api/profiles, /api/profiles/{id} and
// /api/profiles/{id}/activate.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	default:
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	resp := listProfilesResponse{Profiles: profiles}
	if resp.Profiles == nil {
		resp.Profiles = []*store.Profile{}
	}
	if active, err := h.store.ActiveProfile(); err == nil {
		resp.Active = active.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a profile request. A missing tracking block means the
// current session tunables.
func (h *ProfileHandler) decode(w http.ResponseWriter, r *http.Request) (*profileRequest, bool) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return nil, false
	}
	if req.Tracking == nil {
		t := h.ctrl.Snapshot().Tracking
		req.Tracking = &t
	}
	if err := req.Tracking.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	p := &store.Profile{Name: req.Name, Tracking: *req.Tracking}
	if err := h.store.Profiles().Create(p); err != nil {
		writeStoreError(w, err, "Failed to create profile")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	existing.Name = req.Name
	existing.Tracking = *req.Tracking
	if err := h.store.Profiles().Update(existing); err != nil {
		writeStoreError(w, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		writeStoreError(w, err, "Failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}

	if err := h.ctrl.SetTracking(p.Tracking); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SetActiveProfile(p.ID); err != nil {
		writeStoreError(w, err, "Failed to record active profile")
		return
	}

	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func writeStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "Profile name already exists")
	default:
		writeError(w, http.StatusInternalServerError, message)
	}
}
