package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/standuphq/standup-engine/internal/api/respond"
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/services"
	"github.com/standuphq/standup-engine/internal/vault"
)

// StandupHandler is a thin HTTP transport over StandupService.
type StandupHandler struct {
	svc *services.StandupService
}

func NewStandupHandler(svc *services.StandupService) *StandupHandler { return &StandupHandler{svc: svc} }

type generateRequest struct {
	Date         string `json:"date"`
	Tone         string `json:"tone"`
	Length       string `json:"length"`
	CustomPrompt string `json:"customPrompt,omitempty"`
	SprintGoal   string `json:"sprintGoal,omitempty"`
}

func (g generateRequest) preferences() model.Preferences {
	return model.Preferences{
		Tone:         g.Tone,
		Length:       g.Length,
		CustomPrompt: g.CustomPrompt,
		SprintGoal:   g.SprintGoal,
	}
}

// Generate POST /api/users/{userId}/standups/generate
func (h *StandupHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	date, err := model.ParseDay(req.Date)
	if err != nil {
		respond.WriteBadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	rec, err := h.svc.Generate(r.Context(), userID, date, req.preferences())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// Regenerate POST /api/users/{userId}/standups/{standupId}/regenerate
func (h *StandupHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	rec, err := h.svc.Regenerate(r.Context(), vars["userId"], vars["standupId"], req.preferences())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// List GET /api/users/{userId}/standups?limit=&offset=
func (h *StandupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	recs, err := h.svc.List(r.Context(), userID, limit, offset)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"standups": recs, "count": len(recs)})
}

// Get GET /api/users/{userId}/standups/{standupId}
func (h *StandupHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := h.svc.Get(r.Context(), vars["userId"], vars["standupId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// GetByDate GET /api/users/{userId}/standups/date/{date}
func (h *StandupHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, err := model.ParseDay(vars["date"])
	if err != nil {
		respond.WriteBadRequest(w, "date must be YYYY-MM-DD")
		return
	}
	rec, err := h.svc.FindByDate(r.Context(), vars["userId"], date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// Delete DELETE /api/users/{userId}/standups/{standupId}
func (h *StandupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Delete(r.Context(), vars["userId"], vars["standupId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, vault.ErrMalformedCiphertext), errors.Is(err, vault.ErrDecryptionFailed):
		respond.WriteError(w, http.StatusConflict, "stored credential is unusable; reconnect the integration")
	default:
		respond.WriteInternalError(w, err.Error())
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
