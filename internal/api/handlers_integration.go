package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/standuphq/standup-engine/internal/api/respond"
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/services"
)

// IntegrationHandler is a thin HTTP transport over IntegrationService.
type IntegrationHandler struct {
	svc *services.IntegrationService
}

func NewIntegrationHandler(svc *services.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{svc: svc}
}

// credentialView is the wire shape of a credential. Token ciphertext never
// leaves the service.
type credentialView struct {
	CredentialID string            `json:"credentialId"`
	Provider     string            `json:"provider"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	IsActive     bool              `json:"isActive"`
	LastSyncedAt *time.Time        `json:"lastSyncedAt,omitempty"`
	CreationTime time.Time         `json:"creationTime"`
}

func toView(c *model.Credential) credentialView {
	return credentialView{
		CredentialID: c.CredentialID,
		Provider:     c.Provider,
		Metadata:     c.Metadata,
		IsActive:     c.IsActive,
		LastSyncedAt: c.LastSyncedAt,
		CreationTime: c.CreationTime,
	}
}

// Connect POST /api/users/{userId}/integrations
func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var req struct {
		Provider     string            `json:"provider"`
		AccessToken  string            `json:"accessToken"`
		RefreshToken string            `json:"refreshToken,omitempty"`
		ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
		Metadata     map[string]string `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	cred, err := h.svc.Connect(r.Context(), services.ConnectRequest{
		UserID:       userID,
		Provider:     req.Provider,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
		Metadata:     req.Metadata,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, toView(cred))
}

// List GET /api/users/{userId}/integrations
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	creds, err := h.svc.List(r.Context(), userID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	views := make([]credentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, toView(c))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"integrations": views, "count": len(views)})
}

// Verify POST /api/users/{userId}/integrations/{provider}/verify
func (h *IntegrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Verify(r.Context(), vars["userId"], vars["provider"]); err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// Disconnect DELETE /api/users/{userId}/integrations/{provider}
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.Disconnect(r.Context(), vars["userId"], vars["provider"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
