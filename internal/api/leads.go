package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
)

type leadRequest struct {
	Name        string            `json:"name"`
	ContactInfo string            `json:"contact_info"`
	Source      string            `json:"source"`
	Status      domain.LeadStatus `json:"status"`
}

// HandleListLeads handles GET /api/sessions/{id}/leads.
func (h *Handler) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	leads, err := h.repo.ListLeads(r.Context(), session.ID)
	if err != nil {
		h.storeError(w, "list leads", err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// HandleListUserLeads handles GET /api/leads: the leads of all sessions of
// the caller.
func (h *Handler) HandleListUserLeads(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	leads, err := h.repo.ListLeadsByUser(r.Context(), userID)
	if err != nil {
		h.storeError(w, "list user leads", err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// HandleCreateLead handles POST /api/sessions/{id}/leads.
func (h *Handler) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req leadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = domain.LeadNew
	}
	if !req.Status.Valid() {
		Error(w, http.StatusBadRequest, "unknown lead status")
		return
	}
	name := truncate(strings.TrimSpace(req.Name), 200)
	contact := truncate(strings.TrimSpace(req.ContactInfo), 200)
	if name == "" && contact == "" {
		Error(w, http.StatusBadRequest, "name or contact_info is required")
		return
	}

	lead := &domain.Lead{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserID:      session.UserID,
		Name:        name,
		ContactInfo: contact,
		Source:      truncate(strings.TrimSpace(req.Source), 100),
		Status:      req.Status,
		CreatedAt:   h.now(),
	}
	if err := h.repo.SaveLead(r.Context(), lead); err != nil {
		h.storeError(w, "save lead", err)
		return
	}
	JSON(w, http.StatusCreated, lead)
}

// HandleUpdateLead handles PATCH /api/sessions/{id}/leads/{leadID}.
func (h *Handler) HandleUpdateLead(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req leadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		Error(w, http.StatusBadRequest, "unknown lead status")
		return
	}

	leads, err := h.repo.ListLeads(r.Context(), session.ID)
	if err != nil {
		h.storeError(w, "list leads", err)
		return
	}
	leadID := chi.URLParam(r, "leadID")
	i := slices.IndexFunc(leads, func(l domain.Lead) bool { return l.ID == leadID })
	if i < 0 {
		Error(w, http.StatusNotFound, "lead not found")
		return
	}

	if err := h.repo.UpdateLeadStatus(r.Context(), leadID, req.Status); err != nil {
		h.storeError(w, "update lead", err)
		return
	}
	lead := leads[i]
	lead.Status = req.Status
	JSON(w, http.StatusOK, lead)
}
