// Package suppressions provides HTTP handlers for suppression windows.
package suppressions

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/api/respond"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Handler serves the suppression window endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a suppressions handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

type CreateRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	Reason      string `json:"reason,omitempty"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	CreatedBy   string `json:"created_by,omitempty"`
}

type SuppressionResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	Reason      string `json:"reason,omitempty"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	CreatedBy   string `json:"created_by,omitempty"`
	Active      bool   `json:"active"`
}

// List returns the suppression windows in a workspace. With ?active=true
// only windows active right now are returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.JSONError(w, respond.NewBadRequest("workspace_id is required"))
		return
	}

	now := time.Now()
	var windows []*models.Suppression
	var err error
	if r.URL.Query().Get("active") == "true" {
		windows, err = h.storage.Suppressions().ListActive(r.Context(), workspaceID, now)
	} else {
		windows, err = h.storage.Suppressions().List(r.Context(), workspaceID)
	}
	if err != nil {
		log.Printf("list suppressions error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	resp := make([]*SuppressionResponse, len(windows))
	for i, s := range windows {
		resp[i] = suppressionToResponse(s, now)
	}
	respond.OK(w, resp)
}

// Create creates a new suppression window.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}

	suppression, err := validateCreate(&req)
	if err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}

	if err := h.storage.Suppressions().Create(r.Context(), suppression); err != nil {
		log.Printf("create suppression error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("suppression created: %s %s=%s until %s",
		suppression.ID, suppression.Kind, suppression.Value, suppression.EndsAt.Format(time.RFC3339))
	respond.Created(w, suppressionToResponse(suppression, time.Now()))
}

// Delete removes a suppression window, ending it immediately.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("suppression id required"))
		return
	}

	if err := h.storage.Suppressions().Delete(r.Context(), id); err != nil {
		respond.JSONError(w, respond.NewNotFound("suppression not found"))
		return
	}

	log.Printf("suppression deleted: %s", id)
	respond.NoContent(w)
}

func validateCreate(req *CreateRequest) (*models.Suppression, error) {
	if req.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	kind, ok := models.ParseSuppressionKind(req.Kind)
	if !ok {
		return nil, fmt.Errorf("kind must be 'rule', 'metric', or 'severity'")
	}
	if req.Value == "" {
		return nil, fmt.Errorf("value is required")
	}
	if kind == models.SuppressBySeverity {
		switch req.Value {
		case "low", "medium", "high", "critical":
		default:
			return nil, fmt.Errorf("severity value must be 'low', 'medium', 'high', or 'critical'")
		}
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid starts_at: must be RFC3339")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid ends_at: must be RFC3339")
	}
	if !endsAt.After(startsAt) {
		return nil, fmt.Errorf("ends_at must be after starts_at")
	}

	return &models.Suppression{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		Kind:        kind,
		Value:       req.Value,
		Reason:      req.Reason,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now(),
	}, nil
}

func suppressionToResponse(s *models.Suppression, now time.Time) *SuppressionResponse {
	return &SuppressionResponse{
		ID:          s.ID,
		WorkspaceID: s.WorkspaceID,
		Kind:        string(s.Kind),
		Value:       s.Value,
		Reason:      s.Reason,
		StartsAt:    s.StartsAt.Format(time.RFC3339),
		EndsAt:      s.EndsAt.Format(time.RFC3339),
		CreatedBy:   s.CreatedBy,
		Active:      s.ActiveAt(now),
	}
}
