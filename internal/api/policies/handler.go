// Package policies provides HTTP handlers for escalation policies.
package policies

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/api/respond"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Handler serves the escalation policy endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a policies handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

type LevelRequest struct {
	Level  int      `json:"level"`
	Delay  string   `json:"delay"`
	Notify []string `json:"notify"`
}

type CreateRequest struct {
	WorkspaceID string         `json:"workspace_id"`
	Name        string         `json:"name"`
	Levels      []LevelRequest `json:"levels"`
}

type UpdateRequest struct {
	Name   string         `json:"name,omitempty"`
	Levels []LevelRequest `json:"levels,omitempty"`
}

type LevelResponse struct {
	Level  int      `json:"level"`
	Delay  string   `json:"delay"`
	Notify []string `json:"notify"`
}

type PolicyResponse struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	Levels      []LevelResponse `json:"levels"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// List returns the escalation policies in a workspace.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.JSONError(w, respond.NewBadRequest("workspace_id is required"))
		return
	}

	policies, err := h.storage.Policies().List(r.Context(), workspaceID)
	if err != nil {
		log.Printf("list policies error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	resp := make([]*PolicyResponse, len(policies))
	for i, p := range policies {
		resp[i] = policyToResponse(p)
	}
	respond.OK(w, resp)
}

// Create creates a new escalation policy.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}

	if req.WorkspaceID == "" {
		respond.JSONError(w, respond.NewValidationError("workspace_id is required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respond.JSONError(w, respond.NewValidationError("name is required"))
		return
	}
	levels, err := parseLevels(req.Levels)
	if err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}

	now := time.Now()
	policy := &models.EscalationPolicy{
		ID:          uuid.New().String(),
		WorkspaceID: req.WorkspaceID,
		Name:        strings.TrimSpace(req.Name),
		Levels:      levels,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Policies().Create(r.Context(), policy); err != nil {
		log.Printf("create policy error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("escalation policy created: %s (%s)", policy.Name, policy.ID)
	respond.Created(w, policyToResponse(policy))
}

// GetByID returns a policy by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("policy id required"))
		return
	}

	policy, err := h.storage.Policies().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get policy error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if policy == nil {
		respond.JSONError(w, respond.NewNotFound("policy not found"))
		return
	}

	respond.OK(w, policyToResponse(policy))
}

// Update modifies an existing policy.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("policy id required"))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}

	ctx := r.Context()
	policy, err := h.storage.Policies().GetByID(ctx, id)
	if err != nil {
		log.Printf("update policy error: get: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if policy == nil {
		respond.JSONError(w, respond.NewNotFound("policy not found"))
		return
	}

	if req.Name != "" {
		policy.Name = strings.TrimSpace(req.Name)
	}
	if req.Levels != nil {
		levels, err := parseLevels(req.Levels)
		if err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
		policy.Levels = levels
	}
	policy.UpdatedAt = time.Now()

	if err := h.storage.Policies().Update(ctx, policy); err != nil {
		log.Printf("update policy error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("escalation policy updated: %s (%s)", policy.Name, policy.ID)
	respond.OK(w, policyToResponse(policy))
}

// Delete removes a policy.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("policy id required"))
		return
	}

	if err := h.storage.Policies().Delete(r.Context(), id); err != nil {
		respond.JSONError(w, respond.NewNotFound("policy not found"))
		return
	}

	log.Printf("escalation policy deleted: %s", id)
	respond.NoContent(w)
}

// parseLevels validates level definitions: contiguous levels starting at 1
// with strictly increasing delays.
func parseLevels(reqs []LevelRequest) ([]models.EscalationLevel, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("at least one level is required")
	}

	levels := make([]models.EscalationLevel, 0, len(reqs))
	for _, lr := range reqs {
		if lr.Level < 1 {
			return nil, fmt.Errorf("level must be at least 1")
		}
		delay, err := time.ParseDuration(lr.Delay)
		if err != nil || delay <= 0 {
			return nil, fmt.Errorf("level %d: delay must be a positive duration", lr.Level)
		}
		if len(lr.Notify) == 0 {
			return nil, fmt.Errorf("level %d: notify must not be empty", lr.Level)
		}
		levels = append(levels, models.EscalationLevel{Level: lr.Level, Delay: delay, Notify: lr.Notify})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
	for i, lvl := range levels {
		if lvl.Level != i+1 {
			return nil, fmt.Errorf("levels must be contiguous starting at 1")
		}
		if i > 0 && lvl.Delay <= levels[i-1].Delay {
			return nil, fmt.Errorf("level %d: delay must exceed level %d's delay", lvl.Level, levels[i-1].Level)
		}
	}
	return levels, nil
}

func policyToResponse(p *models.EscalationPolicy) *PolicyResponse {
	levels := make([]LevelResponse, len(p.Levels))
	for i, lvl := range p.Levels {
		levels[i] = LevelResponse{Level: lvl.Level, Delay: lvl.Delay.String(), Notify: lvl.Notify}
	}
	return &PolicyResponse{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Name:        p.Name,
		Levels:      levels,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
