// Package rules provides HTTP handlers for monitoring rule management.
package rules

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/api/respond"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Handler serves the rule management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a rules handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Request types
type CreateRequest struct {
	WorkspaceID   string                 `json:"workspace_id"`
	Name          string                 `json:"name"`
	MetricType    string                 `json:"metric_type"`
	ConditionType string                 `json:"condition_type"`
	Condition     map[string]interface{} `json:"condition"`
	CheckInterval string                 `json:"check_interval"`
	Cooldown      string                 `json:"cooldown"`
	Severity      string                 `json:"severity"`
	Notify        []string               `json:"notify"`
	EscalationID  string                 `json:"escalation_id,omitempty"`
}

type UpdateRequest struct {
	Name          string                 `json:"name,omitempty"`
	MetricType    string                 `json:"metric_type,omitempty"`
	ConditionType string                 `json:"condition_type,omitempty"`
	Condition     map[string]interface{} `json:"condition,omitempty"`
	CheckInterval string                 `json:"check_interval,omitempty"`
	Cooldown      string                 `json:"cooldown,omitempty"`
	Severity      string                 `json:"severity,omitempty"`
	Notify        []string               `json:"notify,omitempty"`
	EscalationID  *string                `json:"escalation_id,omitempty"`
}

// RuleResponse is the wire representation of a rule.
type RuleResponse struct {
	ID              string                 `json:"id"`
	WorkspaceID     string                 `json:"workspace_id"`
	Name            string                 `json:"name"`
	MetricType      string                 `json:"metric_type"`
	ConditionType   string                 `json:"condition_type"`
	Condition       map[string]interface{} `json:"condition"`
	CheckInterval   string                 `json:"check_interval"`
	Cooldown        string                 `json:"cooldown"`
	Severity        string                 `json:"severity"`
	Notify          []string               `json:"notify"`
	EscalationID    string                 `json:"escalation_id,omitempty"`
	Enabled         bool                   `json:"enabled"`
	LastEvaluatedAt string                 `json:"last_evaluated_at,omitempty"`
	LastTriggeredAt string                 `json:"last_triggered_at,omitempty"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

// List returns the rules in a workspace.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.JSONError(w, respond.NewBadRequest("workspace_id is required"))
		return
	}

	rules, err := h.storage.Rules().List(r.Context(), workspaceID)
	if err != nil {
		log.Printf("list rules error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	resp := make([]*RuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = ruleToResponse(rule)
	}
	respond.OK(w, resp)
}

// Create creates a new rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}

	parsed, err := ValidateCreate(&req)
	if err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}

	rule := models.NewRule(req.WorkspaceID, strings.TrimSpace(req.Name), req.MetricType, parsed.ConditionType, parsed.Severity)
	rule.ID = uuid.New().String()
	rule.CheckInterval = parsed.CheckInterval
	rule.Cooldown = parsed.Cooldown
	rule.Notify = req.Notify
	rule.EscalationID = req.EscalationID
	if err := rule.SetCondition(req.Condition); err != nil {
		respond.JSONError(w, respond.NewValidationError("invalid condition config"))
		return
	}

	ctx := r.Context()
	if rule.EscalationID != "" {
		policy, err := h.storage.Policies().GetByID(ctx, rule.EscalationID)
		if err != nil {
			log.Printf("create rule error: check policy: %v", err)
			respond.JSONError(w, respond.ErrInternalServer)
			return
		}
		if policy == nil {
			respond.JSONError(w, respond.NewValidationError("escalation policy not found"))
			return
		}
	}

	if err := h.storage.Rules().Create(ctx, rule); err != nil {
		log.Printf("create rule error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("rule created: %s (%s)", rule.Name, rule.ID)
	respond.Created(w, ruleToResponse(rule))
}

// GetByID returns a rule by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("rule id required"))
		return
	}

	rule, err := h.storage.Rules().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get rule error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if rule == nil {
		respond.JSONError(w, respond.NewNotFound("rule not found"))
		return
	}

	respond.OK(w, ruleToResponse(rule))
}

// Update modifies an existing rule.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("rule id required"))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}

	ctx := r.Context()
	rule, err := h.storage.Rules().GetByID(ctx, id)
	if err != nil {
		log.Printf("update rule error: get: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if rule == nil {
		respond.JSONError(w, respond.NewNotFound("rule not found"))
		return
	}

	if err := ApplyUpdate(rule, &req); err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}

	rule.UpdatedAt = time.Now()
	if err := h.storage.Rules().Update(ctx, rule); err != nil {
		log.Printf("update rule error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("rule updated: %s (%s)", rule.Name, rule.ID)
	respond.OK(w, ruleToResponse(rule))
}

// Delete removes a rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("rule id required"))
		return
	}

	ctx := r.Context()
	rule, err := h.storage.Rules().GetByID(ctx, id)
	if err != nil {
		log.Printf("delete rule error: get: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if rule == nil {
		respond.JSONError(w, respond.NewNotFound("rule not found"))
		return
	}

	if err := h.storage.Rules().Delete(ctx, id); err != nil {
		log.Printf("delete rule error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	log.Printf("rule deleted: %s (%s)", rule.Name, rule.ID)
	respond.NoContent(w)
}

// SetEnabled enables or disables a rule.
func (h *Handler) SetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			respond.JSONError(w, respond.NewBadRequest("rule id required"))
			return
		}

		if err := h.storage.Rules().SetEnabled(r.Context(), id, enabled); err != nil {
			respond.JSONError(w, respond.NewNotFound("rule not found"))
			return
		}

		log.Printf("rule %s enabled=%v", id, enabled)
		respond.NoContent(w)
	}
}

func ruleToResponse(rule *models.Rule) *RuleResponse {
	cfg, err := rule.ConditionConfig()
	if err != nil {
		cfg = map[string]interface{}{}
	}

	resp := &RuleResponse{
		ID:            rule.ID,
		WorkspaceID:   rule.WorkspaceID,
		Name:          rule.Name,
		MetricType:    rule.MetricType,
		ConditionType: string(rule.ConditionType),
		Condition:     cfg,
		CheckInterval: rule.CheckInterval.String(),
		Cooldown:      rule.Cooldown.String(),
		Severity:      string(rule.Severity),
		Notify:        rule.Notify,
		EscalationID:  rule.EscalationID,
		Enabled:       rule.Enabled,
		CreatedAt:     rule.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rule.UpdatedAt.Format(time.RFC3339),
	}
	if rule.LastEvaluatedAt != nil {
		resp.LastEvaluatedAt = rule.LastEvaluatedAt.Format(time.RFC3339)
	}
	if rule.LastTriggeredAt != nil {
		resp.LastTriggeredAt = rule.LastTriggeredAt.Format(time.RFC3339)
	}
	return resp
}
