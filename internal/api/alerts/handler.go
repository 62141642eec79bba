// Package alerts provides HTTP handlers for the alert lifecycle.
package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulsewatch/internal/api/respond"
	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Handler serves the alert endpoints.
type Handler struct {
	storage storage.Storage
	engine  *engine.Engine
}

// NewHandler creates an alerts handler.
func NewHandler(store storage.Storage, eng *engine.Engine) *Handler {
	return &Handler{storage: store, engine: eng}
}

// Request types
type AcknowledgeRequest struct {
	By string `json:"by"`
}

type ResolveRequest struct {
	By    string `json:"by"`
	Notes string `json:"notes,omitempty"`
}

// AlertResponse is the wire representation of an alert.
type AlertResponse struct {
	ID               string                 `json:"id"`
	RuleID           string                 `json:"rule_id"`
	WorkspaceID      string                 `json:"workspace_id"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	Severity         string                 `json:"severity"`
	MetricType       string                 `json:"metric_type"`
	MetricValue      float64                `json:"metric_value"`
	ThresholdValue   float64                `json:"threshold_value"`
	TriggeredAt      string                 `json:"triggered_at"`
	AcknowledgedAt   string                 `json:"acknowledged_at,omitempty"`
	AcknowledgedBy   string                 `json:"acknowledged_by,omitempty"`
	ResolvedAt       string                 `json:"resolved_at,omitempty"`
	ResolvedBy       string                 `json:"resolved_by,omitempty"`
	ResolutionNotes  string                 `json:"resolution_notes,omitempty"`
	Escalated        bool                   `json:"escalated"`
	EscalationLevel  int                    `json:"escalation_level"`
	NotificationSent bool                   `json:"notification_sent"`
	Context          map[string]interface{} `json:"context,omitempty"`
}

// DeliveryResponse is the wire representation of a delivery record.
type DeliveryResponse struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Response  string `json:"response,omitempty"`
	SentAt    string `json:"sent_at"`
}

// List returns alerts for a workspace, paginated, most recent first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.JSONError(w, respond.NewBadRequest("workspace_id is required"))
		return
	}
	page, perPage := pagination(r)

	alerts, total, err := h.storage.Alerts().List(r.Context(), workspaceID, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("list alerts error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	items := make([]*AlertResponse, len(alerts))
	for i, a := range alerts {
		items[i] = alertToResponse(a)
	}
	respond.OK(w, respond.PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	})
}

// GetByID returns an alert by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("alert id required"))
		return
	}

	alert, err := h.storage.Alerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get alert error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if alert == nil {
		respond.JSONError(w, respond.NewNotFound("alert not found"))
		return
	}

	respond.OK(w, alertToResponse(alert))
}

// Acknowledge marks an alert acknowledged. Idempotent.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("alert id required"))
		return
	}

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}
	if req.By == "" {
		respond.JSONError(w, respond.NewValidationError("by is required"))
		return
	}

	alert, err := h.engine.Acknowledge(r.Context(), id, req.By)
	if err != nil {
		log.Printf("acknowledge alert error: %v", err)
		respond.JSONError(w, respond.NewNotFound("alert not found"))
		return
	}

	respond.OK(w, alertToResponse(alert))
}

// Resolve terminally marks an alert resolved. Idempotent.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("alert id required"))
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSONError(w, respond.NewBadRequest("invalid request body"))
		return
	}
	if req.By == "" {
		respond.JSONError(w, respond.NewValidationError("by is required"))
		return
	}

	alert, err := h.engine.Resolve(r.Context(), id, req.By, req.Notes)
	if err != nil {
		log.Printf("resolve alert error: %v", err)
		respond.JSONError(w, respond.NewNotFound("alert not found"))
		return
	}

	respond.OK(w, alertToResponse(alert))
}

// Deliveries returns the notification delivery history for an alert.
func (h *Handler) Deliveries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.JSONError(w, respond.NewBadRequest("alert id required"))
		return
	}
	page, perPage := pagination(r)

	ctx := r.Context()
	alert, err := h.storage.Alerts().GetByID(ctx, id)
	if err != nil {
		log.Printf("get alert deliveries error: get alert: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}
	if alert == nil {
		respond.JSONError(w, respond.NewNotFound("alert not found"))
		return
	}

	records, total, err := h.storage.Notifications().ListByAlert(ctx, id, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("get alert deliveries error: %v", err)
		respond.JSONError(w, respond.ErrInternalServer)
		return
	}

	items := make([]*DeliveryResponse, len(records))
	for i, rec := range records {
		items[i] = &DeliveryResponse{
			ID:        rec.ID,
			Channel:   rec.Channel,
			Recipient: rec.Recipient,
			Status:    string(rec.Status),
			Error:     rec.Error,
			Response:  rec.Response,
			SentAt:    rec.SentAt.Format(time.RFC3339),
		}
	}
	respond.OK(w, respond.PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	})
}

func pagination(r *http.Request) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		perPage = v
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
	}
	return page, perPage
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func alertToResponse(a *models.Alert) *AlertResponse {
	evalCtx, err := a.GetContext()
	if err != nil {
		evalCtx = nil
	}

	resp := &AlertResponse{
		ID:               a.ID,
		RuleID:           a.RuleID,
		WorkspaceID:      a.WorkspaceID,
		Title:            a.Title,
		Message:          a.Message,
		Severity:         string(a.Severity),
		MetricType:       a.MetricType,
		MetricValue:      a.MetricValue,
		ThresholdValue:   a.ThresholdValue,
		TriggeredAt:      a.TriggeredAt.Format(time.RFC3339),
		AcknowledgedBy:   a.AcknowledgedBy,
		ResolvedBy:       a.ResolvedBy,
		ResolutionNotes:  a.ResolutionNotes,
		Escalated:        a.Escalated,
		EscalationLevel:  a.EscalationLevel,
		NotificationSent: a.NotificationSent,
		Context:          evalCtx,
	}
	if a.AcknowledgedAt != nil {
		resp.AcknowledgedAt = a.AcknowledgedAt.Format(time.RFC3339)
	}
	if a.ResolvedAt != nil {
		resp.ResolvedAt = a.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}
