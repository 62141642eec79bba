package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

func testRouter(t *testing.T) (*chi.Mux, storage.Storage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, condition.NewRegistry(metricstore.NewMemoryStore()), notifier.NewDispatcher(nil, 100, 100))
	h := NewHandler(store, eng)
	r := chi.NewRouter()
	r.Get("/alerts", h.List)
	r.Get("/alerts/{id}", h.GetByID)
	r.Post("/alerts/{id}/acknowledge", h.Acknowledge)
	r.Post("/alerts/{id}/resolve", h.Resolve)
	r.Get("/alerts/{id}/deliveries", h.Deliveries)
	return r, store
}

func seedAlert(t *testing.T, store storage.Storage) *models.Alert {
	t.Helper()
	ctx := context.Background()

	rule := models.NewRule("ws-1", "high cpu", "cpu_usage", models.ConditionThreshold, models.SeverityHigh)
	rule.ID = uuid.New().String()
	rule.Condition = `{"operator":">","threshold":90}`
	rule.CheckInterval = time.Minute
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	alert := &models.Alert{
		ID:             uuid.New().String(),
		RuleID:         rule.ID,
		WorkspaceID:    "ws-1",
		Title:          "[HIGH] high cpu",
		Message:        "cpu_usage is 95.00 (> 90.00)",
		Severity:       models.SeverityHigh,
		MetricType:     "cpu_usage",
		MetricValue:    95,
		ThresholdValue: 90,
		TriggeredAt:    now,
		CreatedAt:      now,
	}
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return alert
}

func decodeAlert(t *testing.T, rec *httptest.ResponseRecorder) *AlertResponse {
	t.Helper()
	var resp struct {
		Data *AlertResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func TestListAlerts(t *testing.T) {
	r, store := testRouter(t)
	seedAlert(t, store)

	req := httptest.NewRequest(http.MethodGet, "/alerts?workspace_id=ws-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Items []*AlertResponse `json:"items"`
			Total int64            `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Items) != 1 {
		t.Fatalf("total=%d items=%d, want 1/1", resp.Data.Total, len(resp.Data.Items))
	}
	if resp.Data.Items[0].Severity != "high" {
		t.Errorf("severity = %q", resp.Data.Items[0].Severity)
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	r, store := testRouter(t)
	alert := seedAlert(t, store)

	body := `{"by": "alice"}`
	req := httptest.NewRequest(http.MethodPost, "/alerts/"+alert.ID+"/acknowledge", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeAlert(t, rec)
	if got.AcknowledgedBy != "alice" || got.AcknowledgedAt == "" {
		t.Errorf("acknowledged_by = %q, acknowledged_at = %q", got.AcknowledgedBy, got.AcknowledgedAt)
	}

	// Second acknowledge is a no-op, not an error.
	req = httptest.NewRequest(http.MethodPost, "/alerts/"+alert.ID+"/acknowledge", strings.NewReader(`{"by": "bob"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second acknowledge status = %d", rec.Code)
	}
	got = decodeAlert(t, rec)
	if got.AcknowledgedBy != "alice" {
		t.Errorf("acknowledged_by = %q after double ack, want alice", got.AcknowledgedBy)
	}
}

func TestAcknowledgeRequiresActor(t *testing.T) {
	r, store := testRouter(t)
	alert := seedAlert(t, store)

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+alert.ID+"/acknowledge", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d without actor, want 400", rec.Code)
	}
}

func TestResolveAlert(t *testing.T) {
	r, store := testRouter(t)
	alert := seedAlert(t, store)

	body := `{"by": "alice", "notes": "restarted the worker"}`
	req := httptest.NewRequest(http.MethodPost, "/alerts/"+alert.ID+"/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeAlert(t, rec)
	if got.ResolvedBy != "alice" || got.ResolvedAt == "" {
		t.Errorf("resolved_by = %q, resolved_at = %q", got.ResolvedBy, got.ResolvedAt)
	}
	if got.ResolutionNotes != "restarted the worker" {
		t.Errorf("notes = %q", got.ResolutionNotes)
	}
}

func TestDeliveriesForAlert(t *testing.T) {
	r, store := testRouter(t)
	alert := seedAlert(t, store)

	now := time.Now().Truncate(time.Second)
	record := &models.NotificationRecord{
		ID:        uuid.New().String(),
		AlertID:   alert.ID,
		Channel:   "ops-email",
		Recipient: "oncall@example.com",
		Status:    models.DeliveryFailed,
		Error:     "connection refused",
		SentAt:    now,
		CreatedAt: now,
	}
	if err := store.Notifications().Append(context.Background(), record); err != nil {
		t.Fatalf("append record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/alerts/"+alert.ID+"/deliveries", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Items []*DeliveryResponse `json:"items"`
			Total int64               `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Data.Total)
	}
	if resp.Data.Items[0].Status != "failed" || resp.Data.Items[0].Error != "connection refused" {
		t.Errorf("record = %+v", resp.Data.Items[0])
	}
}

func TestGetMissingAlert(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/alerts/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
