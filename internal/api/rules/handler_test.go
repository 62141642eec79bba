package rules

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

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

	h := NewHandler(store)
	r := chi.NewRouter()
	r.Get("/rules", h.List)
	r.Post("/rules", h.Create)
	r.Get("/rules/{id}", h.GetByID)
	r.Put("/rules/{id}", h.Update)
	r.Delete("/rules/{id}", h.Delete)
	r.Post("/rules/{id}/disable", h.SetEnabled(false))
	return r, store
}

func createRule(t *testing.T, r *chi.Mux, body string) *RuleResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule: status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data *RuleResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

const validRuleBody = `{
	"workspace_id": "ws-1",
	"name": "high cpu",
	"metric_type": "cpu_usage",
	"condition_type": "threshold",
	"condition": {"operator": ">", "threshold": 90},
	"check_interval": "1m",
	"cooldown": "10m",
	"severity": "high",
	"notify": ["ops-email"]
}`

func TestCreateRule(t *testing.T) {
	r, _ := testRouter(t)

	rule := createRule(t, r, validRuleBody)
	if rule.ID == "" {
		t.Error("rule id not assigned")
	}
	if rule.CheckInterval != "1m0s" {
		t.Errorf("check interval = %q, want 1m0s", rule.CheckInterval)
	}
	if !rule.Enabled {
		t.Error("new rule should be enabled")
	}
}

func TestCreateRuleValidation(t *testing.T) {
	r, _ := testRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing workspace", `{"name":"x","metric_type":"cpu","condition_type":"threshold","condition":{"operator":">","threshold":1},"check_interval":"1m","severity":"low"}`},
		{"missing name", `{"workspace_id":"ws-1","metric_type":"cpu","condition_type":"threshold","condition":{"operator":">","threshold":1},"check_interval":"1m","severity":"low"}`},
		{"bad condition type", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"magic","condition":{},"check_interval":"1m","severity":"low"}`},
		{"bad operator", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"threshold","condition":{"operator":"~","threshold":1},"check_interval":"1m","severity":"low"}`},
		{"missing threshold", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"threshold","condition":{"operator":">"},"check_interval":"1m","severity":"low"}`},
		{"interval too short", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"threshold","condition":{"operator":">","threshold":1},"check_interval":"1s","severity":"low"}`},
		{"bad severity", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"threshold","condition":{"operator":">","threshold":1},"check_interval":"1m","severity":"urgent"}`},
		{"bad sensitivity", `{"workspace_id":"ws-1","name":"x","metric_type":"cpu","condition_type":"anomaly","condition":{"window":"1h","sensitivity":9},"check_interval":"1m","severity":"low"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetRule(t *testing.T) {
	r, _ := testRouter(t)
	rule := createRule(t, r, validRuleBody)

	req := httptest.NewRequest(http.MethodGet, "/rules/"+rule.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/rules/does-not-exist", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for missing rule, want 404", rec.Code)
	}
}

func TestUpdateRule(t *testing.T) {
	r, _ := testRouter(t)
	rule := createRule(t, r, validRuleBody)

	body := `{"name": "very high cpu", "condition": {"operator": ">=", "threshold": 95}}`
	req := httptest.NewRequest(http.MethodPut, "/rules/"+rule.ID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data *RuleResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Name != "very high cpu" {
		t.Errorf("name = %q", resp.Data.Name)
	}
	if resp.Data.Condition["threshold"] != float64(95) {
		t.Errorf("threshold = %v, want 95", resp.Data.Condition["threshold"])
	}
}

func TestDisableRule(t *testing.T) {
	r, store := testRouter(t)
	rule := createRule(t, r, validRuleBody)

	req := httptest.NewRequest(http.MethodPost, "/rules/"+rule.ID+"/disable", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	got, err := store.Rules().GetByID(req.Context(), rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got.Enabled {
		t.Error("rule should be disabled")
	}
}

func TestDeleteRule(t *testing.T) {
	r, _ := testRouter(t)
	rule := createRule(t, r, validRuleBody)

	req := httptest.NewRequest(http.MethodDelete, "/rules/"+rule.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/rules/"+rule.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d after delete, want 404", rec.Code)
	}
}

func TestListRulesRequiresWorkspace(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d without workspace_id, want 400", rec.Code)
	}

	createRule(t, r, validRuleBody)
	req = httptest.NewRequest(http.MethodGet, "/rules?workspace_id=ws-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data []*RuleResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("got %d rules, want 1", len(resp.Data))
	}
}
