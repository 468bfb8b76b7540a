//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/warehouse"
)

var may1 = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type fakeAnalyst struct {
	err error
}

func (f fakeAnalyst) Health(context.Context) error { return f.err }
func (fakeAnalyst) Addr() string                   { return "localhost:50051" }

type downPort struct{}

func (downPort) Query(context.Context, string, ...any) ([]warehouse.Row, error) {
	return nil, &warehouse.ConnectivityError{Op: "query", Err: errors.New("connection refused")}
}
func (downPort) Exec(context.Context, string, ...any) (int64, error) {
	return 0, &warehouse.ConnectivityError{Op: "exec", Err: errors.New("connection refused")}
}
func (downPort) Ping(context.Context) error {
	return &warehouse.ConnectivityError{Op: "ping", Err: errors.New("connection refused")}
}

func openSeeded(t *testing.T) *warehouse.SQLite {
	t.Helper()
	wh, err := warehouse.Open(filepath.Join(t.TempDir(), "vigil.db"), warehouse.Options{QueryTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { _ = wh.Close() })
	if _, err := wh.Seed(context.Background(), may1); err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	return wh
}

func newTestRouter(t *testing.T, port warehouse.Port, analyst AnalystChecker) http.Handler {
	t.Helper()
	personas, err := domain.LoadPersonas()
	if err != nil {
		t.Fatal(err)
	}
	clock := func() time.Time { return may1 }
	h := NewHandler(Deps{
		Port:     port,
		Suite:    reports.NewSuite(port, clock),
		Personas: personas,
		Analyst:  analyst,
		Sessions: func() int { return 3 },
		Clock:    clock,
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, target, w.Body.String(), err)
	}
	return w, got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestFireSeason(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	w, got := do(t, r, http.MethodGet, "/api/fire-season", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	countdown, _ := got["countdown"].(map[string]any)
	if countdown["days_remaining"] != float64(31) {
		t.Errorf("days_remaining = %v, want 31", countdown["days_remaining"])
	}
	if countdown["urgency"] != "medium" {
		t.Errorf("urgency = %v, want medium", countdown["urgency"])
	}
}

func TestListPersonas(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	w, got := do(t, r, http.MethodGet, "/api/personas", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	list, _ := got["personas"].([]any)
	if len(list) == 0 {
		t.Fatal("expected at least one persona")
	}
	if got["default"] == "" {
		t.Error("default persona should be set")
	}
}

func TestDashboard(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	w, got := do(t, r, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	for _, key := range []string{"fire_season", "season", "assets", "compliance", "backlog"} {
		if _, ok := got[key]; !ok {
			t.Errorf("dashboard missing %q", key)
		}
	}
	assets, _ := got["assets"].(map[string]any)
	if n, _ := assets["narrative"].(string); n == "" {
		t.Error("assets narrative should not be empty")
	}
}

func TestDashboardWarehouseDown(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	w, got := do(t, r, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if msg, _ := got["error"].(string); strings.Contains(msg, "refused") {
		t.Errorf("server error leaked cause: %q", msg)
	}
}

func TestRunReport(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"psps", "/api/reports/fire-risk/psps", http.StatusOK},
		{"compliance", "/api/reports/vegetation/compliance", http.StatusOK},
		{"asset detail", "/api/reports/assets/detail?asset_id=ast-00001", http.StatusOK},
		{"unknown operation", "/api/reports/fire-risk/nope", http.StatusNotFound},
		{"unknown generator", "/api/reports/nope/overview", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, got := do(t, r, http.MethodGet, tt.target, nil)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %v)", w.Code, tt.want, got)
			}
			if tt.want == http.StatusOK {
				if _, ok := got["narrative"]; !ok {
					t.Error("report missing narrative")
				}
			}
		})
	}
}

func TestRunReportAssetNotFound(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	w, got := do(t, r, http.MethodGet, "/api/reports/assets/detail?asset_id=AST-99999", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got["narrative"] != "Asset AST-99999 not found." {
		t.Errorf("narrative = %v", got["narrative"])
	}
}

func TestListReports(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	w, got := do(t, r, http.MethodGet, "/api/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	for _, gen := range []string{"vegetation", "assets", "fire-risk", "discovery"} {
		if _, ok := got[gen]; !ok {
			t.Errorf("missing generator %q", gen)
		}
	}
}

func TestClearance(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	t.Run("missing params", func(t *testing.T) {
		w, _ := do(t, r, http.MethodGet, "/api/vegetation/clearance?voltage_class=12KV", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		w, got := do(t, r, http.MethodGet, "/api/vegetation/clearance?voltage_class=12KV&fire_tier=TIER_9", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if msg, _ := got["error"].(string); !strings.Contains(msg, "no clearance requirement") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("bad current", func(t *testing.T) {
		w, _ := do(t, r, http.MethodGet, "/api/vegetation/clearance?voltage_class=12KV&fire_tier=TIER_3&current_ft=abc", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("gap and species", func(t *testing.T) {
		w, got := do(t, r, http.MethodGet,
			"/api/vegetation/clearance?voltage_class=12kv&fire_tier=tier3&current_ft=2&species=eucalyptus", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		req, _ := got["requirement"].(map[string]any)
		if req["required_clearance_ft"] != float64(6) {
			t.Errorf("required = %v, want 6", req["required_clearance_ft"])
		}
		gap, _ := got["gap"].(map[string]any)
		if gap["compliance_status"] != "VIOLATION" || gap["urgency"] != "HIGH" {
			t.Errorf("gap = %v", gap)
		}
		sp, _ := got["species"].(map[string]any)
		if sp["species"] != "EUCALYPTUS" {
			t.Errorf("species = %v", sp["species"])
		}
	})
}

func TestWorkOrders(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	body, _ := json.Marshal(domain.WorkOrderRequest{AssetID: " ast-00003 ", Priority: domain.PriorityUrgent, EstimatedCost: 1200})
	w, created := do(t, r, http.MethodPost, "/api/work-orders", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	if created["work_order_id"] != "WO-20240501120000" {
		t.Errorf("work_order_id = %v", created["work_order_id"])
	}
	if created["asset_id"] != "AST-00003" || created["status"] != domain.WorkOrderPending {
		t.Errorf("created = %v", created)
	}

	w, list := do(t, r, http.MethodGet, "/api/work-orders?status=pending&limit=500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	orders, _ := list["work_orders"].([]any)
	found := false
	for _, o := range orders {
		m, _ := o.(map[string]any)
		if m["status"] != domain.WorkOrderPending {
			t.Errorf("status filter leaked %v", m["status"])
		}
		if m["work_order_id"] == "WO-20240501120000" {
			found = true
		}
	}
	if !found {
		t.Error("created work order not listed")
	}
	if list["count"] != float64(len(orders)) {
		t.Errorf("count = %v, want %d", list["count"], len(orders))
	}
	if s, _ := list["total_cost_fmt"].(string); !strings.HasPrefix(s, "$") {
		t.Errorf("total_cost_fmt = %q", s)
	}
}

func TestCreateWorkOrderValidation(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing asset", `{"priority":"P3_STANDARD"}`},
		{"bad priority", `{"asset_id":"AST-00001","priority":"P9_WHENEVER"}`},
		{"unknown field", `{"asset_id":"AST-00001","colour":"red"}`},
		{"not json", `asset please`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, r, http.MethodPost, "/api/work-orders", []byte(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestListWorkOrdersBadLimit(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	w, _ := do(t, r, http.MethodGet, "/api/work-orders?limit=-1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealth(t *testing.T) {
	wh := openSeeded(t)

	tests := []struct {
		name        string
		port        warehouse.Port
		analyst     AnalystChecker
		wantCode    int
		wantStatus  string
		wantAnalyst string
	}{
		{"all ok", wh, fakeAnalyst{}, http.StatusOK, "healthy", "ok"},
		{"analyst disabled", wh, nil, http.StatusOK, "healthy", "disabled"},
		{"analyst down", wh, fakeAnalyst{err: errors.New("unavailable")}, http.StatusOK, "degraded", "unreachable"},
		{"warehouse down", downPort{}, fakeAnalyst{}, http.StatusServiceUnavailable, "unhealthy", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.port, tt.analyst)
			w, got := do(t, r, http.MethodGet, "/api/health", nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			if got["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", got["status"], tt.wantStatus)
			}
			checks, _ := got["checks"].(map[string]any)
			if checks["analyst"] != tt.wantAnalyst {
				t.Errorf("analyst = %v, want %s", checks["analyst"], tt.wantAnalyst)
			}
			if got["sessions"] != float64(3) {
				t.Errorf("sessions = %v, want 3", got["sessions"])
			}
		})
	}
}
