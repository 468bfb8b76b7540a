package api

import (
	"net/http"
	"testing"
)

func TestPredictionEndpoints(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	tests := []struct {
		target  string
		listKey string
		summary bool
	}{
		{"/api/ml/asset-health", "predictions", true},
		{"/api/ml/vegetation-growth", "predictions", true},
		{"/api/ml/ignition-risk", "predictions", true},
		{"/api/ml/cable-failure", "predictions", true},
		{"/api/ml/combined-risk", "assets", true},
		{"/api/ml/combined-risk/by-region", "regions", false},
		{"/api/ml/urgent-actions", "urgent_assets", true},
		{"/api/ml/summary", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w, got := do(t, r, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %v)", w.Code, got)
			}
			fs, _ := got["fire_season"].(map[string]any)
			if fs["days_remaining"] != float64(31) {
				t.Errorf("fire_season = %v", got["fire_season"])
			}
			if tt.listKey != "" {
				if _, ok := got[tt.listKey].([]any); !ok {
					t.Errorf("%s is %T, want a list", tt.listKey, got[tt.listKey])
				}
			}
			if _, ok := got["summary"]; ok != tt.summary {
				t.Errorf("summary present = %v, want %v", ok, tt.summary)
			}
		})
	}
}

func TestPredictionLimit(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	w, got := do(t, r, http.MethodGet, "/api/ml/asset-health?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if n := len(got["predictions"].([]any)); n != 5 {
		t.Errorf("predictions = %d, want 5", n)
	}
	summary := got["summary"].(map[string]any)
	if summary["total_predictions"] != float64(5) {
		t.Errorf("total_predictions = %v, want 5", summary["total_predictions"])
	}

	for _, target := range []string{
		"/api/ml/asset-health?limit=501",
		"/api/ml/cable-failure?limit=0",
		"/api/ml/combined-risk?limit=ten",
		"/api/ml/urgent-actions?limit=201",
	} {
		w, _ := do(t, r, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestUrgentActionsAreEmergencyOrHigh(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	_, got := do(t, r, http.MethodGet, "/api/ml/urgent-actions", nil)
	rows := got["urgent_assets"].([]any)
	if len(rows) > 50 {
		t.Errorf("urgent assets = %d, want at most the default 50", len(rows))
	}
	for _, raw := range rows {
		row := raw.(map[string]any)
		if p := row["MAINTENANCE_PRIORITY"]; p != "EMERGENCY" && p != "HIGH" {
			t.Errorf("%v has priority %v", row["ASSET_ID"], p)
		}
	}
	summary := got["summary"].(map[string]any)
	total := summary["emergency_count"].(float64) + summary["high_priority_count"].(float64)
	if int(total) != len(rows) {
		t.Errorf("emergency + high = %v, want %d", total, len(rows))
	}
}

func TestModelSummary(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	_, got := do(t, r, http.MethodGet, "/api/ml/summary", nil)
	models, _ := got["models"].(map[string]any)
	for _, key := range []string{"asset_health", "vegetation_growth", "ignition_risk", "cable_failure"} {
		m, ok := models[key].(map[string]any)
		if !ok {
			t.Fatalf("missing model %q in %v", key, got)
		}
		if m["total_predictions"].(float64) <= 0 {
			t.Errorf("%s total_predictions = %v", key, m["total_predictions"])
		}
	}
}

func TestRiskMap(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	w, got := do(t, r, http.MethodGet, "/api/dashboard/map", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got["type"] != "FeatureCollection" {
		t.Errorf("type = %v", got["type"])
	}
	features := got["features"].([]any)
	if len(features) == 0 {
		t.Fatal("no features")
	}
	f := features[0].(map[string]any)
	coords := f["geometry"].(map[string]any)["coordinates"].([]any)
	if lon := coords[0].(float64); lon > -100 {
		t.Errorf("coordinates = %v, want longitude first", coords)
	}
	if _, ok := got["fire_season"]; !ok {
		t.Error("missing fire_season")
	}
}

func TestPredictionsWarehouseDown(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	for _, target := range []string{"/api/ml/summary", "/api/ml/ignition-risk", "/api/dashboard/map"} {
		w, _ := do(t, r, http.MethodGet, target, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, w.Code)
		}
	}
}

func TestAssetForecasts(t *testing.T) {
	r := newTestRouter(t, openSeeded(t), nil)

	body := []byte(`{"asset_ids": [" ast-00001 ", "AST-99999"]}`)
	w, got := do(t, r, http.MethodPost, "/api/ml/asset-predictions", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", w.Code, got)
	}
	if got["total_assets"] != float64(2) {
		t.Errorf("total_assets = %v, want 2", got["total_assets"])
	}
	preds := got["predictions"].(map[string]any)
	known, ok := preds["AST-00001"].(map[string]any)
	if !ok {
		t.Fatalf("missing AST-00001 in %v", preds)
	}
	if known["combined"] == nil || known["ignition"] == nil {
		t.Errorf("AST-00001 forecasts = %v", known)
	}
	unknown := preds["AST-99999"].(map[string]any)
	for model, v := range unknown {
		if v != nil {
			t.Errorf("AST-99999 %s = %v, want null", model, v)
		}
	}
	coverage := got["coverage"].(map[string]any)
	if coverage["combined"] != float64(1) {
		t.Errorf("combined coverage = %v, want 1", coverage["combined"])
	}
}

func TestAssetForecastsValidation(t *testing.T) {
	r := newTestRouter(t, downPort{}, nil)

	for _, body := range []string{`{}`, `not json`, `{"asset_ids": "AST-00001"}`} {
		w, _ := do(t, r, http.MethodPost, "/api/ml/asset-predictions", []byte(body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}

	w, got := do(t, r, http.MethodPost, "/api/ml/asset-predictions", []byte(`{"asset_ids": []}`))
	if w.Code != http.StatusOK || got["total_assets"] != float64(0) {
		t.Errorf("empty ids: status = %d, body %v", w.Code, got)
	}
}
