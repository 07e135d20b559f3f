package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mba-dashboard/internal/config"
	"mba-dashboard/internal/models"
	"mba-dashboard/internal/services"
)

func createTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()

	a := services.NewAnalytics(
		config.AnalysisConfig{MinConfidence: 0.0, MaxRules: 100, CostRatio: 0.6},
		config.PromoConfig{DiscountLevels: []float64{0.05, 0.10}, Elasticity: 1.5, TopProducts: 2},
	)

	date := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	testData := []models.Transaction{
		{OrderID: "O1", ProductID: "P1", Description: "Teapot", Quantity: 10, UnitPrice: 10, InvoiceDate: date, CustomerID: "C1", Country: "United Kingdom"},
		{OrderID: "O1", ProductID: "P2", Description: "Mug", Quantity: 5, UnitPrice: 2, InvoiceDate: date, CustomerID: "C1", Country: "United Kingdom"},
		{OrderID: "O2", ProductID: "P1", Description: "Teapot", Quantity: 2, UnitPrice: 10, InvoiceDate: date.AddDate(0, 1, 0), CustomerID: "C2", Country: "France"},
		{OrderID: "O2", ProductID: "P2", Description: "Mug", Quantity: 1, UnitPrice: 2, InvoiceDate: date.AddDate(0, 1, 0), CustomerID: "C2", Country: "France"},
	}
	if err := a.SetData(testData); err != nil {
		t.Fatalf("SetData() failed: %v", err)
	}
	return a
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := slog.Default()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}
	return response
}

func TestAPIHandlers_HandleTopProducts(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/top-products", nil)
	w := httptest.NewRecorder()

	handlers.HandleTopProducts(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", contentType)
	}

	cacheControl := w.Header().Get("Cache-Control")
	if cacheControl != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cacheControl)
	}

	response := decodeSuccess(t, w)
	data, ok := response["data"].([]interface{})
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data array in response")
	}

	first, ok := data[0].(map[string]interface{})
	if !ok {
		t.Fatal("expected baseline objects in data")
	}
	if first["product_id"] != "P1" {
		t.Errorf("expected top product P1, got %v", first["product_id"])
	}
}

func TestAPIHandlers_HandleTopProducts_LimitParam(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/top-products?limit=1", nil)
	w := httptest.NewRecorder()

	handlers.HandleTopProducts(w, req)

	response := decodeSuccess(t, w)
	data, _ := response["data"].([]interface{})
	if len(data) != 1 {
		t.Errorf("expected 1 product with limit=1, got %d", len(data))
	}
}

func TestAPIHandlers_HandleRules(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
	w := httptest.NewRecorder()

	handlers.HandleRules(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected data object in response")
	}

	if empty, ok := data["empty"].(bool); !ok || empty {
		t.Error("expected empty=false with qualifying baskets")
	}

	rules, ok := data["rules"].([]interface{})
	if !ok || len(rules) == 0 {
		t.Fatal("expected mined rules in response")
	}
}

func TestAPIHandlers_HandlePromoScenarios(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/promo-scenarios", nil)
	w := httptest.NewRecorder()

	handlers.HandlePromoScenarios(w, req)

	response := decodeSuccess(t, w)
	data, ok := response["data"].([]interface{})
	if !ok {
		t.Fatal("expected scenario array in response")
	}
	// 2 top products x 2 discount levels.
	if len(data) != 4 {
		t.Errorf("expected 4 scenarios, got %d", len(data))
	}
}

func TestAPIHandlers_HandleSimulate(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	body := `[{"product_id":"P1","discount":0.1,"elasticity":1.5},{"product_id":"P1","discount":1.0,"elasticity":1.5}]`
	req := httptest.NewRequest(http.MethodPost, "/api/promo-simulate", strings.NewReader(body))
	w := httptest.NewRecorder()

	handlers.HandleSimulate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected batch result object")
	}

	scenarios, _ := data["scenarios"].([]interface{})
	if len(scenarios) != 1 {
		t.Errorf("expected 1 evaluated scenario, got %d", len(scenarios))
	}
	skipped, _ := data["skipped"].([]interface{})
	if len(skipped) != 1 {
		t.Errorf("expected 1 skipped scenario, got %d", len(skipped))
	}
}

func TestAPIHandlers_HandleSimulate_BadRequests(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{broken`},
		{"empty batch", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/promo-simulate", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handlers.HandleSimulate(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if success, ok := response["success"].(bool); !ok || success {
				t.Error("expected success=false in error response")
			}
		})
	}
}

func TestAPIHandlers_HandleQuality(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/quality", nil)
	w := httptest.NewRecorder()

	handlers.HandleQuality(w, req)

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected quality report object")
	}
	if baskets, ok := data["baskets"].(float64); !ok || baskets != 2 {
		t.Errorf("expected 2 baskets in quality report, got %v", data["baskets"])
	}
}

func TestAPIHandlers_HandleOverview(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	w := httptest.NewRecorder()

	handlers.HandleOverview(w, req)

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected overview object")
	}
	if products, ok := data["products"].(float64); !ok || products != 2 {
		t.Errorf("expected 2 products in overview, got %v", data["products"])
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected health object")
	}
	if data["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", data["status"])
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	handlers.HandleStats(w, req)

	response := decodeSuccess(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected stats object")
	}
	if count, ok := data["record_count"].(float64); !ok || count != 4 {
		t.Errorf("expected record_count 4, got %v", data["record_count"])
	}
}
