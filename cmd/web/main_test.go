package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"mba-dashboard/internal/config"
	"mba-dashboard/internal/models"
	"mba-dashboard/internal/server"
	"mba-dashboard/internal/services"
)

// Test helper to create analytics with test data
func newTestAnalytics(t *testing.T) *services.Analytics {
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

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	templateHandlers := &server.TemplateHandlers{Dashboard: handleDashboard}
	return server.NewServer(newTestAnalytics(t), logger, templateHandlers)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/top-products", http.StatusOK, "application/json"},
		{"/api/monthly-revenue", http.StatusOK, "application/json"},
		{"/api/rules", http.StatusOK, "application/json"},
		{"/api/promo-scenarios", http.StatusOK, "application/json"},
		{"/api/quality", http.StatusOK, "application/json"},
		{"/api/overview", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			// Validate JSON responses
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Test JSON API responses
func TestServer_JSONResponse(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/top-products", nil)
	srv.ServeHTTP(w, r)

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].([]interface{})
	if !ok {
		t.Fatalf("expected data array in response")
	}

	if len(data) == 0 {
		t.Error("expected product baselines")
		return
	}

	// Verify structure of first item
	if item, ok := data[0].(map[string]interface{}); ok {
		if id, hasID := item["product_id"].(string); !hasID || id == "" {
			t.Error("baseline should have non-empty product_id field")
		}
		if revenue, hasRev := item["revenue"].(float64); !hasRev || revenue <= 0 {
			t.Error("baseline should have positive revenue field")
		}
		if rank, hasRank := item["rank"].(float64); !hasRank || rank < 1 {
			t.Error("baseline should have a 1-based rank field")
		}
	} else {
		t.Error("invalid baseline structure")
	}
}

// Test the scenario simulation route end to end
func TestServer_Simulate(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	body := `[{"product_id":"P1","discount":0.1,"elasticity":1.5}]`
	r := httptest.NewRequest("POST", "/api/promo-simulate", strings.NewReader(body))

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatal("expected batch result object")
	}

	scenarios, _ := data["scenarios"].([]interface{})
	if len(scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(scenarios))
	}

	scenario, _ := scenarios[0].(map[string]interface{})
	if price, ok := scenario["new_price"].(float64); !ok || price != 9.0 {
		t.Errorf("new_price = %v, want 9.0", scenario["new_price"])
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestServer(t)

	sseRoutes := []string{
		"/sse/rules",
		"/sse/top-products",
		"/sse/promo-scenarios",
		"/sse/refresh-all",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			// Check for SSE headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

// Test health endpoint
func TestServer_HandleHealth(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	healthData, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected health data in response")
	}

	if status, ok := healthData["status"].(string); !ok || status != "healthy" {
		t.Errorf("health status = %v, want 'healthy'", healthData["status"])
	}

	if _, ok := healthData["timestamp"]; !ok {
		t.Error("health response should include timestamp")
	}
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/rules", http.StatusMethodNotAllowed},
		{"GET", "/api/promo-simulate", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/api/top-products", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// Test dashboard template rendering
func TestDashboardTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	// Test the template handler directly
	handleDashboard(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, "Retail Pricing Dashboard") {
		t.Error("dashboard should contain title")
	}

	// Check for key dashboard components
	expectedComponents := []string{
		"Top Association Rules",
		"Top Products",
		"Promo Scenarios",
		"/sse/refresh-all",
	}

	for _, component := range expectedComponents {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}
