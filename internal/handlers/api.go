package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mba-dashboard/internal/errors"
	"mba-dashboard/internal/models"
	"mba-dashboard/internal/observability"
	"mba-dashboard/internal/services"
)

const (
	defaultProductLimit = 20
	defaultRuleLimit    = 50
	maxSimulateBatch    = 500
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func limitParam(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return fallback
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.TopProducts(limitParam(r, defaultProductLimit))

	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.MonthlyRevenue()

	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleRules(w http.ResponseWriter, r *http.Request) {

	response := map[string]any{
		"rules": h.analytics.Rules(limitParam(r, defaultRuleLimit)),
		"empty": h.analytics.RulesEmpty(),
	}

	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}

	errors.WriteSuccessWithHeaders(w, response, headers)
}

func (h *APIHandlers) HandlePromoScenarios(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.Scenarios()

	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

// HandleSimulate evaluates an ad-hoc scenario batch posted as JSON. Invalid
// individual requests surface in the skip report, not as an HTTP error.
func (h *APIHandlers) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var reqs []models.PromoRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid scenario batch"), requestID)
		return
	}

	if len(reqs) == 0 {
		errors.WriteError(w, h.logger, errors.Validation("scenario batch is empty"), requestID)
		return
	}
	if len(reqs) > maxSimulateBatch {
		errors.WriteError(w, h.logger, errors.Validation("scenario batch too large"), requestID)
		return
	}

	result, err := h.analytics.Simulate(r.Context(), reqs)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "scenario evaluation failed"), requestID)
		return
	}

	observability.RequestLogger(r.Context(), h.logger).Debug("scenario batch evaluated",
		"requested", len(reqs),
		"evaluated", len(result.Scenarios),
		"skipped", len(result.Skipped),
	)

	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleQuality(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.Quality()

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.Overview()

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
