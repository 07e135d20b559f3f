package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"mba-dashboard/internal/models"
	"mba-dashboard/internal/services"
)

const (
	maxTableRows = 50
	maxProducts  = 20
)

var rulesTableTemplate = template.Must(template.New("rulesTable").Parse(`
<div id="rules-content">
<table class="modern-table">
<thead><tr><th>Antecedent</th><th>Consequent</th><th>Support</th><th>Confidence</th><th>Lift</th></tr></thead>
<tbody>
{{range $i, $rule := .Rules}}{{if lt $i $.MaxRows}}<tr>
<td>{{.AntecedentDesc}} <span class="sku-badge">{{.Antecedent}}</span></td>
<td>{{.ConsequentDesc}} <span class="sku-badge">{{.Consequent}}</span></td>
<td>{{printf "%.4f" .Support}}</td>
<td>{{printf "%.4f" .Confidence}}</td>
<td><strong>{{printf "%.2f" .Lift}}</strong></td>
</tr>{{end}}{{end}}
</tbody>
</table>
{{if .Empty}}<p class="empty-note">No qualifying baskets in the dataset.</p>{{end}}
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type rulesTableData struct {
	Rules   []models.AssociationRule
	Empty   bool
	MaxRows int
}

func (h *SSEHandlers) renderRulesTable(rules []models.AssociationRule, empty bool) (string, error) {
	var buf strings.Builder

	if len(rules) > maxTableRows {
		rules = rules[:maxTableRows]
	}

	err := rulesTableTemplate.Execute(&buf, rulesTableData{Rules: rules, Empty: empty, MaxRows: maxTableRows})
	return buf.String(), err
}

func (h *SSEHandlers) HandleRules(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderRulesTable(h.analytics.Rules(maxTableRows), h.analytics.RulesEmpty())
	if err != nil {
		h.logger.Error("render rules table", "error", err)
		return
	}

	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.TopProducts(maxProducts)
	jsonData, err := json.Marshal(map[string]any{
		"productsData": data,
	})
	if err != nil {
		h.logger.Error("marshal products data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="products-content">✅ Product baseline data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandlePromoScenarios(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.Scenarios()
	jsonData, err := json.Marshal(map[string]any{
		"scenariosData": data,
	})
	if err != nil {
		h.logger.Error("marshal scenarios data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="promo-content">✅ Promo scenario data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	// Fresh rules table first
	html, err := h.renderRulesTable(h.analytics.Rules(maxTableRows), h.analytics.RulesEmpty())
	if err != nil {
		h.logger.Error("render rules table", "error", err)
		return
	}
	sse.PatchElements(html)

	// Then products, scenarios and overview in one signal patch
	allSignals, err := json.Marshal(map[string]any{
		"productsData":  h.analytics.TopProducts(maxProducts),
		"scenariosData": h.analytics.Scenarios(),
		"monthlyData":   h.analytics.MonthlyRevenue(),
		"overview":      h.analytics.Overview(),
	})
	if err != nil {
		h.logger.Error("marshal refresh signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
