package services

import (
	"bufio"
	"cmp"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mba-dashboard/internal/basket"
	"mba-dashboard/internal/config"
	"mba-dashboard/internal/models"
	"mba-dashboard/internal/observability"
	"mba-dashboard/internal/promo"
	"mba-dashboard/internal/rules"
)

const (
	batchSize    = 10000
	maxWorkers   = 10
	cacheVersion = "v2"
	cacheDir     = ".cache"
)

// PrecomputedData is everything the dashboard reads, derived in one batch
// run over the cleaned transactions. Nothing in it mutates after a run.
type PrecomputedData struct {
	Baselines      []models.ProductBaseline `json:"baselines"`
	MonthlyRevenue []models.MonthlyRevenue  `json:"monthly_revenue"`
	Rules          []models.AssociationRule `json:"rules"`
	RulesEmpty     bool                     `json:"rules_empty"`
	Scenarios      []models.PromoScenario   `json:"scenarios"`
	Skipped        []models.SkippedScenario `json:"skipped"`
	Quality        models.QualityReport     `json:"quality"`
	Customers      int                      `json:"customers"`
	LastModified   time.Time                `json:"last_modified"`
	RecordCount    int64                    `json:"record_count"`
}

// Analytics loads the transaction CSV, runs the full analysis pipeline
// (baselines, baskets, association rules, promo scenario grid) and serves
// the precomputed results to the handlers.
type Analytics struct {
	mu               sync.RWMutex
	precomputed      *PrecomputedData
	csvPath          string
	recordsProcessed atomic.Int64
	analysis         config.AnalysisConfig
	promo            config.PromoConfig
	logger           *slog.Logger
}

func NewAnalytics(analysis config.AnalysisConfig, promoCfg config.PromoConfig) *Analytics {
	return &Analytics{
		precomputed: &PrecomputedData{},
		analysis:    analysis,
		promo:       promoCfg,
		logger:      slog.Default(),
	}
}

// SetData runs the pipeline over in-memory transactions, bypassing the CSV
// loader. Used by tests and embedders that clean data elsewhere.
func (a *Analytics) SetData(data []models.Transaction) error {
	precomputed, err := a.computeAnalytics(context.Background(), data, models.QualityReport{
		TotalLines: int64(len(data)),
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.precomputed = precomputed
	a.mu.Unlock()

	a.recordsProcessed.Store(precomputed.RecordCount)
	return nil
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.csvPath = filename

	ctx, span := observability.StartSpan(ctx, "analytics.load_csv")
	defer span.Finish()
	span.SetTag("filename", filename)

	// Check if we have a valid cache
	if cached, err := a.loadFromCache(filename); err == nil {
		fileInfo, err := os.Stat(filename)
		if err == nil && fileInfo.ModTime().Before(cached.LastModified) {
			a.mu.Lock()
			a.precomputed = cached
			a.mu.Unlock()
			a.recordsProcessed.Store(cached.RecordCount)
			a.logger.Info("loaded from cache", "records", cached.RecordCount)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", filename)

	if err := a.streamProcessCSV(ctx, filename); err != nil {
		span.SetError(err)
		return fmt.Errorf("process csv: %w", err)
	}

	if err := a.saveToCache(filename); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	count := a.recordsProcessed.Load()
	span.SetTag("records", fmt.Sprint(count))
	a.logger.Info("analysis complete",
		"records", count,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

func (a *Analytics) streamProcessCSV(ctx context.Context, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024) // 10MB buffer

	// Skip header
	if !scanner.Scan() {
		return fmt.Errorf("empty file")
	}

	var (
		mu      sync.Mutex
		lines   []models.Transaction
		quality models.QualityReport
	)

	batch := make([]string, 0, batchSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch = append(batch, scanner.Text())

		if len(batch) >= batchSize {
			if err := a.parseBatch(ctx, batch, &mu, &lines, &quality); err != nil {
				return err
			}
			batch = batch[:0] // Reset batch
		}
	}

	if len(batch) > 0 {
		if err := a.parseBatch(ctx, batch, &mu, &lines, &quality); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}

	if len(lines) == 0 {
		return fmt.Errorf("no valid records found")
	}

	precomputed, err := a.computeAnalytics(ctx, lines, quality)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.precomputed = precomputed
	a.mu.Unlock()

	a.recordsProcessed.Store(precomputed.RecordCount)
	return nil
}

// parseBatch fans line parsing out over a bounded worker pool, then folds
// the batch's valid lines and defect counts into the shared accumulators
// under one lock.
func (a *Analytics) parseBatch(ctx context.Context, batch []string, mu *sync.Mutex,
	lines *[]models.Transaction, quality *models.QualityReport) error {

	var wg errgroup.Group
	wg.SetLimit(maxWorkers)

	type parsedLine struct {
		tx     models.Transaction
		defect defectKind
	}

	parsed := make(chan parsedLine, len(batch))

	for _, line := range batch {
		wg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			tx, defect := parseTransaction(strings.Split(line, ","))
			parsed <- parsedLine{tx: tx, defect: defect}
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		close(parsed)
		return err
	}
	close(parsed)

	localLines := make([]models.Transaction, 0, len(batch))
	var local models.QualityReport
	local.TotalLines = int64(len(batch))

	for p := range parsed {
		switch p.defect {
		case defectNone:
			localLines = append(localLines, p.tx)
			local.ValidLines++
		case defectMissingOrderID:
			local.MissingOrderID++
		case defectMissingProductID:
			local.MissingProductID++
		case defectUnparsable:
			local.UnparsableLines++
		}
	}

	mu.Lock()
	*lines = append(*lines, localLines...)
	quality.TotalLines += local.TotalLines
	quality.ValidLines += local.ValidLines
	quality.MissingOrderID += local.MissingOrderID
	quality.MissingProductID += local.MissingProductID
	quality.UnparsableLines += local.UnparsableLines
	mu.Unlock()

	return nil
}

type defectKind int

const (
	defectNone defectKind = iota
	defectMissingOrderID
	defectMissingProductID
	defectUnparsable
)

// parseTransaction reads one row of the cleaned export:
// invoice, stock_code, description, quantity, invoice_date, price,
// customer_id, country. Malformed rows are classified, not fatal.
func parseTransaction(record []string) (models.Transaction, defectKind) {
	if len(record) < 8 {
		return models.Transaction{}, defectUnparsable
	}

	orderID := strings.TrimSpace(record[0])
	productID := strings.TrimSpace(record[1])
	if orderID == "" {
		return models.Transaction{}, defectMissingOrderID
	}
	if productID == "" {
		return models.Transaction{}, defectMissingProductID
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return models.Transaction{}, defectUnparsable
	}

	rawDate := strings.TrimSpace(record[4])
	invoiceDate, err := time.Parse("2006-01-02 15:04:05", rawDate)
	if err != nil {
		invoiceDate, err = time.Parse("2006-01-02", rawDate)
		if err != nil {
			return models.Transaction{}, defectUnparsable
		}
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
	if err != nil {
		return models.Transaction{}, defectUnparsable
	}

	return models.Transaction{
		OrderID:     orderID,
		ProductID:   productID,
		Description: strings.TrimSpace(record[2]),
		Quantity:    quantity,
		InvoiceDate: invoiceDate,
		UnitPrice:   price,
		CustomerID:  strings.TrimSpace(record[6]),
		Country:     strings.TrimSpace(record[7]),
	}, defectNone
}

// computeAnalytics runs every analysis stage over the cleaned lines: product
// baselines, monthly revenue, basket building, rule mining and the default
// promo scenario grid. Each stage reads the previous stage's output only.
func (a *Analytics) computeAnalytics(ctx context.Context, lines []models.Transaction, quality models.QualityReport) (*PrecomputedData, error) {
	type productAgg struct {
		description string
		revenue     float64
		quantity    int
	}

	products := make(map[string]*productAgg)
	monthRevenue := make(map[string]float64)
	monthOrders := make(map[string]map[string]struct{})
	customers := make(map[string]struct{})

	for _, tx := range lines {
		// Mirror the basket builder's exclusion rule so baselines and
		// baskets describe the same population.
		if tx.OrderID == "" || tx.ProductID == "" {
			continue
		}

		agg := products[tx.ProductID]
		if agg == nil {
			agg = &productAgg{description: tx.Description}
			products[tx.ProductID] = agg
		}
		if agg.description == "" {
			agg.description = tx.Description
		}
		agg.revenue += tx.Revenue()
		agg.quantity += tx.Quantity

		month := tx.InvoiceDate.Format("2006-01")
		monthRevenue[month] += tx.Revenue()
		if monthOrders[month] == nil {
			monthOrders[month] = make(map[string]struct{})
		}
		monthOrders[month][tx.OrderID] = struct{}{}

		if tx.CustomerID != "" {
			customers[tx.CustomerID] = struct{}{}
		}
	}

	set := basket.Build(lines)
	quality.MissingOrderID += set.MissingOrderID
	quality.MissingProductID += set.MissingProductID
	quality.SingleItemBaskets = set.SingleItem
	quality.Baskets = set.Len()
	if quality.ValidLines == 0 {
		quality.ValidLines = int64(len(lines)) - set.MissingOrderID - set.MissingProductID
	}

	// Distinct orders per product come from the deduplicated baskets.
	orderCounts := make(map[string]int)
	for _, items := range set.Baskets {
		for id := range items {
			orderCounts[id]++
		}
	}

	baselines := make([]models.ProductBaseline, 0, len(products))
	for id, agg := range products {
		b := models.ProductBaseline{
			ProductID:   id,
			Description: agg.description,
			Revenue:     agg.revenue,
			Quantity:    agg.quantity,
			Orders:      orderCounts[id],
		}
		if agg.quantity != 0 {
			b.AvgPrice = agg.revenue / float64(agg.quantity)
		}
		b.UnitCost = b.AvgPrice * a.analysis.CostRatio
		b.Margin = b.Revenue - b.UnitCost*float64(b.Quantity)
		baselines = append(baselines, b)
	}
	slices.SortFunc(baselines, func(x, y models.ProductBaseline) int {
		if c := cmp.Compare(y.Revenue, x.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(x.ProductID, y.ProductID)
	})
	for i := range baselines {
		baselines[i].Rank = i + 1
	}

	monthly := make([]models.MonthlyRevenue, 0, len(monthRevenue))
	for month, revenue := range monthRevenue {
		monthly = append(monthly, models.MonthlyRevenue{
			Month:   month,
			Revenue: revenue,
			Orders:  len(monthOrders[month]),
		})
	}
	slices.SortFunc(monthly, func(x, y models.MonthlyRevenue) int {
		return cmp.Compare(x.Month, y.Month)
	})

	ruleResult, err := rules.Mine(ctx, set, rules.Config{
		MinSupport:    a.analysis.MinSupport,
		MinConfidence: a.analysis.MinConfidence,
		MaxRules:      a.analysis.MaxRules,
	})
	if err != nil {
		return nil, fmt.Errorf("mine rules: %w", err)
	}

	descriptions := make(map[string]string, len(products))
	for id, agg := range products {
		descriptions[id] = agg.description
	}
	for i := range ruleResult.Rules {
		ruleResult.Rules[i].AntecedentDesc = descriptions[ruleResult.Rules[i].Antecedent]
		ruleResult.Rules[i].ConsequentDesc = descriptions[ruleResult.Rules[i].Consequent]
	}

	sim := promo.NewSimulator(baselines, ruleResult.Rules)
	grid := promo.Grid(baselines, a.promo.TopProducts, a.promo.DiscountLevels, a.promo.Elasticity)
	batch, err := sim.EvaluateBatch(ctx, grid)
	if err != nil {
		return nil, fmt.Errorf("evaluate scenarios: %w", err)
	}

	return &PrecomputedData{
		Baselines:      baselines,
		MonthlyRevenue: monthly,
		Rules:          ruleResult.Rules,
		RulesEmpty:     ruleResult.Empty,
		Scenarios:      batch.Scenarios,
		Skipped:        batch.Skipped,
		Quality:        quality,
		Customers:      len(customers),
		LastModified:   time.Now(),
		RecordCount:    int64(len(lines)),
	}, nil
}

// Simulate evaluates an ad-hoc scenario batch against the loaded baselines
// and mined rules. Invalid or unservable requests come back in the skip
// report rather than failing the batch.
func (a *Analytics) Simulate(ctx context.Context, reqs []models.PromoRequest) (*promo.BatchResult, error) {
	a.mu.RLock()
	sim := promo.NewSimulator(a.precomputed.Baselines, a.precomputed.Rules)
	a.mu.RUnlock()

	return sim.EvaluateBatch(ctx, reqs)
}

// Cache management
func (a *Analytics) getCacheFilename(csvPath string) string {
	return fmt.Sprintf("%s/%s_%s.gob", cacheDir, strings.ReplaceAll(csvPath, "/", "_"), cacheVersion)
}

func (a *Analytics) saveToCache(csvPath string) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	filename := a.getCacheFilename(csvPath)
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	a.mu.RLock()
	defer a.mu.RUnlock()

	encoder := gob.NewEncoder(file)
	return encoder.Encode(a.precomputed)
}

func (a *Analytics) loadFromCache(csvPath string) (*PrecomputedData, error) {
	filename := a.getCacheFilename(csvPath)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data PrecomputedData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, err
	}

	return &data, nil
}

// Fast query methods - O(1) snapshots of precomputed data
func (a *Analytics) TopProducts(limit int) []models.ProductBaseline {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.precomputed.Baselines) <= limit {
		return a.precomputed.Baselines
	}
	return a.precomputed.Baselines[:limit]
}

func (a *Analytics) MonthlyRevenue() []models.MonthlyRevenue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.MonthlyRevenue
}

func (a *Analytics) Rules(limit int) []models.AssociationRule {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 || len(a.precomputed.Rules) <= limit {
		return a.precomputed.Rules
	}
	return a.precomputed.Rules[:limit]
}

func (a *Analytics) RulesEmpty() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.RulesEmpty
}

func (a *Analytics) Scenarios() []models.PromoScenario {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Scenarios
}

func (a *Analytics) Quality() models.QualityReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Quality
}

func (a *Analytics) Overview() models.OverviewStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return models.OverviewStats{
		Transactions: a.precomputed.RecordCount,
		Products:     len(a.precomputed.Baselines),
		Customers:    a.precomputed.Customers,
		Baskets:      a.precomputed.Quality.Baskets,
		Rules:        len(a.precomputed.Rules),
		Scenarios:    len(a.precomputed.Scenarios),
	}
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":   a.precomputed.RecordCount,
		"last_processed": a.precomputed.LastModified,
		"products":       len(a.precomputed.Baselines),
		"baskets":        a.precomputed.Quality.Baskets,
		"rules":          len(a.precomputed.Rules),
		"scenarios":      len(a.precomputed.Scenarios),
		"customers":      a.precomputed.Customers,
	}
}
