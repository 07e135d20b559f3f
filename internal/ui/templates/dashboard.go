// Package templates holds the dashboard page components.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Retail Pricing Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f8f9fa; color: #2c3e50; }
header { background: #1f77b4; color: #fff; padding: 1rem 2rem; }
main { padding: 1.5rem 2rem; display: grid; gap: 1.5rem; }
section { background: #fff; border-radius: 10px; padding: 1.25rem; box-shadow: 0 2px 6px rgba(0,0,0,.08); }
.metric-row { display: flex; gap: 1rem; flex-wrap: wrap; }
.metric-card { flex: 1; min-width: 140px; background: #1f77b4; color: #fff; border-radius: 10px; padding: 1rem; text-align: center; }
.metric-value { font-size: 1.6rem; font-weight: 700; }
.modern-table { width: 100%; border-collapse: collapse; font-size: .9rem; }
.modern-table th, .modern-table td { padding: .5rem .75rem; border-bottom: 1px solid #eee; text-align: left; }
.sku-badge { background: #eef; border-radius: 6px; padding: 0 .35rem; font-size: .75rem; }
.empty-note { color: #856404; }
button { background: #ff7f0e; color: #fff; border: none; border-radius: 20px; padding: .6rem 1.2rem; cursor: pointer; }
</style>
</head>
<body data-on-load="@get('/sse/refresh-all')">
<header>
<h1>🛒 Retail Pricing Dashboard</h1>
<p>Market basket analysis and promotional scenario projections</p>
</header>
<main>
<section>
<div class="metric-row">
<div class="metric-card"><div class="metric-value" data-text="$overview.transactions"></div><div>Transactions</div></div>
<div class="metric-card"><div class="metric-value" data-text="$overview.products"></div><div>Products</div></div>
<div class="metric-card"><div class="metric-value" data-text="$overview.customers"></div><div>Customers</div></div>
<div class="metric-card"><div class="metric-value" data-text="$overview.baskets"></div><div>Baskets</div></div>
<div class="metric-card"><div class="metric-value" data-text="$overview.rules"></div><div>Rules</div></div>
<div class="metric-card"><div class="metric-value" data-text="$overview.scenarios"></div><div>Scenarios</div></div>
</div>
</section>
<section>
<h2>🔗 Top Association Rules</h2>
<div id="rules-content">Loading rules…</div>
</section>
<section>
<h2>🏆 Top Products</h2>
<div id="products-content" data-on-load="@get('/sse/top-products')">Loading product baselines…</div>
</section>
<section>
<h2>🎯 Promo Scenarios</h2>
<div id="promo-content" data-on-load="@get('/sse/promo-scenarios')">Loading promo scenarios…</div>
</section>
<section>
<button data-on-click="@get('/sse/refresh-all')">Refresh all</button>
</section>
</main>
</body>
</html>`

// Dashboard renders the single-page analytics dashboard. The page pulls its
// data through the datastar SSE endpoints after load.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}
