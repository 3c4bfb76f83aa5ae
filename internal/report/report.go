package report

import (
	"time"

	"github.com/wonny/perfa/internal/attribution"
	"github.com/wonny/perfa/internal/metrics"
	"github.com/wonny/perfa/internal/position"
)

// TradingStats summarizes trading activity inside one horizon. Gross
// figures are in the ledger's 10k-unit scale; the turnover rate is
// annualized and already in percent.
type TradingStats struct {
	Buys            int     `json:"buys"`
	Sells           int     `json:"sells"`
	BuyGross        float64 `json:"buy_gross"`
	SellGross       float64 `json:"sell_gross"`
	Costs           float64 `json:"costs"`
	TurnoverRatePct float64 `json:"turnover_rate_pct"`
}

// HorizonResult is one row of the per-horizon report table
type HorizonResult struct {
	Horizon    Horizon                   `json:"horizon"`
	Metrics    metrics.MetricSet         `json:"metrics"`
	Brinson    *attribution.Result       `json:"brinson,omitempty"`
	Industries []attribution.IndustryRow `json:"industries,omitempty"`

	TopSecurities    []attribution.SecurityPerformance `json:"top_securities,omitempty"`
	BottomSecurities []attribution.SecurityPerformance `json:"bottom_securities,omitempty"`

	Trading TradingStats `json:"trading"`
}

// Report is the full analytics output for one ledger
type Report struct {
	GeneratedAt    time.Time `json:"generated_at"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	BenchmarkName  string    `json:"benchmark_name,omitempty"`
	Truncated      bool      `json:"truncated,omitempty"`

	Snapshots []position.DailySnapshot `json:"snapshots"`
	NAV       []metrics.NAVPoint       `json:"nav"`

	Cumulative []metrics.SeriesValue   `json:"cumulative_returns"`
	Drawdowns  []metrics.SeriesValue   `json:"drawdowns"`
	Monthly    []metrics.MonthlyReturn `json:"monthly_returns"`

	BenchmarkCumulative []metrics.SeriesValue `json:"benchmark_cumulative_returns,omitempty"`
	BenchmarkDrawdowns  []metrics.SeriesValue `json:"benchmark_drawdowns,omitempty"`
	ExcessCumulative    []metrics.SeriesValue `json:"excess_cumulative_returns,omitempty"`

	Concentration []attribution.ConcentrationNode `json:"concentration"`

	Horizons []HorizonResult `json:"horizons"`
}

// ByHorizon returns the result row for a named horizon
func (r *Report) ByHorizon(name string) (HorizonResult, bool) {
	for _, hr := range r.Horizons {
		if hr.Horizon.Name == name {
			return hr, true
		}
	}
	return HorizonResult{}, false
}

// NAVPoints converts a snapshot run into the metrics layer's time series
func NAVPoints(snapshots []position.DailySnapshot) []metrics.NAVPoint {
	points := make([]metrics.NAVPoint, len(snapshots))
	for i, s := range snapshots {
		points[i] = metrics.NAVPoint{
			Date:        s.Date,
			NAV:         s.NAV,
			TotalAssets: s.TotalAssets,
		}
	}
	return points
}
