package report

import (
	"sort"
	"sync"
	"time"

	"github.com/wonny/perfa/internal/attribution"
	"github.com/wonny/perfa/internal/benchmark"
	"github.com/wonny/perfa/internal/ledger"
	"github.com/wonny/perfa/internal/metrics"
	"github.com/wonny/perfa/internal/position"
	"github.com/wonny/perfa/pkg/logger"
)

const breakdownDepth = 10

// Inputs carries everything one report run needs. All fields are treated
// as immutable while the aggregator runs, which is what makes the
// per-horizon fan-out safe.
type Inputs struct {
	Ledger     *ledger.Ledger
	Snapshots  []position.DailySnapshot
	Truncated  bool
	Benchmark  *benchmark.Series
	Industries attribution.IndustryMap

	// BenchmarkComposition optionally gives the index's own per-industry
	// weights and period returns for Brinson. When empty the benchmark is
	// treated as a single pool: every industry is compared to the whole
	// index return, so the excess is pure selection.
	BenchmarkComposition []attribution.GroupStat

	InitialCapital float64
	Metrics        metrics.Config
	Attribution    attribution.Config
}

// Aggregator runs metrics and attribution once per named horizon
// ⭐ SSOT: the per-horizon report table is assembled here only
type Aggregator struct {
	horizons []Horizon
	logger   *logger.Logger
}

func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{horizons: StandardHorizons, logger: log}
}

// Run assembles the full report. Horizons are computed in parallel; each
// worker only reads from in and writes its own result slot.
func (a *Aggregator) Run(in Inputs) *Report {
	rpt := &Report{
		GeneratedAt:    time.Now().UTC(),
		InitialCapital: in.InitialCapital,
		Truncated:      in.Truncated,
		Snapshots:      in.Snapshots,
		NAV:            NAVPoints(in.Snapshots),
	}
	if in.Benchmark != nil {
		rpt.BenchmarkName = in.Benchmark.Name()
	}
	if len(in.Snapshots) == 0 {
		a.logger.Warn("no snapshots to aggregate")
		return rpt
	}

	rpt.StartDate = in.Snapshots[0].Date
	rpt.EndDate = in.Snapshots[len(in.Snapshots)-1].Date
	rpt.Cumulative = metrics.CumulativeReturns(rpt.NAV)
	rpt.Drawdowns = metrics.DrawdownSeries(rpt.NAV)
	rpt.Monthly = metrics.MonthlyReturns(rpt.NAV)
	if in.Benchmark != nil {
		rpt.BenchmarkCumulative = in.Benchmark.CumulativeReturns(rpt.StartDate, rpt.EndDate)
		rpt.BenchmarkDrawdowns = in.Benchmark.Drawdowns(rpt.StartDate, rpt.EndDate)
		rpt.ExcessCumulative = benchmark.ExcessReturns(rpt.Cumulative, rpt.BenchmarkCumulative)
	}
	rpt.Concentration = attribution.Concentration(in.Snapshots[len(in.Snapshots)-1])

	results := make([]HorizonResult, len(a.horizons))
	var wg sync.WaitGroup
	for i, h := range a.horizons {
		wg.Add(1)
		go func(i int, h Horizon) {
			defer wg.Done()
			results[i] = a.runHorizon(h, in, rpt.StartDate, rpt.EndDate)
		}(i, h)
	}
	wg.Wait()

	rpt.Horizons = results
	a.logger.WithFields(map[string]interface{}{
		"snapshots": len(in.Snapshots),
		"horizons":  len(results),
	}).Info("report aggregated")
	return rpt
}

func (a *Aggregator) runHorizon(h Horizon, in Inputs, first, last time.Time) HorizonResult {
	start, end := h.Window(first, last)
	window := snapshotsInWindow(in.Snapshots, start, end)

	result := HorizonResult{Horizon: h}
	if len(window) < 2 {
		result.Metrics = metrics.NeutralMetricSet(start, end)
		return result
	}

	product := NAVPoints(window)
	var bench []metrics.NAVPoint
	if in.Benchmark != nil {
		bench = in.Benchmark.Window(window[0].Date, end)
	}
	result.Metrics = metrics.Compute(product, bench, in.Metrics)

	perf := attribution.PeriodPerformance(window[0], window[len(window)-1], in.Ledger)

	securities := attribution.SecurityBreakdown(perf)
	result.TopSecurities = attribution.Top(securities, breakdownDepth)
	result.BottomSecurities = attribution.Bottom(securities, breakdownDepth)

	endSnap := window[len(window)-1]
	result.Industries = attribution.IndustryBreakdown(perf, endSnap, in.Industries)

	brinson := a.runBrinson(result.Industries, perf, in, window)
	result.Brinson = &brinson

	result.Trading = tradingStats(in.Ledger, window)
	return result
}

// runBrinson builds per-industry product stats from the horizon's
// performance and decomposes the excess over the benchmark.
func (a *Aggregator) runBrinson(industries []attribution.IndustryRow, perf map[string]attribution.SecurityPerformance, in Inputs, window []position.DailySnapshot) attribution.Result {
	product := make([]attribution.GroupStat, 0, len(industries))
	for _, row := range industries {
		stat := attribution.GroupStat{
			Key:    row.Industry,
			Weight: row.WeightPct / 100,
		}
		if base := groupBase(row.Industry, perf, in.Industries); base > 0 {
			stat.Return = row.Profit / base
		}
		product = append(product, stat)
	}

	benchGroups := in.BenchmarkComposition
	if len(benchGroups) == 0 && in.Benchmark != nil {
		indexReturn, err := in.Benchmark.PeriodReturn(window[0].Date, window[len(window)-1].Date)
		if err != nil {
			a.logger.WithError(err).Warn("benchmark return unavailable for attribution")
		} else {
			benchGroups = make([]attribution.GroupStat, len(product))
			for i, p := range product {
				benchGroups[i] = attribution.GroupStat{
					Key:    p.Key,
					Weight: p.Weight,
					Return: indexReturn / 100,
				}
			}
		}
	}
	return attribution.Brinson(product, benchGroups, in.Attribution)
}

// groupBase is the return denominator for one industry: opening market
// value plus any net money put in during the period.
func groupBase(industry string, perf map[string]attribution.SecurityPerformance, industries attribution.IndustryMap) float64 {
	var base float64
	for instrument, p := range perf {
		key := attribution.UnknownIndustry
		if industries != nil {
			if k := industries.Industry(instrument); k != "" {
				key = k
			}
		}
		if key != industry {
			continue
		}
		base += p.BeginMV
		if p.NetCashFlow > 0 {
			base += p.NetCashFlow
		}
	}
	return base
}

func snapshotsInWindow(snapshots []position.DailySnapshot, start, end time.Time) []position.DailySnapshot {
	lo := sort.Search(len(snapshots), func(i int) bool {
		return !snapshots[i].Date.Before(start)
	})
	hi := sort.Search(len(snapshots), func(i int) bool {
		return snapshots[i].Date.After(end)
	})
	return snapshots[lo:hi]
}

// tradingStats totals the window's trades. The turnover rate annualizes
// (buy+sell gross) over the average stock value.
func tradingStats(led *ledger.Ledger, window []position.DailySnapshot) TradingStats {
	var stats TradingStats
	if len(window) == 0 {
		return stats
	}
	start, end := window[0].Date, window[len(window)-1].Date

	for _, tx := range led.All() {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		switch tx.Side {
		case ledger.SideBuy:
			stats.Buys++
			stats.BuyGross += tx.GrossAmount
		case ledger.SideSell:
			stats.Sells++
			stats.SellGross += tx.GrossAmount
		}
		stats.Costs += tx.Fee + tx.Tax
	}

	var avgStock float64
	for _, s := range window {
		avgStock += s.StockValue
	}
	avgStock /= float64(len(window))

	days := metrics.CalendarDays(start, end)
	if avgStock > 0 && days > 0 {
		stats.TurnoverRatePct = (stats.BuyGross + stats.SellGross) / avgStock * (365.0 / float64(days)) * 100
	}
	return stats
}
