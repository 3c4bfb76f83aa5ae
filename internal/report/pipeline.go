package report

import (
	"context"
	"fmt"

	"github.com/wonny/perfa/internal/attribution"
	"github.com/wonny/perfa/internal/benchmark"
	"github.com/wonny/perfa/internal/ledger"
	"github.com/wonny/perfa/internal/metrics"
	"github.com/wonny/perfa/internal/position"
	"github.com/wonny/perfa/internal/pricing"
	"github.com/wonny/perfa/pkg/config"
	"github.com/wonny/perfa/pkg/logger"
	"github.com/wonny/perfa/pkg/redis"
)

// Pipeline runs the full analysis: load the ledger and market data, build
// daily snapshots, aggregate per horizon, optionally persist.
// ⭐ SSOT: the end-to-end report run is wired here only
type Pipeline struct {
	cfg    *config.Config
	repo   *Repository
	cache  *redis.Cache
	logger *logger.Logger
}

// NewPipeline creates a pipeline. repo and cache may be nil for dry runs.
func NewPipeline(cfg *config.Config, repo *Repository, cache *redis.Cache, log *logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, repo: repo, cache: cache, logger: log}
}

// Run executes one full analysis pass and returns the report
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	a := p.cfg.Analytics

	led, err := ledger.LoadCSV(a.LedgerPath, p.logger)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	source, err := pricing.LoadCSV(a.PricePath, p.logger)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	var oracle pricing.Oracle = source
	if p.cfg.PriceService.Enabled {
		oracle = pricing.NewFallbackOracle(source, pricing.NewServiceSource(p.cfg.PriceService, p.logger))
	}
	if p.cache != nil {
		oracle = pricing.NewCachedOracle(oracle, p.cache)
	}
	memo := pricing.NewMemoOracle(oracle)

	calendar := source.Calendar()
	end := led.LastDate()
	if last, ok := calendar.LastDay(); ok && last.After(end) {
		end = last
	}
	dates := calendar.Range(led.FirstDate(), end)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading days between %s and %s",
			led.FirstDate().Format("2006-01-02"), end.Format("2006-01-02"))
	}

	builder := position.NewSnapshotBuilder(led, memo, a.InitialCapital, p.logger)
	built, err := builder.Build(ctx, dates)
	if err != nil {
		return nil, fmt.Errorf("build snapshots: %w", err)
	}
	if built.Truncated {
		p.logger.WithField("snapshots", len(built.Snapshots)).Warn("Snapshot build truncated by cancellation")
	}

	in := Inputs{
		Ledger:         led,
		Snapshots:      built.Snapshots,
		Truncated:      built.Truncated,
		InitialCapital: a.InitialCapital,
		Metrics: metrics.Config{
			RiskFreeRate:       a.RiskFreeRate,
			AnnualizationDays:  a.AnnualizationDays,
			TradingDaysPerYear: a.TradingDaysPerYear,
		},
	}

	if a.BenchmarkPath != "" {
		series, err := benchmark.LoadCSV(a.BenchmarkPath)
		if err != nil {
			return nil, fmt.Errorf("load benchmark: %w", err)
		}
		in.Benchmark = series
	}
	if a.IndustryPath != "" {
		industries, err := attribution.LoadIndustryCSV(a.IndustryPath)
		if err != nil {
			return nil, fmt.Errorf("load industries: %w", err)
		}
		in.Industries = industries
	}

	rpt := NewAggregator(p.logger).Run(in)

	if p.repo != nil {
		if err := p.persist(ctx, rpt); err != nil {
			return nil, err
		}
	}
	return rpt, nil
}

// Generate satisfies the scheduler's job contract
func (p *Pipeline) Generate(ctx context.Context) error {
	_, err := p.Run(ctx)
	return err
}

func (p *Pipeline) persist(ctx context.Context, rpt *Report) error {
	if err := p.repo.SaveSnapshots(ctx, rpt.Snapshots); err != nil {
		return fmt.Errorf("persist snapshots: %w", err)
	}
	if err := p.repo.SaveReport(ctx, rpt); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	if err := p.repo.SaveHorizonMetrics(ctx, rpt); err != nil {
		return fmt.Errorf("persist horizon metrics: %w", err)
	}

	if p.cache != nil {
		for _, hr := range rpt.Horizons {
			if err := p.cache.Delete(ctx, redis.ReportKey(hr.Horizon.Name)); err != nil {
				p.logger.WithError(err).Warn("Report cache invalidation failed")
			}
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"snapshots": len(rpt.Snapshots),
		"end_date":  rpt.EndDate.Format("2006-01-02"),
	}).Info("Report persisted")
	return nil
}
