package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/perfa/internal/position"
)

// Repository handles report persistence
// ⭐ SSOT: analytics rows are written and read here only
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot upserts one daily valuation row. Holdings go to JSONB.
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot position.DailySnapshot) error {
	holdingsJSON, err := json.Marshal(snapshot.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	query := `
		INSERT INTO analytics.daily_snapshots (
			date, stock_value, cash, total_assets, nav,
			realized_to_date, unrealized, holdings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			stock_value = EXCLUDED.stock_value,
			cash = EXCLUDED.cash,
			total_assets = EXCLUDED.total_assets,
			nav = EXCLUDED.nav,
			realized_to_date = EXCLUDED.realized_to_date,
			unrealized = EXCLUDED.unrealized,
			holdings = EXCLUDED.holdings
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.Date, snapshot.StockValue, snapshot.Cash, snapshot.TotalAssets,
		snapshot.NAV, snapshot.RealizedToDate, snapshot.Unrealized, holdingsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// SaveSnapshots writes a snapshot run inside one transaction
func (r *Repository) SaveSnapshots(ctx context.Context, snapshots []position.DailySnapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, snapshot := range snapshots {
		holdingsJSON, err := json.Marshal(snapshot.Holdings)
		if err != nil {
			return fmt.Errorf("failed to marshal holdings: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO analytics.daily_snapshots (
				date, stock_value, cash, total_assets, nav,
				realized_to_date, unrealized, holdings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (date) DO UPDATE SET
				stock_value = EXCLUDED.stock_value,
				cash = EXCLUDED.cash,
				total_assets = EXCLUDED.total_assets,
				nav = EXCLUDED.nav,
				realized_to_date = EXCLUDED.realized_to_date,
				unrealized = EXCLUDED.unrealized,
				holdings = EXCLUDED.holdings
		`,
			snapshot.Date, snapshot.StockValue, snapshot.Cash, snapshot.TotalAssets,
			snapshot.NAV, snapshot.RealizedToDate, snapshot.Unrealized, holdingsJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", snapshot.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}
	return nil
}

// GetSnapshotHistory retrieves snapshots for a date range
func (r *Repository) GetSnapshotHistory(ctx context.Context, startDate, endDate time.Time) ([]position.DailySnapshot, error) {
	query := `
		SELECT date, stock_value, cash, total_assets, nav,
		       realized_to_date, unrealized, holdings
		FROM analytics.daily_snapshots
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot history: %w", err)
	}
	defer rows.Close()

	var snapshots []position.DailySnapshot
	for rows.Next() {
		var snapshot position.DailySnapshot
		var holdingsJSON []byte
		if err := rows.Scan(
			&snapshot.Date, &snapshot.StockValue, &snapshot.Cash, &snapshot.TotalAssets,
			&snapshot.NAV, &snapshot.RealizedToDate, &snapshot.Unrealized, &holdingsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal(holdingsJSON, &snapshot.Holdings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// SaveReport upserts the whole report document keyed by its end date
func (r *Repository) SaveReport(ctx context.Context, rpt *Report) error {
	doc, err := json.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO analytics.reports (end_date, generated_at, report)
		VALUES ($1, $2, $3)
		ON CONFLICT (end_date) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			report = EXCLUDED.report
	`
	_, err = r.pool.Exec(ctx, query, rpt.EndDate, rpt.GeneratedAt, doc)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetLatestReport retrieves the most recent report, nil when none exists
func (r *Repository) GetLatestReport(ctx context.Context) (*Report, error) {
	query := `
		SELECT report
		FROM analytics.reports
		ORDER BY end_date DESC
		LIMIT 1
	`

	var doc []byte
	err := r.pool.QueryRow(ctx, query).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	var rpt Report
	if err := json.Unmarshal(doc, &rpt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &rpt, nil
}

// SaveHorizonMetrics upserts the flat per-horizon metric rows for one
// report so dashboards can query without unpacking the JSON document.
func (r *Repository) SaveHorizonMetrics(ctx context.Context, rpt *Report) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, hr := range rpt.Horizons {
		m := hr.Metrics
		_, err := tx.Exec(ctx, `
			INSERT INTO analytics.horizon_metrics (
				end_date, horizon, start_date, days, points,
				period_return, annualized_return, volatility, max_drawdown,
				sharpe, sortino, calmar, beta, information_ratio,
				weekly_win_rate, monthly_win_rate, benchmark_return,
				turnover_rate
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			          $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (end_date, horizon) DO UPDATE SET
				start_date = EXCLUDED.start_date,
				days = EXCLUDED.days,
				points = EXCLUDED.points,
				period_return = EXCLUDED.period_return,
				annualized_return = EXCLUDED.annualized_return,
				volatility = EXCLUDED.volatility,
				max_drawdown = EXCLUDED.max_drawdown,
				sharpe = EXCLUDED.sharpe,
				sortino = EXCLUDED.sortino,
				calmar = EXCLUDED.calmar,
				beta = EXCLUDED.beta,
				information_ratio = EXCLUDED.information_ratio,
				weekly_win_rate = EXCLUDED.weekly_win_rate,
				monthly_win_rate = EXCLUDED.monthly_win_rate,
				benchmark_return = EXCLUDED.benchmark_return,
				turnover_rate = EXCLUDED.turnover_rate
		`,
			rpt.EndDate, hr.Horizon.Name, m.StartDate, m.Days, m.Points,
			m.PeriodReturn, m.AnnualizedReturn, m.Volatility, m.MaxDrawdown,
			m.Sharpe, m.Sortino, m.Calmar, m.Beta, m.InformationRatio,
			m.WeeklyWinRate, m.MonthlyWinRate, m.BenchmarkReturn,
			hr.Trading.TurnoverRatePct,
		)
		if err != nil {
			return fmt.Errorf("failed to save horizon %s: %w", hr.Horizon.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit horizon metrics: %w", err)
	}
	return nil
}
