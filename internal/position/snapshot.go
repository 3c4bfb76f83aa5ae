package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/perfa/internal/ledger"
	"github.com/wonny/perfa/internal/pricing"
	"github.com/wonny/perfa/pkg/logger"
)

// HoldingValuation is one instrument's position with its valuation on a
// snapshot date. Monetary fields are in the ledger's 10k-unit scale.
type HoldingValuation struct {
	Instrument    string  `json:"instrument"`
	Name          string  `json:"name,omitempty"`
	Quantity      float64 `json:"quantity"`
	CostBasis     float64 `json:"cost_basis"`
	AvgCost       float64 `json:"avg_cost"`
	Price         float64 `json:"price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// DailySnapshot is the portfolio-wide valuation for one date.
// Invariant: TotalAssets = StockValue + Cash and NAV = TotalAssets /
// initial capital.
type DailySnapshot struct {
	Date           time.Time                   `json:"date"`
	Holdings       map[string]HoldingValuation `json:"holdings"`
	StockValue     float64                     `json:"stock_value"`
	Cash           float64                     `json:"cash"`
	TotalAssets    float64                     `json:"total_assets"`
	NAV            float64                     `json:"nav"`
	RealizedToDate float64                     `json:"realized_to_date"`
	Unrealized     float64                     `json:"unrealized"`
}

// BuildResult is a snapshot series plus a truncation flag set when the
// build was cancelled between dates. Every produced snapshot is valid on
// its own.
type BuildResult struct {
	Snapshots []DailySnapshot
	Truncated bool
}

// SnapshotBuilder derives daily portfolio snapshots from the ledger and a
// price oracle.
type SnapshotBuilder struct {
	ledger         *ledger.Ledger
	oracle         pricing.Oracle
	initialCapital float64
	logger         *logger.Logger
}

// NewSnapshotBuilder wires a builder for one report run
func NewSnapshotBuilder(l *ledger.Ledger, oracle pricing.Oracle, initialCapital float64, log *logger.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{
		ledger:         l,
		oracle:         oracle,
		initialCapital: initialCapital,
		logger:         log,
	}
}

// MarketValue converts quantity x natural-unit price into the 10k scale
func MarketValue(quantity, price float64) float64 {
	return quantity * price / ledger.MonetaryScale
}

// Build walks the given ascending dates once, carrying incremental
// per-instrument trackers across iterations. Cancellation is checked
// between dates: the partial series is returned with Truncated set.
func (b *SnapshotBuilder) Build(ctx context.Context, dates []time.Time) (*BuildResult, error) {
	result := &BuildResult{Snapshots: make([]DailySnapshot, 0, len(dates))}

	trackers := make(map[string]*Tracker)
	all := b.ledger.All()
	next := 0

	for _, date := range dates {
		if ctx.Err() != nil {
			b.logger.WithField("date", date.Format("2006-01-02")).
				Warn("Snapshot build cancelled, returning partial series")
			result.Truncated = true
			return result, nil
		}

		for next < len(all) && !all[next].Date.After(date) {
			tx := all[next]
			tracker, ok := trackers[tx.Instrument]
			if !ok {
				tracker = NewTracker(tx.Instrument)
				trackers[tx.Instrument] = tracker
			}
			if err := tracker.Apply(tx); err != nil {
				return nil, fmt.Errorf("replay failed: %w", err)
			}
			next++
		}

		snap, err := b.value(ctx, date, trackers)
		if err != nil {
			return nil, err
		}
		result.Snapshots = append(result.Snapshots, snap)
	}

	return result, nil
}

// value prices the current tracker state into one snapshot
func (b *SnapshotBuilder) value(ctx context.Context, date time.Time, trackers map[string]*Tracker) (DailySnapshot, error) {
	snap := DailySnapshot{
		Date:     date,
		Holdings: make(map[string]HoldingValuation),
	}

	// Map iteration order is random; summing in a fixed instrument order
	// keeps float accumulation, and so NAV, identical across rebuilds.
	instruments := make([]string, 0, len(trackers))
	for instrument := range trackers {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)

	cash := b.initialCapital
	for _, instrument := range instruments {
		tracker := trackers[instrument]
		cash += tracker.CashFlow()
		snap.RealizedToDate += tracker.Realized()

		pos := tracker.Position()
		if pos.Quantity <= 0 {
			continue
		}

		price, err := b.oracle.Price(ctx, instrument, date)
		if err != nil {
			return DailySnapshot{}, fmt.Errorf("pricing %s on %s: %w",
				instrument, date.Format("2006-01-02"), err)
		}

		mv := MarketValue(pos.Quantity, price)
		holding := HoldingValuation{
			Instrument:    instrument,
			Name:          tracker.Name(),
			Quantity:      pos.Quantity,
			CostBasis:     pos.CostBasis,
			AvgCost:       pos.AvgCost,
			Price:         price,
			MarketValue:   mv,
			UnrealizedPnL: mv - pos.CostBasis,
		}
		snap.Holdings[instrument] = holding
		snap.StockValue += mv
		snap.Unrealized += holding.UnrealizedPnL
	}

	snap.Cash = cash
	snap.TotalAssets = snap.StockValue + snap.Cash
	snap.NAV = snap.TotalAssets / b.initialCapital
	return snap, nil
}

// SnapshotAt recomputes one date's snapshot from scratch, replaying each
// instrument independently in parallel. Meant for auditing a single date;
// Build is the cheap path for full horizons. The two must agree.
func (b *SnapshotBuilder) SnapshotAt(ctx context.Context, date time.Time) (DailySnapshot, error) {
	instruments := b.ledger.Instruments()

	trackers := make(map[string]*Tracker, len(instruments))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, instrument := range instruments {
		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()

			tracker := NewTracker(instrument)
			for _, tx := range b.ledger.ByInstrument(instrument) {
				if tx.Date.After(date) {
					break
				}
				if err := tracker.Apply(tx); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}

			mu.Lock()
			trackers[instrument] = tracker
			mu.Unlock()
		}(instrument)
	}
	wg.Wait()

	if firstErr != nil {
		return DailySnapshot{}, fmt.Errorf("replay failed: %w", firstErr)
	}

	return b.value(ctx, date, trackers)
}

// SortedHoldings returns the snapshot's holdings ordered by market value,
// largest first, with instrument id as the tiebreaker.
func (s DailySnapshot) SortedHoldings() []HoldingValuation {
	out := make([]HoldingValuation, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketValue != out[j].MarketValue {
			return out[i].MarketValue > out[j].MarketValue
		}
		return out[i].Instrument < out[j].Instrument
	})
	return out
}
