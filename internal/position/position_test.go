package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/perfa/internal/ledger"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func buy(day, instrument string, qty, price, fee float64) ledger.Transaction {
	return ledger.Transaction{
		Date:        date(day),
		Instrument:  instrument,
		Side:        ledger.SideBuy,
		Quantity:    qty,
		UnitPrice:   price,
		GrossAmount: qty * price,
		Fee:         fee,
	}
}

func sell(day, instrument string, qty, price, fee, tax float64) ledger.Transaction {
	return ledger.Transaction{
		Date:        date(day),
		Instrument:  instrument,
		Side:        ledger.SideSell,
		Quantity:    qty,
		UnitPrice:   price,
		GrossAmount: qty * price,
		Fee:         fee,
		Tax:         tax,
	}
}

func TestPositionAsOfSingleBuy(t *testing.T) {
	txs := []ledger.Transaction{buy("2023-01-02", "600519", 100, 10, 5)}

	pos, err := PositionAsOf(txs, date("2023-01-05"))
	require.NoError(t, err)

	assert.Equal(t, 100.0, pos.Quantity)
	assert.InDelta(t, 1005.0, pos.CostBasis, 1e-9, "buy gross plus fee")
	assert.InDelta(t, 10.05, pos.AvgCost, 1e-9)
}

func TestPositionAsOfCutoffExcludesLaterTrades(t *testing.T) {
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 5),
		sell("2023-01-10", "600519", 100, 12, 0, 0),
	}

	pos, err := PositionAsOf(txs, date("2023-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos.Quantity)

	pos, err = PositionAsOf(txs, date("2023-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pos.Quantity)
	assert.Equal(t, 0.0, pos.CostBasis, "fully closed position carries no cost")
	assert.Equal(t, 0.0, pos.AvgCost)
}

func TestPartialSellReducesPooledCost(t *testing.T) {
	// buy 100@10 with fee 5, sell 50@12: avg cost 10.05,
	// realized = 600 - 502.5 = 97.5, remaining cost 502.5
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 5),
		sell("2023-01-04", "600519", 50, 12, 0, 0),
	}

	pos, err := PositionAsOf(txs, date("2023-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 50.0, pos.Quantity)
	assert.InDelta(t, 502.5, pos.CostBasis, 1e-9)
	assert.InDelta(t, 10.05, pos.AvgCost, 1e-9)

	realized, err := RealizedPnL(txs, date("2023-01-04"))
	require.NoError(t, err)
	assert.InDelta(t, 97.5, realized, 1e-9)
}

func TestSellFeesAndTaxesReduceRealized(t *testing.T) {
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 0),
		sell("2023-01-04", "600519", 100, 12, 3, 1.2),
	}

	realized, err := RealizedPnL(txs, date("2023-01-04"))
	require.NoError(t, err)
	// 1200 - 1000 - 3 - 1.2
	assert.InDelta(t, 195.8, realized, 1e-9)
}

func TestOversellFailsLoudly(t *testing.T) {
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 0),
		sell("2023-01-04", "600519", 150, 12, 0, 0),
	}

	_, err := PositionAsOf(txs, date("2023-01-04"))
	var neg *NegativePositionError
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, "600519", neg.Instrument)
	assert.Equal(t, date("2023-01-04"), neg.Date)
	assert.Equal(t, 100.0, neg.Held)
	assert.Equal(t, 150.0, neg.Sold)

	_, err = RealizedPnL(txs, date("2023-01-04"))
	assert.ErrorAs(t, err, &neg)
}

func TestOversellDetectedMidHistory(t *testing.T) {
	// the oversell happens chronologically even though later buys would
	// cover it
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 50, 10, 0),
		sell("2023-01-03", "600519", 80, 11, 0, 0),
		buy("2023-01-04", "600519", 100, 10, 0),
	}

	_, err := PositionAsOf(txs, date("2023-01-10"))
	var neg *NegativePositionError
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, date("2023-01-03"), neg.Date)
}

func TestTrackerAgreesWithPositionAsOf(t *testing.T) {
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 5),
		buy("2023-01-05", "600519", 50, 11, 2.5),
		sell("2023-01-09", "600519", 80, 12, 1, 0.9),
		buy("2023-01-12", "600519", 30, 9, 1.2),
		sell("2023-01-16", "600519", 60, 10.5, 0.8, 0.6),
	}

	cutoffs := []string{
		"2023-01-01", "2023-01-02", "2023-01-05",
		"2023-01-09", "2023-01-12", "2023-01-16", "2023-02-01",
	}

	for _, cutoff := range cutoffs {
		t.Run(cutoff, func(t *testing.T) {
			want, err := PositionAsOf(txs, date(cutoff))
			require.NoError(t, err)

			tracker := NewTracker("600519")
			for _, tx := range txs {
				if tx.Date.After(date(cutoff)) {
					break
				}
				require.NoError(t, tracker.Apply(tx))
			}
			got := tracker.Position()

			assert.InDelta(t, want.Quantity, got.Quantity, 1e-9)
			assert.InDelta(t, want.CostBasis, got.CostBasis, 1e-9)
			assert.InDelta(t, want.AvgCost, got.AvgCost, 1e-9)
		})
	}
}

func TestRealizedPlusUnrealizedEqualsLiquidationProfit(t *testing.T) {
	txs := []ledger.Transaction{
		buy("2023-01-02", "600519", 100, 10, 5),
		sell("2023-01-09", "600519", 40, 12, 1, 0.5),
		buy("2023-01-12", "600519", 20, 11, 1.1),
	}
	cutoff := date("2023-01-20")
	liquidationPrice := 13.0

	pos, err := PositionAsOf(txs, cutoff)
	require.NoError(t, err)
	realized, err := RealizedPnL(txs, cutoff)
	require.NoError(t, err)

	unrealized := pos.Quantity*liquidationPrice - pos.CostBasis

	// replay once more with a final liquidating sell at the cutoff price
	closing := append(append([]ledger.Transaction{}, txs...),
		sell("2023-01-20", "600519", pos.Quantity, liquidationPrice, 0, 0))
	totalRealized, err := RealizedPnL(closing, cutoff)
	require.NoError(t, err)

	assert.InDelta(t, totalRealized, realized+unrealized, 1e-9)
}

func TestTrackerCashFlow(t *testing.T) {
	tracker := NewTracker("600519")
	require.NoError(t, tracker.Apply(buy("2023-01-02", "600519", 100, 10, 5)))
	require.NoError(t, tracker.Apply(sell("2023-01-04", "600519", 50, 12, 1, 0.6)))

	// -1000 - 5 + 600 - 1 - 0.6
	assert.InDelta(t, -406.6, tracker.CashFlow(), 1e-9)

	buys, sells := tracker.TradeCounts()
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)

	buyGross, sellGross := tracker.Turnover()
	assert.InDelta(t, 1000.0, buyGross, 1e-9)
	assert.InDelta(t, 600.0, sellGross, 1e-9)
}
