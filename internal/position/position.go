package position

import (
	"fmt"
	"time"

	"github.com/wonny/perfa/internal/ledger"
)

// NegativePositionError reports a sell that would drive the held quantity
// below zero. The ledger is broken upstream; the engine surfaces the
// offending instrument and date instead of clamping.
type NegativePositionError struct {
	Instrument string
	Date       time.Time
	Held       float64
	Sold       float64
}

func (e *NegativePositionError) Error() string {
	return fmt.Sprintf("sell of %.4f %s on %s exceeds held quantity %.4f",
		e.Sold, e.Instrument, e.Date.Format("2006-01-02"), e.Held)
}

// Position is one instrument's holding as-of a cutoff date, under
// weighted-average-cost accounting. CostBasis carries the pooled cost of
// the units still held; AvgCost is CostBasis/Quantity in the same unit.
type Position struct {
	Instrument string
	Quantity   float64
	CostBasis  float64
	AvgCost    float64
}

// PositionAsOf replays one instrument's transactions from scratch and
// returns its position at the cutoff (inclusive). Pure function of the
// inputs; the incremental Tracker must agree with it.
func PositionAsOf(txs []ledger.Transaction, cutoff time.Time) (Position, error) {
	var pos Position
	var quantity, cost float64

	for _, tx := range txs {
		if tx.Date.After(cutoff) {
			break
		}
		pos.Instrument = tx.Instrument

		switch tx.Side {
		case ledger.SideBuy:
			quantity += tx.Quantity
			cost += tx.GrossAmount + tx.Fee
		case ledger.SideSell:
			if tx.Quantity > quantity {
				return Position{}, &NegativePositionError{
					Instrument: tx.Instrument,
					Date:       tx.Date,
					Held:       quantity,
					Sold:       tx.Quantity,
				}
			}
			avgCost := 0.0
			if quantity > 0 {
				avgCost = cost / quantity
			}
			quantity -= tx.Quantity
			cost -= avgCost * tx.Quantity
			if quantity == 0 {
				cost = 0
			}
		}
	}

	pos.Quantity = quantity
	pos.CostBasis = cost
	if quantity > 0 {
		pos.AvgCost = cost / quantity
	}
	return pos, nil
}

// RealizedPnL replays one instrument's transactions and returns the
// accumulated realized profit at the cutoff. Each sell books
// gross - avgCost*qty - fee - tax against the pooled cost at that instant.
func RealizedPnL(txs []ledger.Transaction, cutoff time.Time) (float64, error) {
	t := NewTracker("")
	for _, tx := range txs {
		if tx.Date.After(cutoff) {
			break
		}
		if err := t.Apply(tx); err != nil {
			return 0, err
		}
	}
	return t.Realized(), nil
}
