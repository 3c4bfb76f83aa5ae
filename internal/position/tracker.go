package position

import (
	"github.com/wonny/perfa/internal/ledger"
)

// Tracker is the incremental counterpart of PositionAsOf: it carries one
// instrument's running (quantity, pooled cost, realized P&L) across an
// ascending replay. The snapshot builder keeps one Tracker per instrument
// so a 3,000-date horizon costs one pass over the ledger, not 3,000.
type Tracker struct {
	instrument string
	name       string

	quantity float64
	cost     float64
	realized float64

	// cash reconciliation aggregates
	buyGross  float64
	buyFees   float64
	sellGross float64
	sellFees  float64
	sellTaxes float64

	buys  int
	sells int
}

// NewTracker starts an empty tracker. The instrument id is taken from the
// first applied transaction when empty.
func NewTracker(instrument string) *Tracker {
	return &Tracker{instrument: instrument}
}

// Apply folds the next transaction into the running state. Transactions
// must arrive in replay order.
func (t *Tracker) Apply(tx ledger.Transaction) error {
	if t.instrument == "" {
		t.instrument = tx.Instrument
	}
	if tx.Name != "" {
		t.name = tx.Name
	}

	switch tx.Side {
	case ledger.SideBuy:
		t.quantity += tx.Quantity
		t.cost += tx.GrossAmount + tx.Fee
		t.buyGross += tx.GrossAmount
		t.buyFees += tx.Fee
		t.buys++

	case ledger.SideSell:
		if tx.Quantity > t.quantity {
			return &NegativePositionError{
				Instrument: tx.Instrument,
				Date:       tx.Date,
				Held:       t.quantity,
				Sold:       tx.Quantity,
			}
		}

		avgCost := 0.0
		if t.quantity > 0 {
			avgCost = t.cost / t.quantity
		}
		saleCost := avgCost * tx.Quantity

		t.realized += tx.GrossAmount - saleCost - tx.Fee - tx.Tax
		t.quantity -= tx.Quantity
		t.cost -= saleCost
		if t.quantity == 0 {
			t.cost = 0
		}

		t.sellGross += tx.GrossAmount
		t.sellFees += tx.Fee
		t.sellTaxes += tx.Tax
		t.sells++
	}

	return nil
}

// Position returns the current holding
func (t *Tracker) Position() Position {
	pos := Position{
		Instrument: t.instrument,
		Quantity:   t.quantity,
		CostBasis:  t.cost,
	}
	if t.quantity > 0 {
		pos.AvgCost = t.cost / t.quantity
	}
	return pos
}

// Name returns the last seen display name for the instrument
func (t *Tracker) Name() string {
	return t.name
}

// Realized returns the accumulated realized P&L
func (t *Tracker) Realized() float64 {
	return t.realized
}

// CashFlow returns the tracker's contribution to the portfolio cash
// reconciliation: -buys (gross+fee) +sells (gross) -sell costs (fee+tax).
func (t *Tracker) CashFlow() float64 {
	return -t.buyGross - t.buyFees + t.sellGross - t.sellFees - t.sellTaxes
}

// Turnover returns the traded gross amounts (buy, sell)
func (t *Tracker) Turnover() (buyGross, sellGross float64) {
	return t.buyGross, t.sellGross
}

// TradeCounts returns the number of buys and sells applied
func (t *Tracker) TradeCounts() (buys, sells int) {
	return t.buys, t.sells
}
