package ledger

import (
	"fmt"
	"strings"
	"time"
)

// MonetaryScale converts raw currency amounts to the 10k-unit scale used
// for every monetary figure downstream (cost basis, cash, market value).
const MonetaryScale = 10000.0

// Side is the direction of a transaction
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a raw side token from the ledger export.
// Chinese export files use 买入/卖出.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "b", "买入":
		return SideBuy, nil
	case "sell", "s", "卖出":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown transaction side %q", raw)
	}
}

// Transaction is one immutable ledger row. Monetary fields (GrossAmount,
// Fee, Tax) are already divided by MonetaryScale at ingestion; Quantity and
// UnitPrice stay in natural units.
type Transaction struct {
	Date        time.Time
	Instrument  string
	Name        string
	Side        Side
	Quantity    float64
	UnitPrice   float64
	GrossAmount float64
	Fee         float64
	Tax         float64

	// Seq preserves insertion order for same-day ties
	Seq int
}

// Validate checks the invariants the engine assumes of ingested rows
func (t Transaction) Validate() error {
	if t.Instrument == "" {
		return fmt.Errorf("transaction on %s has empty instrument", t.Date.Format("2006-01-02"))
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("transaction %s on %s has invalid side %q",
			t.Instrument, t.Date.Format("2006-01-02"), t.Side)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("transaction %s on %s has non-positive quantity %f",
			t.Instrument, t.Date.Format("2006-01-02"), t.Quantity)
	}
	if t.UnitPrice <= 0 {
		return fmt.Errorf("transaction %s on %s has non-positive unit price %f",
			t.Instrument, t.Date.Format("2006-01-02"), t.UnitPrice)
	}
	if t.Fee < 0 || t.Tax < 0 {
		return fmt.Errorf("transaction %s on %s has negative fee or tax",
			t.Instrument, t.Date.Format("2006-01-02"))
	}
	return nil
}
