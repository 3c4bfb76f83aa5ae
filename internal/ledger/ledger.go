package ledger

import (
	"fmt"
	"sort"
	"time"
)

// Ledger is the immutable, chronologically ordered transaction history for
// one portfolio. Ordering is (date, insertion order) so same-day trades
// replay in the order they were recorded.
type Ledger struct {
	txs          []Transaction
	byInstrument map[string][]Transaction
}

// New validates and indexes a transaction slice. The input is copied; the
// caller's slice is not retained.
func New(txs []Transaction) (*Ledger, error) {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)

	for i := range sorted {
		if sorted[i].Seq == 0 {
			sorted[i].Seq = i
		}
		if err := sorted[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid transaction: %w", err)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	byInstrument := make(map[string][]Transaction)
	for _, tx := range sorted {
		byInstrument[tx.Instrument] = append(byInstrument[tx.Instrument], tx)
	}

	return &Ledger{txs: sorted, byInstrument: byInstrument}, nil
}

// Len returns the number of transactions
func (l *Ledger) Len() int {
	return len(l.txs)
}

// All returns every transaction in replay order
func (l *Ledger) All() []Transaction {
	return l.txs
}

// ByInstrument returns one instrument's transactions in replay order
func (l *Ledger) ByInstrument(instrument string) []Transaction {
	return l.byInstrument[instrument]
}

// Instruments returns the distinct instrument identifiers, sorted
func (l *Ledger) Instruments() []string {
	ids := make([]string, 0, len(l.byInstrument))
	for id := range l.byInstrument {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FirstDate returns the date of the earliest transaction
func (l *Ledger) FirstDate() time.Time {
	if len(l.txs) == 0 {
		return time.Time{}
	}
	return l.txs[0].Date
}

// LastDate returns the date of the latest transaction
func (l *Ledger) LastDate() time.Time {
	if len(l.txs) == 0 {
		return time.Time{}
	}
	return l.txs[len(l.txs)-1].Date
}

// UpTo returns the transactions with date <= cutoff, in replay order
func (l *Ledger) UpTo(cutoff time.Time) []Transaction {
	n := sort.Search(len(l.txs), func(i int) bool {
		return l.txs[i].Date.After(cutoff)
	})
	return l.txs[:n]
}
