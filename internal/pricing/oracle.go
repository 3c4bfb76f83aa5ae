package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Oracle resolves a per-unit price for an instrument on a date. An exact
// date miss is not an error for implementations backed by a trading
// calendar; they fall back to the nearest prior trading day (then the next
// one). Only a total absence of quotes in the lookback window is fatal.
type Oracle interface {
	Price(ctx context.Context, instrument string, date time.Time) (float64, error)
}

// MissingPriceError reports that no quote exists for the instrument within
// the fallback window around the requested date.
type MissingPriceError struct {
	Instrument string
	Date       time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for %s within %d days of %s",
		e.Instrument, lookbackWindowDays, e.Date.Format("2006-01-02"))
}

// lookbackWindowDays bounds how far the fallback search walks in each
// direction before giving up.
const lookbackWindowDays = 30

// FallbackOracle tries a primary source and, only on a missing price,
// asks the secondary. Other errors from the primary pass through.
type FallbackOracle struct {
	primary   Oracle
	secondary Oracle
}

func NewFallbackOracle(primary, secondary Oracle) *FallbackOracle {
	return &FallbackOracle{primary: primary, secondary: secondary}
}

func (f *FallbackOracle) Price(ctx context.Context, instrument string, date time.Time) (float64, error) {
	price, err := f.primary.Price(ctx, instrument, date)
	if err == nil {
		return price, nil
	}
	var missing *MissingPriceError
	if errors.As(err, &missing) {
		return f.secondary.Price(ctx, instrument, date)
	}
	return 0, err
}
