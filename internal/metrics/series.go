package metrics

import (
	"sort"
	"time"
)

// SeriesValue is one dated value of a derived chart series, in percent
type SeriesValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// CumulativeReturns is the percent change of every point against the
// window's first NAV
func CumulativeReturns(points []NAVPoint) []SeriesValue {
	if len(points) == 0 {
		return nil
	}
	first := points[0].NAV
	out := make([]SeriesValue, 0, len(points))
	for _, p := range points {
		v := 0.0
		if first > 0 {
			v = (p.NAV - first) / first * 100
		}
		out = append(out, SeriesValue{Date: p.Date, Value: v})
	}
	return out
}

// DrawdownSeries is each point's percent decline from the running peak
func DrawdownSeries(points []NAVPoint) []SeriesValue {
	if len(points) == 0 {
		return nil
	}
	peak := points[0].NAV
	out := make([]SeriesValue, 0, len(points))
	for _, p := range points {
		if p.NAV > peak {
			peak = p.NAV
		}
		v := 0.0
		if peak > 0 {
			v = (peak - p.NAV) / peak * 100
		}
		out = append(out, SeriesValue{Date: p.Date, Value: v})
	}
	return out
}

// MonthlyReturn is one calendar month's start-to-end NAV change
type MonthlyReturn struct {
	Month  string  `json:"month"` // YYYY-MM
	Return float64 `json:"return"`
	Points int     `json:"points"`
}

// MonthlyReturns tabulates per-month returns across the window. Months
// with a single observation are reported with a zero return.
func MonthlyReturns(points []NAVPoint) []MonthlyReturn {
	type bucket struct {
		first, last float64
		count       int
	}
	buckets := make(map[string]*bucket)
	for _, p := range points {
		key := p.Date.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: p.NAV}
			buckets[key] = b
		}
		b.last = p.NAV
		b.count++
	}

	months := make([]string, 0, len(buckets))
	for key := range buckets {
		months = append(months, key)
	}
	sort.Strings(months)

	out := make([]MonthlyReturn, 0, len(months))
	for _, key := range months {
		b := buckets[key]
		r := 0.0
		if b.count >= 2 && b.first > 0 {
			r = (b.last - b.first) / b.first * 100
		}
		out = append(out, MonthlyReturn{Month: key, Return: r, Points: b.count})
	}
	return out
}
