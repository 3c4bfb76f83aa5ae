package pricing

import (
	"sort"
	"time"
)

// Calendar is the set of known trading days, usually derived from the
// quote table. With no explicit days it degrades to a weekday rule.
type Calendar struct {
	days   map[string]struct{}
	sorted []time.Time
}

// NewCalendar builds a calendar from explicit trading days
func NewCalendar(days []time.Time) *Calendar {
	set := make(map[string]struct{}, len(days))
	uniq := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = Normalize(d)
		key := dayKey(d)
		if _, ok := set[key]; ok {
			continue
		}
		set[key] = struct{}{}
		uniq = append(uniq, d)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Before(uniq[j]) })
	return &Calendar{days: set, sorted: uniq}
}

// Normalize truncates a timestamp to its UTC calendar date
func Normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// LastDay returns the latest known trading day, false when the calendar
// carries no explicit days.
func (c *Calendar) LastDay() (time.Time, bool) {
	if len(c.sorted) == 0 {
		return time.Time{}, false
	}
	return c.sorted[len(c.sorted)-1], true
}

// IsTradingDay reports whether d is a trading day
func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = Normalize(d)
	if len(c.days) == 0 {
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	_, ok := c.days[dayKey(d)]
	return ok
}

// NearestBefore returns the latest trading day <= d within the lookback
// window
func (c *Calendar) NearestBefore(d time.Time) (time.Time, bool) {
	d = Normalize(d)
	for i := 0; i <= lookbackWindowDays; i++ {
		candidate := d.AddDate(0, 0, -i)
		if c.IsTradingDay(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// NearestAfter returns the earliest trading day >= d within the lookback
// window
func (c *Calendar) NearestAfter(d time.Time) (time.Time, bool) {
	d = Normalize(d)
	for i := 0; i <= lookbackWindowDays; i++ {
		candidate := d.AddDate(0, 0, i)
		if c.IsTradingDay(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// Nearest prefers the most recent earlier trading day, then the next one
func (c *Calendar) Nearest(d time.Time) (time.Time, bool) {
	if prev, ok := c.NearestBefore(d); ok {
		return prev, true
	}
	return c.NearestAfter(d)
}

// Range returns the trading days in [start, end], inclusive
func (c *Calendar) Range(start, end time.Time) []time.Time {
	start, end = Normalize(start), Normalize(end)
	if end.Before(start) {
		return nil
	}

	if len(c.sorted) > 0 {
		lo := sort.Search(len(c.sorted), func(i int) bool { return !c.sorted[i].Before(start) })
		hi := sort.Search(len(c.sorted), func(i int) bool { return c.sorted[i].After(end) })
		out := make([]time.Time, hi-lo)
		copy(out, c.sorted[lo:hi])
		return out
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}
