package report

import (
	"fmt"
	"time"
)

// Horizon is a named reporting window. Months of zero means inception to
// date; otherwise the window trails the last snapshot by that many
// calendar months.
type Horizon struct {
	Name   string `json:"name"`
	Months int    `json:"months"`
}

// StandardHorizons is the reporting table order
var StandardHorizons = []Horizon{
	{Name: "inception", Months: 0},
	{Name: "1y", Months: 12},
	{Name: "6m", Months: 6},
	{Name: "3m", Months: 3},
	{Name: "1m", Months: 1},
}

// ParseHorizon resolves a horizon name from the standard table
func ParseHorizon(name string) (Horizon, error) {
	for _, h := range StandardHorizons {
		if h.Name == name {
			return h, nil
		}
	}
	return Horizon{}, fmt.Errorf("unknown horizon %q", name)
}

// Window resolves the horizon to a concrete (start, end) pair against the
// available snapshot range. Trailing windows are clipped to first when the
// history is shorter than the horizon.
func (h Horizon) Window(first, last time.Time) (time.Time, time.Time) {
	if h.Months <= 0 {
		return first, last
	}
	start := last.AddDate(0, -h.Months, 0)
	if start.Before(first) {
		start = first
	}
	return start, last
}
