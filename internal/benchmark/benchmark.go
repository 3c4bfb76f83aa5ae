package benchmark

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/perfa/internal/metrics"
)

// Point is one benchmark index close
type Point struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is an immutable benchmark close series sorted by date
type Series struct {
	name   string
	points []Point
}

// New builds a series from unordered points. Duplicate dates keep the
// last value seen.
func New(name string, points []Point) *Series {
	byDate := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDate[normalize(p.Date)] = p.Close
	}
	sorted := make([]Point, 0, len(byDate))
	for d, c := range byDate {
		sorted = append(sorted, Point{Date: d, Close: c})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &Series{name: name, points: sorted}
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Series) Name() string { return s.name }

func (s *Series) Len() int { return len(s.points) }

// Points returns a copy of the full series
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// CloseOnOrBefore returns the last close at or before date
func (s *Series) CloseOnOrBefore(date time.Time) (float64, bool) {
	date = normalize(date)
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(date)
	})
	if i == 0 {
		return 0, false
	}
	return s.points[i-1].Close, true
}

// Window returns the closes inside [from, to] as NAV points so the
// metrics layer can treat the index like a portfolio.
func (s *Series) Window(from, to time.Time) []metrics.NAVPoint {
	from, to = normalize(from), normalize(to)
	var out []metrics.NAVPoint
	for _, p := range s.points {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, metrics.NAVPoint{
			Date:        p.Date,
			NAV:         p.Close,
			TotalAssets: p.Close,
		})
	}
	return out
}

// PeriodReturn is the index return in percent over [from, to]. The base
// is the last close at or before from, so a window opening on a holiday
// still anchors to the prior session.
func (s *Series) PeriodReturn(from, to time.Time) (float64, error) {
	base, ok := s.CloseOnOrBefore(from)
	if !ok {
		return 0, fmt.Errorf("benchmark %s: no close on or before %s", s.name, from.Format("2006-01-02"))
	}
	final, ok := s.CloseOnOrBefore(to)
	if !ok {
		return 0, fmt.Errorf("benchmark %s: no close on or before %s", s.name, to.Format("2006-01-02"))
	}
	if base <= 0 {
		return 0, fmt.Errorf("benchmark %s: non-positive base close %f", s.name, base)
	}
	return (final/base - 1) * 100, nil
}

// CumulativeReturns is the index's percent change against the first
// close in [from, to]
func (s *Series) CumulativeReturns(from, to time.Time) []metrics.SeriesValue {
	return metrics.CumulativeReturns(s.Window(from, to))
}

// Drawdowns is the index's percent decline from its running peak
// inside [from, to]
func (s *Series) Drawdowns(from, to time.Time) []metrics.SeriesValue {
	return metrics.DrawdownSeries(s.Window(from, to))
}

// ExcessReturns subtracts benchmark cumulative returns from product
// cumulative returns date by date. Dates missing from either side are
// skipped, so index holidays leave no artificial spikes.
func ExcessReturns(product, bench []metrics.SeriesValue) []metrics.SeriesValue {
	benchByDate := make(map[time.Time]float64, len(bench))
	for _, b := range bench {
		benchByDate[normalize(b.Date)] = b.Value
	}

	var out []metrics.SeriesValue
	for _, p := range product {
		b, ok := benchByDate[normalize(p.Date)]
		if !ok {
			continue
		}
		out = append(out, metrics.SeriesValue{Date: p.Date, Value: p.Value - b})
	}
	return out
}

// DailyReturns are the day-over-day fractional returns of the series
func (s *Series) DailyReturns() []float64 {
	points := make([]metrics.NAVPoint, len(s.points))
	for i, p := range s.points {
		points[i] = metrics.NAVPoint{Date: p.Date, NAV: p.Close, TotalAssets: p.Close}
	}
	return metrics.DailyReturns(points)
}

var benchmarkHeaderAliases = map[string]string{
	"date":  "date",
	"日期":    "date",
	"close": "close",
	"price": "close",
	"收盘价":   "close",
	"收盘":    "close",
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// LoadCSV reads a benchmark close series from path. The basename without
// extension becomes the series name.
func LoadCSV(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(fileBase(path), ".csv")
	return ReadCSV(f, name)
}

func fileBase(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ReadCSV parses benchmark rows from r
func ReadCSV(r io.Reader, name string) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read benchmark header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		canonical, ok := benchmarkHeaderAliases[col]
		if !ok {
			return nil, fmt.Errorf("unknown benchmark column %q", raw)
		}
		if _, dup := cols[canonical]; dup {
			return nil, fmt.Errorf("duplicate benchmark column %q", raw)
		}
		cols[canonical] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing benchmark column %q", required)
		}
	}

	var points []Point
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("benchmark line %d: %w", line, err)
		}

		date, err := parseDate(strings.TrimSpace(record[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("benchmark line %d: %w", line, err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(record[cols["close"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("benchmark line %d: bad close: %w", line, err)
		}
		if close <= 0 {
			return nil, fmt.Errorf("benchmark line %d: non-positive close %f", line, close)
		}
		points = append(points, Point{Date: date, Close: close})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("benchmark %s: empty series", name)
	}
	return New(name, points), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}
