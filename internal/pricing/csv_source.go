package pricing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/perfa/pkg/logger"
)

var priceHeaderAliases = map[string]string{
	"date":       "date",
	"日期":         "date",
	"instrument": "instrument",
	"code":       "instrument",
	"证券代码":       "instrument",
	"close":      "close",
	"price":      "close",
	"收盘价":        "close",
}

// CSVSource is an Oracle backed by a cleaned quote table. Quotes are
// indexed by (instrument, date); the fallback walks the instrument's own
// quote history, so suspension gaps resolve to the last traded close.
type CSVSource struct {
	quotes   map[string]map[string]float64
	calendar *Calendar
}

// LoadCSV reads a quote table from path
func LoadCSV(path string, log *logger.Logger) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	src, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices %s: %w", path, err)
	}

	log.WithFields(map[string]interface{}{
		"path":        path,
		"instruments": len(src.quotes),
	}).Info("Price table loaded")

	return src, nil
}

// ReadCSV parses quote rows from r
func ReadCSV(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, cell := range header {
		key := strings.TrimSpace(strings.ToLower(strings.TrimPrefix(cell, "\ufeff")))
		canonical, ok := priceHeaderAliases[key]
		if !ok {
			return nil, fmt.Errorf("unknown price column %q", cell)
		}
		cols[canonical] = i
	}
	for _, required := range []string{"date", "instrument", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required price column %q", required)
		}
	}

	quotes := make(map[string]map[string]float64)
	var days []time.Time
	seenDay := make(map[string]struct{})

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line+1, err)
		}
		line++

		date, err := parsePriceDate(strings.TrimSpace(record[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		instrument := strings.TrimSpace(record[cols["instrument"]])
		close, err := strconv.ParseFloat(strings.TrimSpace(record[cols["close"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: unparseable close %q", line, record[cols["close"]])
		}
		if close <= 0 {
			return nil, fmt.Errorf("row %d: non-positive close for %s", line, instrument)
		}

		key := dayKey(date)
		if quotes[instrument] == nil {
			quotes[instrument] = make(map[string]float64)
		}
		quotes[instrument][key] = close

		if _, ok := seenDay[key]; !ok {
			seenDay[key] = struct{}{}
			days = append(days, date)
		}
	}

	return &CSVSource{
		quotes:   quotes,
		calendar: NewCalendar(days),
	}, nil
}

// NewCSVSourceFromQuotes builds a source directly from quote maps, used by
// tests and by fixtures
func NewCSVSourceFromQuotes(quotes map[string]map[string]float64) *CSVSource {
	var days []time.Time
	seen := make(map[string]struct{})
	for _, byDay := range quotes {
		for key := range byDay {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			d, err := time.Parse("2006-01-02", key)
			if err == nil {
				days = append(days, d)
			}
		}
	}
	return &CSVSource{quotes: quotes, calendar: NewCalendar(days)}
}

// Calendar returns the trading calendar derived from the quote table
func (s *CSVSource) Calendar() *Calendar {
	return s.calendar
}

// Price implements Oracle with nearest-trading-day fallback: most recent
// earlier quote first, then the next later one.
func (s *CSVSource) Price(_ context.Context, instrument string, date time.Time) (float64, error) {
	byDay, ok := s.quotes[instrument]
	if !ok {
		return 0, &MissingPriceError{Instrument: instrument, Date: date}
	}

	date = Normalize(date)
	if p, ok := byDay[dayKey(date)]; ok {
		return p, nil
	}

	for i := 1; i <= lookbackWindowDays; i++ {
		if p, ok := byDay[dayKey(date.AddDate(0, 0, -i))]; ok {
			return p, nil
		}
	}
	for i := 1; i <= lookbackWindowDays; i++ {
		if p, ok := byDay[dayKey(date.AddDate(0, 0, i))]; ok {
			return p, nil
		}
	}

	return 0, &MissingPriceError{Instrument: instrument, Date: date}
}

func parsePriceDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006/01/02", "20060102"} {
		if d, err := time.Parse(layout, raw); err == nil {
			return Normalize(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
