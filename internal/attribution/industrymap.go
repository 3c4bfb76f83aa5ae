package attribution

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// StaticMap is an in-memory instrument to industry mapping
type StaticMap map[string]string

func (m StaticMap) Industry(instrument string) string {
	return m[instrument]
}

var industryHeaderAliases = map[string]string{
	"instrument": "instrument",
	"code":       "instrument",
	"证券代码":       "instrument",
	"industry":   "industry",
	"sector":     "industry",
	"行业":         "industry",
}

// LoadIndustryCSV reads an instrument-to-industry mapping file. Later rows
// win on duplicate instruments.
func LoadIndustryCSV(path string) (StaticMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open industry file: %w", err)
	}
	defer f.Close()
	return ReadIndustryCSV(f)
}

// ReadIndustryCSV parses industry mapping rows from r
func ReadIndustryCSV(r io.Reader) (StaticMap, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read industry header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		canonical, ok := industryHeaderAliases[name]
		if !ok {
			return nil, fmt.Errorf("unknown industry column %q", raw)
		}
		if _, dup := cols[canonical]; dup {
			return nil, fmt.Errorf("duplicate industry column %q", raw)
		}
		cols[canonical] = i
	}
	for _, required := range []string{"instrument", "industry"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing industry column %q", required)
		}
	}

	m := make(StaticMap)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("industry line %d: %w", line, err)
		}
		instrument := strings.TrimSpace(record[cols["instrument"]])
		industry := strings.TrimSpace(record[cols["industry"]])
		if instrument == "" {
			return nil, fmt.Errorf("industry line %d: empty instrument", line)
		}
		if industry == "" {
			industry = UnknownIndustry
		}
		m[instrument] = industry
	}
	return m, nil
}
