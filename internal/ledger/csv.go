package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/perfa/pkg/logger"
)

// Canonical column names. Chinese export headers are normalized through
// the alias table; anything unrecognized is rejected at the boundary.
const (
	colDate       = "date"
	colInstrument = "instrument"
	colName       = "name"
	colSide       = "side"
	colQuantity   = "quantity"
	colPrice      = "price"
	colAmount     = "amount"
	colFee        = "fee"
	colTax        = "tax"
)

var headerAliases = map[string]string{
	"date":       colDate,
	"交易日期":       colDate,
	"instrument": colInstrument,
	"code":       colInstrument,
	"证券代码":       colInstrument,
	"name":       colName,
	"证券名称":       colName,
	"side":       colSide,
	"操作":         colSide,
	"quantity":   colQuantity,
	"成交数量":       colQuantity,
	"price":      colPrice,
	"成交均价":       colPrice,
	"amount":     colAmount,
	"成交金额":       colAmount,
	"fee":        colFee,
	"手续费":        colFee,
	"tax":        colTax,
	"印花税":        colTax,
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// LoadCSV reads a transaction export and returns a validated Ledger.
// Monetary columns (amount, fee, tax) are divided by MonetaryScale here so
// that everything downstream works in one unit.
func LoadCSV(path string, log *logger.Logger) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	l, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	log.WithFields(map[string]interface{}{
		"path":         path,
		"transactions": l.Len(),
		"instruments":  len(l.Instruments()),
	}).Info("Ledger loaded")

	return l, nil
}

// ReadCSV parses ledger rows from r
func ReadCSV(r io.Reader) (*Ledger, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, cell := range header {
		key := strings.TrimSpace(strings.ToLower(strings.TrimPrefix(cell, "\ufeff")))
		canonical, ok := headerAliases[key]
		if !ok {
			return nil, fmt.Errorf("unknown ledger column %q", cell)
		}
		if _, dup := cols[canonical]; dup {
			return nil, fmt.Errorf("duplicate ledger column %q", cell)
		}
		cols[canonical] = i
	}
	for _, required := range []string{colDate, colInstrument, colSide, colQuantity, colPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required ledger column %q", required)
		}
	}

	var txs []Transaction
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

		tx, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		tx.Seq = len(txs)
		txs = append(txs, tx)
	}

	return New(txs)
}

func parseRow(record []string, cols map[string]int) (Transaction, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseDate(cell(colDate))
	if err != nil {
		return Transaction{}, err
	}

	side, err := ParseSide(cell(colSide))
	if err != nil {
		return Transaction{}, err
	}

	quantity, err := parseFloat(cell(colQuantity), colQuantity)
	if err != nil {
		return Transaction{}, err
	}
	price, err := parseFloat(cell(colPrice), colPrice)
	if err != nil {
		return Transaction{}, err
	}

	// amount defaults to quantity*price when the export omits it
	amount := quantity * price
	if raw := cell(colAmount); raw != "" {
		if amount, err = parseFloat(raw, colAmount); err != nil {
			return Transaction{}, err
		}
	}

	fee, err := parseOptionalFloat(cell(colFee), colFee)
	if err != nil {
		return Transaction{}, err
	}
	tax, err := parseOptionalFloat(cell(colTax), colTax)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Date:        date,
		Instrument:  cell(colInstrument),
		Name:        cell(colName),
		Side:        side,
		Quantity:    quantity,
		UnitPrice:   price,
		GrossAmount: amount / MonetaryScale,
		Fee:         fee / MonetaryScale,
		Tax:         tax / MonetaryScale,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func parseFloat(raw, col string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable %s value %q", col, raw)
	}
	return v, nil
}

func parseOptionalFloat(raw, col string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return parseFloat(raw, col)
}
