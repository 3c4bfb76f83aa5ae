package attribution

import (
	"sort"

	"github.com/wonny/perfa/internal/ledger"
	"github.com/wonny/perfa/internal/position"
)

// SecurityPerformance is one instrument's profit over a reporting period.
// NetCashFlow is the money put into the position during the period: buy
// costs minus net sale proceeds. Profit therefore already carries fees
// and taxes as losses.
type SecurityPerformance struct {
	Instrument  string  `json:"instrument"`
	Name        string  `json:"name"`
	BeginMV     float64 `json:"begin_mv"`
	EndMV       float64 `json:"end_mv"`
	NetCashFlow float64 `json:"net_cash_flow"`
	Profit      float64 `json:"profit"`
	ReturnPct   float64 `json:"return_pct"`
}

// PeriodPerformance computes per-instrument profit between two snapshots.
// Transactions strictly after begin.Date and up to end.Date inclusive are
// counted as period cash flows; begin's own trades are already inside its
// valuation.
func PeriodPerformance(begin, end position.DailySnapshot, led *ledger.Ledger) map[string]SecurityPerformance {
	perf := make(map[string]SecurityPerformance)

	touch := func(instrument, name string) SecurityPerformance {
		p, ok := perf[instrument]
		if !ok {
			p = SecurityPerformance{Instrument: instrument}
		}
		if p.Name == "" && name != "" {
			p.Name = name
		}
		return p
	}

	for instrument, h := range begin.Holdings {
		p := touch(instrument, h.Name)
		p.BeginMV = h.MarketValue
		perf[instrument] = p
	}
	for instrument, h := range end.Holdings {
		p := touch(instrument, h.Name)
		p.EndMV = h.MarketValue
		perf[instrument] = p
	}

	for _, tx := range led.All() {
		if !tx.Date.After(begin.Date) || tx.Date.After(end.Date) {
			continue
		}
		p := touch(tx.Instrument, tx.Name)
		switch tx.Side {
		case ledger.SideBuy:
			p.NetCashFlow += tx.GrossAmount + tx.Fee
		case ledger.SideSell:
			p.NetCashFlow -= tx.GrossAmount - tx.Fee - tx.Tax
		}
		perf[tx.Instrument] = p
	}

	for instrument, p := range perf {
		p.Profit = p.EndMV - p.BeginMV - p.NetCashFlow
		switch {
		case p.BeginMV > 0:
			p.ReturnPct = p.Profit / p.BeginMV * 100
		case p.NetCashFlow > 0:
			p.ReturnPct = p.Profit / p.NetCashFlow * 100
		}
		perf[instrument] = p
	}
	return perf
}

// IndustryRow is one industry's slice of the book: weight against total
// assets and contribution against total period profit, both in percent.
type IndustryRow struct {
	Industry        string  `json:"industry"`
	MarketValue     float64 `json:"market_value"`
	WeightPct       float64 `json:"weight_pct"`
	Profit          float64 `json:"profit"`
	ContributionPct float64 `json:"contribution_pct"`
	Instruments     int     `json:"instruments"`
}

// IndustryBreakdown groups period performance by industry. Weight is the
// group's end-of-period market value over total assets, so cash dilutes
// every industry; rows are sorted by market value descending.
func IndustryBreakdown(perf map[string]SecurityPerformance, end position.DailySnapshot, industries IndustryMap) []IndustryRow {
	groups := make(map[string]*IndustryRow)
	industryOf := func(instrument string) string {
		if industries == nil {
			return UnknownIndustry
		}
		if key := industries.Industry(instrument); key != "" {
			return key
		}
		return UnknownIndustry
	}

	var totalProfit float64
	for instrument, p := range perf {
		key := industryOf(instrument)
		row, ok := groups[key]
		if !ok {
			row = &IndustryRow{Industry: key}
			groups[key] = row
		}
		row.Profit += p.Profit
		row.MarketValue += p.EndMV
		row.Instruments++
		totalProfit += p.Profit
	}

	rows := make([]IndustryRow, 0, len(groups))
	for _, row := range groups {
		if end.TotalAssets > 0 {
			row.WeightPct = row.MarketValue / end.TotalAssets * 100
		}
		if totalProfit != 0 {
			row.ContributionPct = row.Profit / totalProfit * 100
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MarketValue != rows[j].MarketValue {
			return rows[i].MarketValue > rows[j].MarketValue
		}
		return rows[i].Industry < rows[j].Industry
	})
	return rows
}

// SecurityBreakdown returns per-instrument performance sorted by profit
// descending, instrument code breaking ties.
func SecurityBreakdown(perf map[string]SecurityPerformance) []SecurityPerformance {
	rows := make([]SecurityPerformance, 0, len(perf))
	for _, p := range perf {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Profit != rows[j].Profit {
			return rows[i].Profit > rows[j].Profit
		}
		return rows[i].Instrument < rows[j].Instrument
	})
	return rows
}

// Top returns the n best performers from a profit-sorted breakdown
func Top(rows []SecurityPerformance, n int) []SecurityPerformance {
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}

// Bottom returns the n worst performers, worst first
func Bottom(rows []SecurityPerformance, n int) []SecurityPerformance {
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]SecurityPerformance, n)
	for i := 0; i < n; i++ {
		out[i] = rows[len(rows)-1-i]
	}
	return out
}

// ConcentrationNode is the cumulative market value of the N largest
// holdings and its share of total assets.
type ConcentrationNode struct {
	TopN        int     `json:"top_n"`
	MarketValue float64 `json:"market_value"`
	WeightPct   float64 `json:"weight_pct"`
}

// concentrationLevels are the standard reporting cut points
var concentrationLevels = []int{1, 2, 3, 5, 10, 50, 100}

// Concentration computes cumulative top-N weights from a snapshot. Levels
// beyond the number of holdings cover the whole book.
func Concentration(snap position.DailySnapshot) []ConcentrationNode {
	holdings := snap.SortedHoldings()

	nodes := make([]ConcentrationNode, 0, len(concentrationLevels))
	for _, level := range concentrationLevels {
		n := level
		if n > len(holdings) {
			n = len(holdings)
		}
		var mv float64
		for i := 0; i < n; i++ {
			mv += holdings[i].MarketValue
		}
		node := ConcentrationNode{TopN: level, MarketValue: mv}
		if snap.TotalAssets > 0 {
			node.WeightPct = mv / snap.TotalAssets * 100
		}
		nodes = append(nodes, node)
	}
	return nodes
}
