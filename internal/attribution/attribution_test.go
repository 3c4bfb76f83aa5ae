package attribution

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/perfa/internal/ledger"
	"github.com/wonny/perfa/internal/position"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBrinsonTwoIndustries(t *testing.T) {
	product := []GroupStat{
		{Key: "tech", Weight: 0.6, Return: 0.10},
		{Key: "finance", Weight: 0.4, Return: 0.02},
	}
	benchmark := []GroupStat{
		{Key: "tech", Weight: 0.5, Return: 0.08},
		{Key: "finance", Weight: 0.5, Return: 0.03},
	}

	result := Brinson(product, benchmark, Config{})

	assert.InDelta(t, 0.005, result.Allocation, 1e-12)
	assert.InDelta(t, 0.008, result.Selection, 1e-12)
	assert.InDelta(t, 0.013, result.TotalExcess, 1e-12)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "finance", result.Rows[0].Key)
	assert.Equal(t, "tech", result.Rows[1].Key)
	assert.InDelta(t, 60.0, result.Rows[1].WeightPct, 1e-9)
	assert.InDelta(t, 8.0, result.Rows[1].BenchReturnPct, 1e-9)
}

func TestBrinsonMissingBenchmarkDefaultsToZero(t *testing.T) {
	product := []GroupStat{{Key: "tech", Weight: 1.0, Return: 0.05}}

	result := Brinson(product, nil, Config{})

	// Rb = 0 kills allocation; selection carries the full return.
	assert.InDelta(t, 0.0, result.Allocation, 1e-12)
	assert.InDelta(t, 0.05, result.Selection, 1e-12)
}

func TestBrinsonMissingBenchmarkConfigured(t *testing.T) {
	product := []GroupStat{{Key: "tech", Weight: 0.6, Return: 0.05}}

	result := Brinson(product, nil, Config{
		MissingBenchmarkWeight: 0.5,
		MissingBenchmarkReturn: 0.04,
	})

	assert.InDelta(t, (0.6-0.5)*0.04, result.Allocation, 1e-12)
	assert.InDelta(t, 0.6*(0.05-0.04), result.Selection, 1e-12)
}

func TestBrinsonBenchmarkOnlyKey(t *testing.T) {
	product := []GroupStat{{Key: "tech", Weight: 1.0, Return: 0.05}}
	benchmark := []GroupStat{
		{Key: "tech", Weight: 0.5, Return: 0.05},
		{Key: "energy", Weight: 0.5, Return: 0.10},
	}

	result := Brinson(product, benchmark, Config{})

	// Not holding the energy half of the benchmark costs allocation.
	require.Len(t, result.Rows, 2)
	assert.InDelta(t, (1.0-0.5)*0.05+(0.0-0.5)*0.10, result.Allocation, 1e-12)
	assert.InDelta(t, 0.0, result.Selection, 1e-12)
}

func TestNormalizeFraction(t *testing.T) {
	assert.InDelta(t, 0.08, NormalizeFraction(8.0), 1e-12)
	assert.InDelta(t, 0.08, NormalizeFraction(0.08), 1e-12)
	assert.InDelta(t, -0.15, NormalizeFraction(-15.0), 1e-12)
	assert.InDelta(t, 1.0, NormalizeFraction(1.0), 1e-12)
}

func snapshotWith(date string, total float64, holdings ...position.HoldingValuation) position.DailySnapshot {
	snap := position.DailySnapshot{
		Date:        day(date),
		Holdings:    make(map[string]position.HoldingValuation),
		TotalAssets: total,
	}
	for _, h := range holdings {
		snap.Holdings[h.Instrument] = h
		snap.StockValue += h.MarketValue
	}
	snap.Cash = total - snap.StockValue
	return snap
}

func TestPeriodPerformance(t *testing.T) {
	begin := snapshotWith("2023-01-02", 1000,
		position.HoldingValuation{Instrument: "600519", Name: "贵州茅台", MarketValue: 100},
	)
	end := snapshotWith("2023-01-31", 1010,
		position.HoldingValuation{Instrument: "600519", Name: "贵州茅台", MarketValue: 130},
		position.HoldingValuation{Instrument: "000001", Name: "平安银行", MarketValue: 48},
	)
	led, err := ledger.New([]ledger.Transaction{
		{
			Date: day("2023-01-10"), Instrument: "600519", Name: "贵州茅台",
			Side: ledger.SideBuy, Quantity: 100, UnitPrice: 1700,
			GrossAmount: 17, Fee: 0.01,
		},
		{
			Date: day("2023-01-15"), Instrument: "000001", Name: "平安银行",
			Side: ledger.SideBuy, Quantity: 30000, UnitPrice: 15,
			GrossAmount: 45, Fee: 0.02,
		},
		{
			Date: day("2023-01-20"), Instrument: "600519",
			Side: ledger.SideSell, Quantity: 50, UnitPrice: 1800,
			GrossAmount: 9, Fee: 0.005, Tax: 0.009,
		},
	})
	require.NoError(t, err)

	perf := PeriodPerformance(begin, end, led)
	require.Len(t, perf, 2)

	mt := perf["600519"]
	// Flows: bought 17.01, sold back 9 - 0.014 net of costs.
	wantFlow := 17.01 - (9 - 0.005 - 0.009)
	assert.InDelta(t, wantFlow, mt.NetCashFlow, 1e-9)
	assert.InDelta(t, 130-100-wantFlow, mt.Profit, 1e-9)
	assert.InDelta(t, (130-100-wantFlow)/100*100, mt.ReturnPct, 1e-9)
	assert.Equal(t, "贵州茅台", mt.Name)

	pa := perf["000001"]
	assert.InDelta(t, 45.02, pa.NetCashFlow, 1e-9)
	assert.InDelta(t, 48-45.02, pa.Profit, 1e-9)
	// No opening position, so the return base is the money put in.
	assert.InDelta(t, (48-45.02)/45.02*100, pa.ReturnPct, 1e-9)
}

func TestPeriodPerformanceExcludesBoundaryTrades(t *testing.T) {
	begin := snapshotWith("2023-01-02", 1000,
		position.HoldingValuation{Instrument: "600519", MarketValue: 100},
	)
	end := snapshotWith("2023-01-31", 1000,
		position.HoldingValuation{Instrument: "600519", MarketValue: 100},
	)
	led, err := ledger.New([]ledger.Transaction{
		{
			Date: day("2023-01-02"), Instrument: "600519",
			Side: ledger.SideBuy, Quantity: 100, UnitPrice: 1700, GrossAmount: 17,
		},
		{
			Date: day("2023-02-01"), Instrument: "600519",
			Side: ledger.SideBuy, Quantity: 100, UnitPrice: 1700, GrossAmount: 17,
		},
	})
	require.NoError(t, err)

	perf := PeriodPerformance(begin, end, led)
	assert.InDelta(t, 0.0, perf["600519"].NetCashFlow, 1e-12)
	assert.InDelta(t, 0.0, perf["600519"].Profit, 1e-12)
}

func TestIndustryBreakdown(t *testing.T) {
	end := snapshotWith("2023-01-31", 1000,
		position.HoldingValuation{Instrument: "600519", MarketValue: 300},
		position.HoldingValuation{Instrument: "000858", MarketValue: 100},
		position.HoldingValuation{Instrument: "000001", MarketValue: 200},
	)
	perf := map[string]SecurityPerformance{
		"600519": {Instrument: "600519", EndMV: 300, Profit: 30},
		"000858": {Instrument: "000858", EndMV: 100, Profit: -10},
		"000001": {Instrument: "000001", EndMV: 200, Profit: 20},
	}
	industries := StaticMap{
		"600519": "liquor",
		"000858": "liquor",
		"000001": "banking",
	}

	rows := IndustryBreakdown(perf, end, industries)
	require.Len(t, rows, 2)

	assert.Equal(t, "liquor", rows[0].Industry)
	assert.InDelta(t, 400.0, rows[0].MarketValue, 1e-9)
	assert.InDelta(t, 40.0, rows[0].WeightPct, 1e-9)
	assert.InDelta(t, 20.0, rows[0].Profit, 1e-9)
	assert.InDelta(t, 50.0, rows[0].ContributionPct, 1e-9)
	assert.Equal(t, 2, rows[0].Instruments)

	assert.Equal(t, "banking", rows[1].Industry)
	assert.InDelta(t, 20.0, rows[1].WeightPct, 1e-9)
	assert.InDelta(t, 50.0, rows[1].ContributionPct, 1e-9)
}

func TestIndustryBreakdownUnmappedGoesToUnknown(t *testing.T) {
	end := snapshotWith("2023-01-31", 100,
		position.HoldingValuation{Instrument: "688001", MarketValue: 50},
	)
	perf := map[string]SecurityPerformance{
		"688001": {Instrument: "688001", EndMV: 50, Profit: 5},
	}

	rows := IndustryBreakdown(perf, end, StaticMap{})
	require.Len(t, rows, 1)
	assert.Equal(t, UnknownIndustry, rows[0].Industry)

	rows = IndustryBreakdown(perf, end, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, UnknownIndustry, rows[0].Industry)
}

func TestSecurityBreakdownTopBottom(t *testing.T) {
	perf := map[string]SecurityPerformance{
		"a": {Instrument: "a", Profit: 5},
		"b": {Instrument: "b", Profit: -3},
		"c": {Instrument: "c", Profit: 12},
		"d": {Instrument: "d", Profit: 0},
	}

	rows := SecurityBreakdown(perf)
	require.Len(t, rows, 4)
	assert.Equal(t, "c", rows[0].Instrument)
	assert.Equal(t, "b", rows[3].Instrument)

	top := Top(rows, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Instrument)
	assert.Equal(t, "a", top[1].Instrument)

	bottom := Bottom(rows, 2)
	require.Len(t, bottom, 2)
	assert.Equal(t, "b", bottom[0].Instrument)
	assert.Equal(t, "d", bottom[1].Instrument)

	assert.Len(t, Top(rows, 10), 4)
	assert.Len(t, Bottom(rows, 10), 4)
}

func TestConcentration(t *testing.T) {
	end := snapshotWith("2023-01-31", 1000,
		position.HoldingValuation{Instrument: "600519", MarketValue: 300},
		position.HoldingValuation{Instrument: "000001", MarketValue: 200},
		position.HoldingValuation{Instrument: "000858", MarketValue: 100},
	)

	nodes := Concentration(end)
	require.Len(t, nodes, 7)

	assert.Equal(t, 1, nodes[0].TopN)
	assert.InDelta(t, 300.0, nodes[0].MarketValue, 1e-9)
	assert.InDelta(t, 30.0, nodes[0].WeightPct, 1e-9)

	assert.Equal(t, 3, nodes[2].TopN)
	assert.InDelta(t, 600.0, nodes[2].MarketValue, 1e-9)
	assert.InDelta(t, 60.0, nodes[2].WeightPct, 1e-9)

	// Levels past the book size cover everything.
	assert.Equal(t, 100, nodes[6].TopN)
	assert.InDelta(t, 600.0, nodes[6].MarketValue, 1e-9)
}

func TestReadIndustryCSV(t *testing.T) {
	input := "证券代码,行业\n600519,白酒\n000001,银行\n688001,\n"

	m, err := ReadIndustryCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "白酒", m.Industry("600519"))
	assert.Equal(t, "银行", m.Industry("000001"))
	assert.Equal(t, UnknownIndustry, m.Industry("688001"))
	assert.Equal(t, "", m.Industry("999999"))
}

func TestReadIndustryCSVRejectsUnknownColumn(t *testing.T) {
	_, err := ReadIndustryCSV(strings.NewReader("code,industry,color\na,b,c\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown industry column")
}

func TestReadIndustryCSVMissingColumn(t *testing.T) {
	_, err := ReadIndustryCSV(strings.NewReader("code\na\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing industry column")
}
