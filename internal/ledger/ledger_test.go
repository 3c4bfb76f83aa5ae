package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		raw     string
		want    Side
		wantErr bool
	}{
		{"buy", SideBuy, false},
		{"BUY", SideBuy, false},
		{"b", SideBuy, false},
		{"买入", SideBuy, false},
		{"sell", SideSell, false},
		{"卖出", SideSell, false},
		{" Sell ", SideSell, false},
		{"hold", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSide(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewOrdersByDateThenSeq(t *testing.T) {
	txs := []Transaction{
		{Date: date("2023-01-03"), Instrument: "600519", Side: SideSell, Quantity: 10, UnitPrice: 12, Seq: 3},
		{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 50, UnitPrice: 11, Seq: 2},
		{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 100, UnitPrice: 10, Seq: 1},
	}

	l, err := New(txs)
	require.NoError(t, err)

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, date("2023-01-02"), all[0].Date)
	assert.Equal(t, 100.0, all[0].Quantity, "same-day ties keep insertion order")
	assert.Equal(t, 50.0, all[1].Quantity)
	assert.Equal(t, date("2023-01-03"), all[2].Date)

	assert.Equal(t, date("2023-01-02"), l.FirstDate())
	assert.Equal(t, date("2023-01-03"), l.LastDate())
}

func TestNewRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
	}{
		{"zero quantity", Transaction{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 0, UnitPrice: 10}},
		{"negative price", Transaction{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 10, UnitPrice: -1}},
		{"bad side", Transaction{Date: date("2023-01-02"), Instrument: "600519", Side: "hold", Quantity: 10, UnitPrice: 10}},
		{"empty instrument", Transaction{Date: date("2023-01-02"), Side: SideBuy, Quantity: 10, UnitPrice: 10}},
		{"negative fee", Transaction{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 10, UnitPrice: 10, Fee: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Transaction{tt.tx})
			assert.Error(t, err)
		})
	}
}

func TestUpTo(t *testing.T) {
	txs := []Transaction{
		{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 100, UnitPrice: 10},
		{Date: date("2023-01-05"), Instrument: "600519", Side: SideSell, Quantity: 50, UnitPrice: 12},
		{Date: date("2023-01-09"), Instrument: "000001", Side: SideBuy, Quantity: 200, UnitPrice: 8},
	}

	l, err := New(txs)
	require.NoError(t, err)

	assert.Len(t, l.UpTo(date("2023-01-01")), 0)
	assert.Len(t, l.UpTo(date("2023-01-02")), 1, "cutoff is inclusive")
	assert.Len(t, l.UpTo(date("2023-01-06")), 2)
	assert.Len(t, l.UpTo(date("2023-12-31")), 3)
}

func TestByInstrument(t *testing.T) {
	txs := []Transaction{
		{Date: date("2023-01-02"), Instrument: "600519", Side: SideBuy, Quantity: 100, UnitPrice: 10},
		{Date: date("2023-01-03"), Instrument: "000001", Side: SideBuy, Quantity: 200, UnitPrice: 8},
		{Date: date("2023-01-04"), Instrument: "600519", Side: SideSell, Quantity: 40, UnitPrice: 11},
	}

	l, err := New(txs)
	require.NoError(t, err)

	assert.Equal(t, []string{"000001", "600519"}, l.Instruments())
	assert.Len(t, l.ByInstrument("600519"), 2)
	assert.Len(t, l.ByInstrument("000001"), 1)
	assert.Empty(t, l.ByInstrument("999999"))
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,instrument,name,side,quantity,price,amount,fee,tax",
		"2023-01-02,600519,Moutai,buy,100,10,1000,5,0",
		"2023-01-05,600519,Moutai,sell,50,12,600,0,0.6",
	}, "\n")

	l, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())

	buy := l.All()[0]
	assert.Equal(t, SideBuy, buy.Side)
	assert.Equal(t, 100.0, buy.Quantity)
	assert.Equal(t, 10.0, buy.UnitPrice)
	assert.InDelta(t, 0.1, buy.GrossAmount, 1e-12, "amount scaled to 10k units")
	assert.InDelta(t, 0.0005, buy.Fee, 1e-12)

	sell := l.All()[1]
	assert.Equal(t, SideSell, sell.Side)
	assert.InDelta(t, 0.06, sell.GrossAmount, 1e-12)
	assert.InDelta(t, 0.00006, sell.Tax, 1e-12)
}

func TestReadCSVChineseHeader(t *testing.T) {
	input := strings.Join([]string{
		"交易日期,证券代码,证券名称,操作,成交数量,成交均价,成交金额,手续费,印花税",
		"2023/01/02,600519,贵州茅台,买入,100,10,1000,5,0",
	}, "\n")

	l, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())

	tx := l.All()[0]
	assert.Equal(t, "600519", tx.Instrument)
	assert.Equal(t, SideBuy, tx.Side)
	assert.Equal(t, date("2023-01-02"), tx.Date)
}

func TestReadCSVDefaultsAmount(t *testing.T) {
	input := strings.Join([]string{
		"date,instrument,side,quantity,price",
		"2023-01-02,600519,buy,100,10",
	}, "\n")

	l, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, l.All()[0].GrossAmount, 1e-12)
}

func TestReadCSVRejectsUnknownColumn(t *testing.T) {
	input := strings.Join([]string{
		"date,instrument,side,quantity,price,mystery",
		"2023-01-02,600519,buy,100,10,42",
	}, "\n")

	_, err := ReadCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ledger column")
}

func TestReadCSVRejectsMissingColumn(t *testing.T) {
	input := strings.Join([]string{
		"date,instrument,side,quantity",
		"2023-01-02,600519,buy,100",
	}, "\n")

	_, err := ReadCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required ledger column")
}
