package benchmark

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/perfa/internal/metrics"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func csi300() *Series {
	return New("csi300", []Point{
		{Date: day("2023-01-03"), Close: 4000},
		{Date: day("2023-01-04"), Close: 4040},
		{Date: day("2023-01-05"), Close: 3980},
		{Date: day("2023-01-06"), Close: 4100},
	})
}

func TestNewSortsAndDeduplicates(t *testing.T) {
	s := New("test", []Point{
		{Date: day("2023-01-05"), Close: 10},
		{Date: day("2023-01-03"), Close: 8},
		{Date: day("2023-01-05"), Close: 11},
	})

	points := s.Points()
	require.Len(t, points, 2)
	assert.Equal(t, day("2023-01-03"), points[0].Date)
	assert.InDelta(t, 11.0, points[1].Close, 1e-12)
}

func TestCloseOnOrBefore(t *testing.T) {
	s := csi300()

	c, ok := s.CloseOnOrBefore(day("2023-01-04"))
	require.True(t, ok)
	assert.InDelta(t, 4040.0, c, 1e-9)

	// Saturday falls back to Friday's close.
	c, ok = s.CloseOnOrBefore(day("2023-01-07"))
	require.True(t, ok)
	assert.InDelta(t, 4100.0, c, 1e-9)

	_, ok = s.CloseOnOrBefore(day("2023-01-02"))
	assert.False(t, ok)
}

func TestPeriodReturn(t *testing.T) {
	s := csi300()

	r, err := s.PeriodReturn(day("2023-01-03"), day("2023-01-06"))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, r, 1e-9)
}

func TestPeriodReturnAnchorsToPriorClose(t *testing.T) {
	s := csi300()

	// 2023-01-07 is a Saturday: both ends anchor to the 06 close.
	r, err := s.PeriodReturn(day("2023-01-07"), day("2023-01-08"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r, 1e-9)
}

func TestPeriodReturnBeforeSeries(t *testing.T) {
	s := csi300()

	_, err := s.PeriodReturn(day("2023-01-01"), day("2023-01-06"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no close on or before")
}

func TestWindow(t *testing.T) {
	s := csi300()

	points := s.Window(day("2023-01-04"), day("2023-01-05"))
	require.Len(t, points, 2)
	assert.Equal(t, day("2023-01-04"), points[0].Date)
	assert.InDelta(t, 4040.0, points[0].NAV, 1e-9)
	assert.InDelta(t, 3980.0, points[1].NAV, 1e-9)
}

func TestDailyReturns(t *testing.T) {
	s := csi300()

	returns := s.DailyReturns()
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.01, returns[0], 1e-12)
	assert.InDelta(t, 3980.0/4040.0-1, returns[1], 1e-12)
}

func TestCumulativeReturns(t *testing.T) {
	s := csi300()

	cum := s.CumulativeReturns(day("2023-01-03"), day("2023-01-06"))
	require.Len(t, cum, 4)
	assert.InDelta(t, 0.0, cum[0].Value, 1e-12)
	assert.InDelta(t, 1.0, cum[1].Value, 1e-9)
	assert.InDelta(t, 2.5, cum[3].Value, 1e-9)
}

func TestDrawdowns(t *testing.T) {
	s := csi300()

	dd := s.Drawdowns(day("2023-01-03"), day("2023-01-06"))
	require.Len(t, dd, 4)
	assert.InDelta(t, 0.0, dd[0].Value, 1e-12)
	// Trough on the 05th: 3980 off the 4040 peak.
	assert.InDelta(t, (4040.0-3980.0)/4040.0*100, dd[2].Value, 1e-9)
	assert.InDelta(t, 0.0, dd[3].Value, 1e-12)
}

func TestExcessReturns(t *testing.T) {
	product := []metrics.SeriesValue{
		{Date: day("2023-01-03"), Value: 0.0},
		{Date: day("2023-01-04"), Value: 2.0},
		{Date: day("2023-01-05"), Value: 3.0},
	}
	bench := []metrics.SeriesValue{
		{Date: day("2023-01-03"), Value: 0.0},
		{Date: day("2023-01-04"), Value: 1.0},
		// 05th missing: index holiday.
		{Date: day("2023-01-06"), Value: 2.5},
	}

	excess := ExcessReturns(product, bench)
	require.Len(t, excess, 2)
	assert.Equal(t, day("2023-01-03"), excess[0].Date)
	assert.InDelta(t, 0.0, excess[0].Value, 1e-12)
	assert.Equal(t, day("2023-01-04"), excess[1].Date)
	assert.InDelta(t, 1.0, excess[1].Value, 1e-12)
}

func TestReadCSV(t *testing.T) {
	input := "日期,收盘价\n2023/01/03,4000\n20230104,4040.5\n"

	s, err := ReadCSV(strings.NewReader(input), "csi300")
	require.NoError(t, err)
	assert.Equal(t, "csi300", s.Name())
	require.Equal(t, 2, s.Len())

	c, ok := s.CloseOnOrBefore(day("2023-01-04"))
	require.True(t, ok)
	assert.InDelta(t, 4040.5, c, 1e-9)
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"unknown column":     "date,close,volume\n2023-01-03,1,2\n",
		"missing close":      "date\n2023-01-03\n",
		"bad date":           "date,close\nnot-a-date,4000\n",
		"non-positive close": "date,close\n2023-01-03,0\n",
		"empty series":       "date,close\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(input), "x")
			assert.Error(t, err)
		})
	}
}
