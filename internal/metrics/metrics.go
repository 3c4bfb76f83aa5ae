package metrics

import (
	"math"
	"time"
)

// Config lists the knobs that change metric values.
// RiskFreeRate shifts the Sharpe/Sortino numerator baseline;
// AnnualizationDays drives every annualized return figure;
// TradingDaysPerYear scales daily-return volatility figures.
type Config struct {
	RiskFreeRate       float64
	AnnualizationDays  float64
	TradingDaysPerYear float64
}

// DefaultConfig mirrors the production report settings
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:       0.02,
		AnnualizationDays:  365,
		TradingDaysPerYear: 252,
	}
}

// NAVPoint is one date's unit net asset value
type NAVPoint struct {
	Date        time.Time `json:"date"`
	NAV         float64   `json:"nav"`
	TotalAssets float64   `json:"total_assets"`
}

// Drawdown describes the worst peak-to-trough episode of a NAV window
type Drawdown struct {
	MaxDrawdown float64   `json:"max_drawdown"`
	PeakDate    time.Time `json:"peak_date"`
	TroughDate  time.Time `json:"trough_date"`
	// RecoveryDays counts trough to the first date NAV regains the peak
	RecoveryDays int  `json:"recovery_days"`
	IsRecovered  bool `json:"is_recovered"`
}

// MetricSet is the full bag of return/risk figures for one window.
// Percent-named fields are already multiplied by 100.
type MetricSet struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
	Points    int       `json:"points"`

	PeriodReturn     float64 `json:"period_return"`
	AnnualizedReturn float64 `json:"annualized_return"`

	Volatility         float64 `json:"volatility"`
	DownsideVolatility float64 `json:"downside_volatility"`

	MaxDrawdown           float64   `json:"max_drawdown"`
	MaxDrawdownPeakDate   time.Time `json:"max_drawdown_peak_date"`
	MaxDrawdownTroughDate time.Time `json:"max_drawdown_trough_date"`
	RecoveryDays          int       `json:"recovery_days"`
	IsRecovered           bool      `json:"is_recovered"`

	Sharpe  float64 `json:"sharpe"`
	Sortino float64 `json:"sortino"`
	Calmar  float64 `json:"calmar"`

	Beta                   float64 `json:"beta"`
	TrackingError          float64 `json:"tracking_error"`
	ActiveReturn           float64 `json:"active_return"`
	AnnualizedActiveReturn float64 `json:"annualized_active_return"`
	InformationRatio       float64 `json:"information_ratio"`

	WeeklyWinRate  float64 `json:"weekly_win_rate"`
	MonthlyWinRate float64 `json:"monthly_win_rate"`

	BenchmarkReturn float64 `json:"benchmark_return"`
}

// NeutralMetricSet is the defined result for windows with fewer than two
// snapshots: zeros everywhere, beta at its neutral 1.0.
func NeutralMetricSet(start, end time.Time) MetricSet {
	return MetricSet{
		StartDate: start,
		EndDate:   end,
		Beta:      1.0,
	}
}

// CalendarDays counts days from start to end inclusive of both endpoints
func CalendarDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// PeriodReturn is the start-to-end NAV change in percent
func PeriodReturn(points []NAVPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first, last := points[0].NAV, points[len(points)-1].NAV
	if first <= 0 {
		return 0
	}
	return (last - first) / first * 100
}

// Annualize converts a period return (percent) over days calendar days
// into an annualized percent figure
func Annualize(periodReturnPct float64, days int, annualizationDays float64) float64 {
	if days <= 0 {
		return 0
	}
	base := 1 + periodReturnPct/100
	if base <= 0 {
		// a full wipeout cannot compound back
		return -100
	}
	return (math.Pow(base, annualizationDays/float64(days)) - 1) * 100
}

// DailyReturns is the per-point fractional return series. The first point
// has no return and is omitted; a non-positive previous NAV yields 0.
func DailyReturns(points []NAVPoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].NAV
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (points[i].NAV-prev)/prev)
	}
	return out
}

// MaxDrawdown walks the window once, tracking the running peak and the
// worst peak-to-trough decline. A new peak starts a new episode. Recovery
// is the first later date where NAV regains the episode's peak.
func MaxDrawdown(points []NAVPoint) Drawdown {
	if len(points) < 2 {
		return Drawdown{}
	}

	peak := points[0].NAV
	peakDate := points[0].Date

	var dd Drawdown
	for _, p := range points {
		if p.NAV > peak {
			peak = p.NAV
			peakDate = p.Date
		}
		if peak <= 0 {
			continue
		}
		decline := (peak - p.NAV) / peak * 100
		if decline > dd.MaxDrawdown {
			dd.MaxDrawdown = decline
			dd.PeakDate = peakDate
			dd.TroughDate = p.Date
		}
	}

	if dd.MaxDrawdown == 0 {
		return dd
	}

	// find the peak value of the worst episode, then the first recovery
	var peakValue float64
	for _, p := range points {
		if p.Date.Equal(dd.PeakDate) {
			peakValue = p.NAV
			break
		}
	}
	for _, p := range points {
		if p.Date.After(dd.TroughDate) && p.NAV >= peakValue {
			dd.RecoveryDays = CalendarDays(dd.TroughDate, p.Date) - 1
			dd.IsRecovered = true
			break
		}
	}

	return dd
}

// Volatility is the annualized standard deviation of daily returns, in
// percent
func Volatility(daily []float64, tradingDaysPerYear float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	return popStd(daily) * math.Sqrt(tradingDaysPerYear) * 100
}

// DownsideVolatility considers only the negative daily returns; fewer
// than two of them yields 0
func DownsideVolatility(daily []float64, tradingDaysPerYear float64) float64 {
	var negatives []float64
	for _, r := range daily {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	if len(negatives) < 2 {
		return 0
	}
	return popStd(negatives) * math.Sqrt(tradingDaysPerYear) * 100
}

// Sharpe returns 0 when volatility is 0; that degenerate case is defined,
// not an error
func Sharpe(annualizedReturnPct, volatilityPct, riskFreeRate float64) float64 {
	if volatilityPct == 0 {
		return 0
	}
	return (annualizedReturnPct/100 - riskFreeRate) / (volatilityPct / 100)
}

// Sortino returns 0 when downside volatility is 0
func Sortino(annualizedReturnPct, downsideVolatilityPct, riskFreeRate float64) float64 {
	if downsideVolatilityPct == 0 {
		return 0
	}
	return (annualizedReturnPct/100 - riskFreeRate) / (downsideVolatilityPct / 100)
}

// Calmar returns 0 when max drawdown is 0
func Calmar(annualizedReturnPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return (annualizedReturnPct / 100) / (math.Abs(maxDrawdownPct) / 100)
}

// Beta is cov(product, benchmark)/var(benchmark) over date-aligned daily
// returns, population moments. Fewer than two aligned points or zero
// benchmark variance yields the neutral 1.0.
func Beta(productDaily, benchmarkDaily []float64) float64 {
	p, b := truncateToMin(productDaily, benchmarkDaily)
	if len(p) < 2 {
		return 1.0
	}

	meanP, meanB := mean(p), mean(b)
	var cov, varB float64
	for i := range p {
		cov += (p[i] - meanP) * (b[i] - meanB)
		varB += (b[i] - meanB) * (b[i] - meanB)
	}
	cov /= float64(len(p))
	varB /= float64(len(b))

	if varB == 0 {
		return 1.0
	}
	return cov / varB
}

// TrackingError is the annualized standard deviation of the return
// difference, in percent
func TrackingError(productDaily, benchmarkDaily []float64, tradingDaysPerYear float64) float64 {
	p, b := truncateToMin(productDaily, benchmarkDaily)
	if len(p) < 2 {
		return 0
	}
	diff := make([]float64, len(p))
	for i := range p {
		diff[i] = p[i] - b[i]
	}
	return popStd(diff) * math.Sqrt(tradingDaysPerYear) * 100
}

// InformationRatio returns 0 when tracking error is 0
func InformationRatio(annualizedActiveReturnPct, trackingErrorPct float64) float64 {
	if trackingErrorPct == 0 {
		return 0
	}
	return (annualizedActiveReturnPct / 100) / (trackingErrorPct / 100)
}

// WinRates buckets the NAV series into ISO weeks (keyed by Monday) and
// calendar months and returns the percent of buckets whose start-to-end
// change is positive. Buckets need at least two observations to count.
func WinRates(points []NAVPoint) (weekly, monthly float64) {
	weekly = bucketWinRate(points, func(d time.Time) string {
		monday := d.AddDate(0, 0, -int((d.Weekday()+6)%7))
		return monday.Format("2006-01-02")
	})
	monthly = bucketWinRate(points, func(d time.Time) string {
		return d.Format("2006-01")
	})
	return weekly, monthly
}

func bucketWinRate(points []NAVPoint, keyFn func(time.Time) string) float64 {
	type bucket struct {
		first, last float64
		count       int
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, p := range points {
		key := keyFn(p.Date)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: p.NAV}
			buckets[key] = b
			order = append(order, key)
		}
		b.last = p.NAV
		b.count++
	}

	var qualifying, wins int
	for _, key := range order {
		b := buckets[key]
		if b.count < 2 || b.first <= 0 {
			continue
		}
		qualifying++
		if b.last > b.first {
			wins++
		}
	}

	if qualifying == 0 {
		return 0
	}
	return float64(wins) / float64(qualifying) * 100
}

// Compute assembles the full MetricSet for a window. benchmark may be nil;
// benchmark-relative figures then stay at their neutral values.
// Windows with fewer than two points return NeutralMetricSet.
func Compute(product, benchmark []NAVPoint, cfg Config) MetricSet {
	var start, end time.Time
	if len(product) > 0 {
		start, end = product[0].Date, product[len(product)-1].Date
	}
	if len(product) < 2 {
		return NeutralMetricSet(start, end)
	}

	days := CalendarDays(start, end)
	daily := DailyReturns(product)
	dd := MaxDrawdown(product)

	m := MetricSet{
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Points:    len(product),

		PeriodReturn: PeriodReturn(product),

		Volatility:         Volatility(daily, cfg.TradingDaysPerYear),
		DownsideVolatility: DownsideVolatility(daily, cfg.TradingDaysPerYear),

		MaxDrawdown:           dd.MaxDrawdown,
		MaxDrawdownPeakDate:   dd.PeakDate,
		MaxDrawdownTroughDate: dd.TroughDate,
		RecoveryDays:          dd.RecoveryDays,
		IsRecovered:           dd.IsRecovered,

		Beta: 1.0,
	}

	m.AnnualizedReturn = Annualize(m.PeriodReturn, days, cfg.AnnualizationDays)
	m.Sharpe = Sharpe(m.AnnualizedReturn, m.Volatility, cfg.RiskFreeRate)
	m.Sortino = Sortino(m.AnnualizedReturn, m.DownsideVolatility, cfg.RiskFreeRate)
	m.Calmar = Calmar(m.AnnualizedReturn, m.MaxDrawdown)

	weekly, monthly := WinRates(product)
	m.WeeklyWinRate = weekly
	m.MonthlyWinRate = monthly

	if len(benchmark) >= 2 {
		productAligned, benchAligned := AlignReturns(product, benchmark)

		m.Beta = Beta(productAligned, benchAligned)
		m.TrackingError = TrackingError(productAligned, benchAligned, cfg.TradingDaysPerYear)

		m.BenchmarkReturn = PeriodReturn(benchmark)
		benchDays := CalendarDays(benchmark[0].Date, benchmark[len(benchmark)-1].Date)
		annualizedBench := Annualize(m.BenchmarkReturn, benchDays, cfg.AnnualizationDays)

		m.ActiveReturn = m.PeriodReturn - m.BenchmarkReturn
		m.AnnualizedActiveReturn = m.AnnualizedReturn - annualizedBench
		m.InformationRatio = InformationRatio(m.AnnualizedActiveReturn, m.TrackingError)
	}

	return m
}

// AlignReturns computes daily returns for both series restricted to their
// common dates. When fewer than two dates overlap it falls back to
// truncating the raw return series to the shorter length.
func AlignReturns(product, benchmark []NAVPoint) ([]float64, []float64) {
	benchByDate := make(map[string]float64, len(benchmark))
	for _, p := range benchmark {
		benchByDate[p.Date.Format("2006-01-02")] = p.NAV
	}

	var common []NAVPoint
	var benchCommon []NAVPoint
	for _, p := range product {
		key := p.Date.Format("2006-01-02")
		if nav, ok := benchByDate[key]; ok {
			common = append(common, p)
			benchCommon = append(benchCommon, NAVPoint{Date: p.Date, NAV: nav})
		}
	}

	if len(common) >= 2 {
		return DailyReturns(common), DailyReturns(benchCommon)
	}

	return truncateToMin(DailyReturns(product), DailyReturns(benchmark))
}

func truncateToMin(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[:n], b[:n]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStd is the population standard deviation (divide by n)
func popStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
