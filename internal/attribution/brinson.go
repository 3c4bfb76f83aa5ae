package attribution

import (
	"math"
	"sort"
)

// IndustryMap resolves an instrument to its industry grouping key
type IndustryMap interface {
	Industry(instrument string) string
}

// UnknownIndustry is the sentinel for instruments without a mapping
const UnknownIndustry = "unknown"

// GroupStat is one grouping key's weight and return, both as fractions
type GroupStat struct {
	Key    string
	Weight float64
	Return float64
}

// Config makes the missing-benchmark defaults explicit instead of baking
// zeros in. A grouping key absent from the benchmark contributes these
// values; zero means "the benchmark holds nothing and earns nothing
// there".
type Config struct {
	MissingBenchmarkWeight float64
	MissingBenchmarkReturn float64
}

// Row is one grouping key's Brinson decomposition. Effects are fractions;
// the percent fields are already multiplied by 100 for reporting.
type Row struct {
	Key            string  `json:"key"`
	WeightPct      float64 `json:"weight_pct"`
	BenchWeightPct float64 `json:"bench_weight_pct"`
	ReturnPct      float64 `json:"return_pct"`
	BenchReturnPct float64 `json:"bench_return_pct"`
	Allocation     float64 `json:"allocation"`
	Selection      float64 `json:"selection"`
}

// Result is the two-term Brinson decomposition of excess return
type Result struct {
	Allocation  float64 `json:"allocation"`
	Selection   float64 `json:"selection"`
	TotalExcess float64 `json:"total_excess"`
	Rows        []Row   `json:"rows"`
}

// Brinson decomposes excess return over the benchmark into allocation and
// selection effects across the union of grouping keys:
//
//	allocation = sum (Wp - Wb) * Rb
//	selection  = sum Wp * (Rp - Rb)
func Brinson(product, benchmark []GroupStat, cfg Config) Result {
	productByKey := make(map[string]GroupStat, len(product))
	var order []string
	for _, g := range product {
		productByKey[g.Key] = g
		order = append(order, g.Key)
	}

	benchByKey := make(map[string]GroupStat, len(benchmark))
	for _, g := range benchmark {
		benchByKey[g.Key] = g
		if _, ok := productByKey[g.Key]; !ok {
			order = append(order, g.Key)
		}
	}

	var result Result
	for _, key := range order {
		p := productByKey[key] // zero value when benchmark-only
		b, ok := benchByKey[key]
		if !ok {
			b = GroupStat{
				Key:    key,
				Weight: cfg.MissingBenchmarkWeight,
				Return: cfg.MissingBenchmarkReturn,
			}
		}

		allocation := (p.Weight - b.Weight) * b.Return
		selection := p.Weight * (p.Return - b.Return)

		result.Allocation += allocation
		result.Selection += selection
		result.Rows = append(result.Rows, Row{
			Key:            key,
			WeightPct:      p.Weight * 100,
			BenchWeightPct: b.Weight * 100,
			ReturnPct:      p.Return * 100,
			BenchReturnPct: b.Return * 100,
			Allocation:     allocation,
			Selection:      selection,
		})
	}

	result.TotalExcess = result.Allocation + result.Selection

	sort.Slice(result.Rows, func(i, j int) bool {
		return result.Rows[i].Key < result.Rows[j].Key
	})
	return result
}

// NormalizeFraction coerces percent-style inputs into fractions. Exports
// sometimes deliver weights and returns already multiplied by 100; any
// magnitude above 1 is treated that way.
func NormalizeFraction(v float64) float64 {
	if math.Abs(v) > 1.0 {
		return v / 100
	}
	return v
}
