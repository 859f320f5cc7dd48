// Package aggregator turns a batch of per-trial SimulationReports into the
// AggregateSummary a caller actually wants: success rate, per-year percentile
// bands, fixed-width histograms, and the failure-year distribution (spec
// §4.7). Grounded on the teacher's calculatePercentileRanges/
// calculateMedianEndingBalance/calculateSuccessRate in
// internal/calculation/montecarlo.go, generalized from a single ending-balance
// percentile set to per-year bands over four metrics, and from the teacher's
// bubble sort to sort.Slice plus the spec's exact nearest-rank index formula
// instead of the teacher's `n/10`-style integer division.
package aggregator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// quantilePoints are the five bands spec §4.7 asks for, in order.
var quantilePoints = []decimal.Decimal{
	decimal.NewFromFloat(0.10),
	decimal.NewFromFloat(0.25),
	decimal.NewFromFloat(0.50),
	decimal.NewFromFloat(0.75),
	decimal.NewFromFloat(0.90),
}

// nearestRankIndex implements spec §4.7's exact quantile convention:
// idx = max(0, ceil(n·p) − 1). n is assumed > 0.
func nearestRankIndex(n int, p decimal.Decimal) int {
	rank := p.Mul(decimal.NewFromInt(int64(n)))
	idx := int(math.Ceil(rankFloat(rank))) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func rankFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// band computes the nearest-rank p10/p25/median/p75/p90 of an already-sorted
// ascending slice.
func band(sorted []decimal.Decimal) domain.PercentileBand {
	if len(sorted) == 0 {
		return domain.PercentileBand{}
	}
	n := len(sorted)
	values := make([]decimal.Decimal, len(quantilePoints))
	for i, p := range quantilePoints {
		values[i] = sorted[nearestRankIndex(n, p)]
	}
	return domain.PercentileBand{
		P10:    values[0],
		P25:    values[1],
		Median: values[2],
		P75:    values[3],
		P90:    values[4],
	}
}

func sortDecimals(values []decimal.Decimal) {
	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })
}

// buildHistogram bins values into fixed-width buckets [0, width), [width,
// 2*width), ... up to maxValue, with a final unbounded overflow bin for
// anything ≥ maxValue (spec §4.7: "€250k bins up to €10M (overflow >10M)"
// style histograms).
func buildHistogram(values []decimal.Decimal, width, maxValue decimal.Decimal) []domain.HistogramBin {
	numBins := int(maxValue.Div(width).IntPart())
	bins := make([]domain.HistogramBin, numBins+1)
	for i := 0; i < numBins; i++ {
		lower := width.Mul(decimal.NewFromInt(int64(i)))
		upper := width.Mul(decimal.NewFromInt(int64(i + 1)))
		bins[i] = domain.HistogramBin{Lower: lower, Upper: &upper}
	}
	bins[numBins] = domain.HistogramBin{Lower: maxValue, Upper: nil}

	for _, v := range values {
		if v.IsNegative() {
			bins[0].Count++
			continue
		}
		if v.GreaterThanOrEqual(maxValue) {
			bins[numBins].Count++
			continue
		}
		idx := int(v.Div(width).IntPart())
		if idx >= numBins {
			idx = numBins - 1
		}
		bins[idx].Count++
	}
	return bins
}

// finalPortfolioBinWidth/MaxFinalPortfolio and incomeBinWidth/MaxIncome are
// the fixed bin parameters spec §4.7 names explicitly.
var (
	finalPortfolioBinWidth = decimal.NewFromInt(250_000)
	maxFinalPortfolio      = decimal.NewFromInt(10_000_000)
	incomeBinWidth         = decimal.NewFromInt(5_000)
	maxIncome              = decimal.NewFromInt(100_000)
)

// buildFailureYearHistogram bins the first year each failed trial's
// portfolio_value dropped below 1 into 1-year-wide bins over
// [1, simulationYears]. Trials that never fail (goal achieved) contribute
// nothing — there is no "first failure year" to record.
func buildFailureYearHistogram(reports []domain.SimulationReport, simulationYears int) []domain.HistogramBin {
	bins := make([]domain.HistogramBin, simulationYears)
	for i := 0; i < simulationYears; i++ {
		lower := decimal.NewFromInt(int64(i + 1))
		upper := decimal.NewFromInt(int64(i + 2))
		bins[i] = domain.HistogramBin{Lower: lower, Upper: &upper}
	}

	one := decimal.NewFromInt(1)
	for _, r := range reports {
		for _, y := range r.Years {
			if y.PortfolioValue.LessThan(money.NewFromDecimal(one)) {
				if y.Year >= 1 && y.Year <= simulationYears {
					bins[y.Year-1].Count++
				}
				break
			}
		}
	}
	return bins
}

// perYearBands computes a PercentileBand for each year index across every
// trial, reading the metric named by extract. Trials shorter than
// simulationYears (an accumulation trial that stops on reaching its target;
// depletion pads with zero records instead) are skipped for years beyond
// their length.
func perYearBands(reports []domain.SimulationReport, simulationYears int, extract func(domain.YearRecord) decimal.Decimal) []domain.PercentileBand {
	bands := make([]domain.PercentileBand, simulationYears)
	for yearIdx := 0; yearIdx < simulationYears; yearIdx++ {
		values := make([]decimal.Decimal, 0, len(reports))
		for _, r := range reports {
			if yearIdx < len(r.Years) {
				values = append(values, extract(r.Years[yearIdx]))
			}
		}
		sortDecimals(values)
		bands[yearIdx] = band(values)
	}
	return bands
}

// Summarize aggregates one runner's per-trial reports into an
// AggregateSummary (spec §4.7). simulationYears is the horizon every padded
// report shares.
func Summarize(reports []domain.SimulationReport, simulationYears int) domain.AggregateSummary {
	summary := domain.AggregateSummary{
		NumSimulations:  len(reports),
		SimulationYears: simulationYears,
	}
	if len(reports) == 0 {
		return summary
	}

	successCount := 0
	finalValues := make([]decimal.Decimal, 0, len(reports))
	avgIncomes := make([]decimal.Decimal, 0, len(reports))
	timesToTarget := make([]decimal.Decimal, 0, len(reports))

	for _, r := range reports {
		if r.GoalAchieved {
			successCount++
		}
		finalValues = append(finalValues, r.FinalPortfolioValue.Decimal)
		avgIncomes = append(avgIncomes, averageAnnualIncome(r))
		if r.TimeToTarget != nil {
			timesToTarget = append(timesToTarget, decimal.NewFromInt(int64(*r.TimeToTarget)))
		}
	}

	summary.SuccessRate = decimal.NewFromInt(int64(successCount)).Div(decimal.NewFromInt(int64(len(reports))))

	if len(timesToTarget) > 0 {
		sortDecimals(timesToTarget)
		median := timesToTarget[nearestRankIndex(len(timesToTarget), decimal.NewFromFloat(0.5))]
		medianInt := int(median.IntPart())
		summary.MedianTimeToTarget = &medianInt
	}

	summary.PortfolioValueByYear = perYearBands(reports, simulationYears, func(y domain.YearRecord) decimal.Decimal {
		return y.PortfolioValue.Decimal
	})
	summary.RealPortfolioValueByYear = perYearBands(reports, simulationYears, func(y domain.YearRecord) decimal.Decimal {
		return y.RealPortfolioValue.Decimal
	})
	summary.IncomeByYear = perYearBands(reports, simulationYears, func(y domain.YearRecord) decimal.Decimal {
		return y.NetCashFlow.Decimal
	})
	summary.RealIncomeByYear = perYearBands(reports, simulationYears, func(y domain.YearRecord) decimal.Decimal {
		return y.RealNetCashFlow.Decimal
	})

	summary.FinalPortfolioHistogram = buildHistogram(finalValues, finalPortfolioBinWidth, maxFinalPortfolio)
	summary.IncomeHistogram = buildHistogram(avgIncomes, incomeBinWidth, maxIncome)
	summary.FailureYearHistogram = buildFailureYearHistogram(reports, simulationYears)

	return summary
}

// averageAnnualIncome is a trial's mean per-year net cash flow, the "income"
// value the final income histogram bins — the natural per-trial scalar
// analogous to FinalPortfolioValue for the portfolio histogram (spec §4.7
// names the histogram's bin width and ceiling but not which per-trial income
// scalar feeds it; a single trial-level figure is required since the
// histogram is over trials, not trial-years).
func averageAnnualIncome(r domain.SimulationReport) decimal.Decimal {
	if len(r.Years) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, y := range r.Years {
		total = total.Add(y.NetCashFlow.Decimal)
	}
	return total.Div(decimal.NewFromInt(int64(len(r.Years))))
}

// StrategyReports pairs a runner's label with its per-trial reports, the
// input shape the multi-strategy comparison entry points (run_withdrawal's
// and run_combined's strategy_configs list, spec §6) produce.
type StrategyReports struct {
	Label   string
	Reports []domain.SimulationReport
}

// SummarizeMulti aggregates several strategies' reports independently (each
// via Summarize) and additionally fills StrategySummaries so a compare-mode
// caller gets a per-strategy success-rate table without re-walking every
// trial (spec §9's paired-sample comparisons surface through this).
// The returned AggregateSummary's own per-year bands and histograms are
// those of the first strategy — callers that need all strategies' own bands
// should call Summarize per strategy and read StrategySummaries for the
// cross-strategy comparison table.
func SummarizeMulti(strategies []StrategyReports, simulationYears int) domain.AggregateSummary {
	if len(strategies) == 0 {
		return domain.AggregateSummary{SimulationYears: simulationYears}
	}

	summary := Summarize(strategies[0].Reports, simulationYears)
	summary.StrategySummaries = make([]domain.StrategySummary, len(strategies))
	for i, s := range strategies {
		successCount := 0
		for _, r := range s.Reports {
			if r.GoalAchieved {
				successCount++
			}
		}
		rate := decimal.Zero
		if len(s.Reports) > 0 {
			rate = decimal.NewFromInt(int64(successCount)).Div(decimal.NewFromInt(int64(len(s.Reports))))
		}
		summary.StrategySummaries[i] = domain.StrategySummary{
			Label:       s.Label,
			Count:       len(s.Reports),
			SuccessRate: rate,
		}
	}
	return summary
}
