package output

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernel"
)

// ConsoleFormatter renders a concise human-readable summary of a kernel
// report, mirroring the teacher's single-buffer fmt.Fprintf console style.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

// FormatWithdrawal renders run_withdrawal's output: one success-rate line
// per strategy (for compare mode), then the shared percentile/histogram
// summary.
func (c ConsoleFormatter) FormatWithdrawal(r *kernel.WithdrawalReport) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "WITHDRAWAL SIMULATION SUMMARY")
	fmt.Fprintln(&buf, "=============================")
	fmt.Fprintf(&buf, "Run ID: %s\n\n", r.RunID)
	writeStrategyTable(&buf, r.Summary)
	writeSummaryBody(&buf, r.Summary)
	return buf.Bytes()
}

// FormatAccumulation renders run_accumulation's output, including
// median_time_to_target when the config set a target value.
func (c ConsoleFormatter) FormatAccumulation(r *kernel.AccumulationReport) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "ACCUMULATION SIMULATION SUMMARY")
	fmt.Fprintln(&buf, "===============================")
	fmt.Fprintf(&buf, "Run ID: %s\n\n", r.RunID)
	writeSummaryBody(&buf, r.Summary)
	return buf.Bytes()
}

// FormatCombined renders run_combined's output, labeling the
// accumulation→withdrawal transition year.
func (c ConsoleFormatter) FormatCombined(r *kernel.CombinedReport) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "COMBINED SIMULATION SUMMARY")
	fmt.Fprintln(&buf, "===========================")
	fmt.Fprintf(&buf, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(&buf, "Accumulation: years 1-%d, Retirement: years %d-%d\n\n",
		r.AccumulationYears, r.AccumulationYears+1, r.AccumulationYears+r.RetirementYears)
	writeStrategyTable(&buf, r.Summary)
	writeSummaryBody(&buf, r.Summary)
	return buf.Bytes()
}

func writeStrategyTable(buf *bytes.Buffer, summary domain.AggregateSummary) {
	if len(summary.StrategySummaries) <= 1 {
		return
	}
	fmt.Fprintln(buf, "Per-strategy success rate:")
	for _, s := range summary.StrategySummaries {
		fmt.Fprintf(buf, "  %-24s %s (%d trials)\n", s.Label, formatPercentage(s.SuccessRate), s.Count)
	}
	fmt.Fprintln(buf)
}

func writeSummaryBody(buf *bytes.Buffer, summary domain.AggregateSummary) {
	fmt.Fprintf(buf, "Simulations: %d over %d years\n", summary.NumSimulations, summary.SimulationYears)
	fmt.Fprintf(buf, "Success rate: %s\n", formatPercentage(summary.SuccessRate))
	if summary.MedianTimeToTarget != nil {
		fmt.Fprintf(buf, "Median time to target: %d years\n", *summary.MedianTimeToTarget)
	}

	if band, ok := lastBand(summary.PortfolioValueByYear); ok {
		fmt.Fprintf(buf, "\nFinal-year portfolio value (year %d):\n", len(summary.PortfolioValueByYear))
		writeBand(buf, band)
	}
	if band, ok := lastBand(summary.RealPortfolioValueByYear); ok {
		fmt.Fprintf(buf, "\nFinal-year real portfolio value (year %d):\n", len(summary.RealPortfolioValueByYear))
		writeBand(buf, band)
	}

	writeHistogram(buf, "\nFinal portfolio value histogram:", summary.FinalPortfolioHistogram)
	writeHistogram(buf, "\nIncome histogram:", summary.IncomeHistogram)
	writeHistogram(buf, "\nFailure year histogram:", summary.FailureYearHistogram)
}

func lastBand(bands []domain.PercentileBand) (domain.PercentileBand, bool) {
	if len(bands) == 0 {
		return domain.PercentileBand{}, false
	}
	return bands[len(bands)-1], true
}

func writeBand(buf *bytes.Buffer, band domain.PercentileBand) {
	fmt.Fprintf(buf, "  P10=%s P25=%s Median=%s P75=%s P90=%s\n",
		decString(band.P10), decString(band.P25), decString(band.Median), decString(band.P75), decString(band.P90))
}

func writeHistogram(buf *bytes.Buffer, title string, bins []domain.HistogramBin) {
	if len(bins) == 0 {
		return
	}
	fmt.Fprintln(buf, title)
	for _, b := range bins {
		if b.Upper == nil {
			fmt.Fprintf(buf, "  [%s, ∞): %d\n", decString(b.Lower), b.Count)
			continue
		}
		fmt.Fprintf(buf, "  [%s, %s): %d\n", decString(b.Lower), decString(*b.Upper), b.Count)
	}
}

func decString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatPercentage(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}
