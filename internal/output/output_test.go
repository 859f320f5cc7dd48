package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernel"
)

func sampleSummary() domain.AggregateSummary {
	band := domain.PercentileBand{
		P10:    decimal.NewFromInt(100),
		P25:    decimal.NewFromInt(200),
		Median: decimal.NewFromInt(300),
		P75:    decimal.NewFromInt(400),
		P90:    decimal.NewFromInt(500),
	}
	upper := decimal.NewFromInt(250000)
	return domain.AggregateSummary{
		NumSimulations:  10,
		SimulationYears: 2,
		SuccessRate:     decimal.NewFromFloat(0.9),
		PortfolioValueByYear:     []domain.PercentileBand{band, band},
		RealPortfolioValueByYear: []domain.PercentileBand{band, band},
		IncomeByYear:             []domain.PercentileBand{band, band},
		RealIncomeByYear:         []domain.PercentileBand{band, band},
		FinalPortfolioHistogram: []domain.HistogramBin{
			{Lower: decimal.Zero, Upper: &upper, Count: 7},
			{Lower: upper, Upper: nil, Count: 3},
		},
		StrategySummaries: []domain.StrategySummary{
			{Label: "fixed_swr", Count: 5, SuccessRate: decimal.NewFromFloat(0.8)},
			{Label: "hebeler", Count: 5, SuccessRate: decimal.NewFromFloat(1.0)},
		},
	}
}

func TestConsoleFormatter_FormatWithdrawal_IncludesStrategyTable(t *testing.T) {
	r := &kernel.WithdrawalReport{RunID: "run-1", Labels: []string{"fixed_swr", "hebeler"}, Summary: sampleSummary()}
	out := ConsoleFormatter{}.FormatWithdrawal(r)
	s := string(out)
	assert.Contains(t, s, "run-1")
	assert.Contains(t, s, "fixed_swr")
	assert.Contains(t, s, "90.0%")
}

func TestConsoleFormatter_FormatCombined_LabelsTransitionYear(t *testing.T) {
	r := &kernel.CombinedReport{RunID: "run-2", AccumulationYears: 5, RetirementYears: 3, Summary: sampleSummary()}
	out := ConsoleFormatter{}.FormatCombined(r)
	assert.Contains(t, string(out), "Accumulation: years 1-5, Retirement: years 6-8")
}

func TestJSONFormatter_RoundTrips(t *testing.T) {
	r := &kernel.AccumulationReport{RunID: "run-3", Summary: sampleSummary()}
	data, err := JSONFormatter{}.Format(r)
	require.NoError(t, err)

	var decoded kernel.AccumulationReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-3", decoded.RunID)
	assert.True(t, decoded.Summary.SuccessRate.Equal(decimal.NewFromFloat(0.9)))
}

func TestSummaryCSVReport_GenerateAllCSVReports(t *testing.T) {
	dir := t.TempDir()
	report := &SummaryCSVReport{Summary: sampleSummary()}
	require.NoError(t, report.GenerateAllCSVReports(dir))

	for _, name := range []string{
		"overview.csv", "percentile_bands.csv",
		"final_portfolio_histogram.csv", "income_histogram.csv", "failure_year_histogram.csv",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
