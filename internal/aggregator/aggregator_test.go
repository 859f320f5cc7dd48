package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

func TestNearestRankIndex_MatchesSpecFormula(t *testing.T) {
	// idx = max(0, ceil(n·p) − 1); n=10: p10 → ceil(1)-1=0, median → ceil(5)-1=4.
	assert.Equal(t, 0, nearestRankIndex(10, decimal.NewFromFloat(0.10)))
	assert.Equal(t, 4, nearestRankIndex(10, decimal.NewFromFloat(0.50)))
	assert.Equal(t, 8, nearestRankIndex(10, decimal.NewFromFloat(0.90)))
	// n=1: every quantile collapses to index 0 (spec edge case 8).
	assert.Equal(t, 0, nearestRankIndex(1, decimal.NewFromFloat(0.10)))
	assert.Equal(t, 0, nearestRankIndex(1, decimal.NewFromFloat(0.90)))
}

func yearReport(values ...float64) domain.SimulationReport {
	years := make([]domain.YearRecord, len(values))
	for i, v := range values {
		years[i] = domain.YearRecord{
			Year:               i + 1,
			PortfolioValue:     money.New(v),
			RealPortfolioValue: money.New(v),
			NetCashFlow:        money.New(v / 10),
			RealNetCashFlow:    money.New(v / 10),
		}
	}
	goal := values[len(values)-1] >= 1
	return domain.SimulationReport{
		GoalAchieved:        goal,
		FinalPortfolioValue: money.New(values[len(values)-1]),
		Years:               years,
	}
}

func TestSummarize_SingleTrialCollapsesBandsToItsOwnValue(t *testing.T) {
	// Spec edge case: num_simulations = 1 → success_rate ∈ {0,1}, bands
	// collapse to the single trial's values.
	reports := []domain.SimulationReport{yearReport(1000, 1100, 1200)}
	summary := Summarize(reports, 3)

	assert.True(t, summary.SuccessRate.Equal(decimal.NewFromInt(1)))
	require.Len(t, summary.PortfolioValueByYear, 3)
	for i, want := range []float64{1000, 1100, 1200} {
		assert.True(t, summary.PortfolioValueByYear[i].Median.Equal(decimal.NewFromFloat(want)), "year %d", i)
		assert.True(t, summary.PortfolioValueByYear[i].P10.Equal(decimal.NewFromFloat(want)), "year %d", i)
		assert.True(t, summary.PortfolioValueByYear[i].P90.Equal(decimal.NewFromFloat(want)), "year %d", i)
	}
}

func TestSummarize_SuccessRateIsFractionOfGoalAchieved(t *testing.T) {
	reports := []domain.SimulationReport{
		yearReport(100, 200),
		yearReport(100, 0),
		yearReport(100, 50),
		yearReport(100, 300),
	}
	summary := Summarize(reports, 2)
	assert.True(t, summary.SuccessRate.Equal(decimal.NewFromFloat(0.75)))
}

func TestSummarize_PerYearBandsSortAcrossTrialsIndependently(t *testing.T) {
	reports := []domain.SimulationReport{
		yearReport(10, 100),
		yearReport(30, 50),
		yearReport(20, 200),
	}
	summary := Summarize(reports, 2)

	// Year 1 values {10,20,30} sorted ascending; year 2 values {50,100,200}.
	assert.True(t, summary.PortfolioValueByYear[0].Median.Equal(decimal.NewFromInt(20)))
	assert.True(t, summary.PortfolioValueByYear[1].Median.Equal(decimal.NewFromInt(100)))
}

func TestBuildHistogram_BinsAndOverflow(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromInt(0),
		decimal.NewFromInt(249_999),
		decimal.NewFromInt(250_000),
		decimal.NewFromInt(10_000_000),
		decimal.NewFromInt(15_000_000),
	}
	bins := buildHistogram(values, finalPortfolioBinWidth, maxFinalPortfolio)

	assert.Equal(t, 2, bins[0].Count) // 0 and 249,999 both land in [0, 250k)
	assert.Equal(t, 1, bins[1].Count) // 250,000 lands in [250k, 500k)
	lastBin := bins[len(bins)-1]
	assert.Nil(t, lastBin.Upper)
	assert.Equal(t, 2, lastBin.Count) // 10M and 15M both overflow
}

func TestBuildFailureYearHistogram_OnlyCountsFirstDepletionYear(t *testing.T) {
	failsYear2 := yearReport(100, 0, 0, 0)
	failsYear3 := yearReport(100, 100, 0, 0)
	neverFails := yearReport(100, 100, 100, 100)

	hist := buildFailureYearHistogram([]domain.SimulationReport{failsYear2, failsYear3, neverFails}, 4)

	assert.Equal(t, 0, hist[0].Count) // no trial fails in year 1
	assert.Equal(t, 1, hist[1].Count) // failsYear2
	assert.Equal(t, 1, hist[2].Count) // failsYear3
	assert.Equal(t, 0, hist[3].Count)
}

func TestSummarize_MedianTimeToTargetOnlyCountsAchievedTrials(t *testing.T) {
	two := 2
	five := 5
	reports := []domain.SimulationReport{
		{GoalAchieved: true, TimeToTarget: &two, FinalPortfolioValue: money.New(1), Years: []domain.YearRecord{{PortfolioValue: money.New(1)}}},
		{GoalAchieved: true, TimeToTarget: &five, FinalPortfolioValue: money.New(1), Years: []domain.YearRecord{{PortfolioValue: money.New(1)}}},
		{GoalAchieved: false, FinalPortfolioValue: money.New(1), Years: []domain.YearRecord{{PortfolioValue: money.New(1)}}},
	}
	summary := Summarize(reports, 1)
	require.NotNil(t, summary.MedianTimeToTarget)
	assert.Equal(t, 2, *summary.MedianTimeToTarget)
}

func TestSummarizeMulti_BuildsPerStrategySuccessRateTable(t *testing.T) {
	allGood := []domain.SimulationReport{yearReport(100, 200), yearReport(100, 150)}
	halfGood := []domain.SimulationReport{yearReport(100, 200), yearReport(100, 0)}

	summary := SummarizeMulti([]StrategyReports{
		{Label: "fixed_swr", Reports: allGood},
		{Label: "cash_buffer", Reports: halfGood},
	}, 2)

	require.Len(t, summary.StrategySummaries, 2)
	assert.Equal(t, "fixed_swr", summary.StrategySummaries[0].Label)
	assert.True(t, summary.StrategySummaries[0].SuccessRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "cash_buffer", summary.StrategySummaries[1].Label)
	assert.True(t, summary.StrategySummaries[1].SuccessRate.Equal(decimal.NewFromFloat(0.5)))
}

func TestSummarize_EmptyReportsIsZeroValue(t *testing.T) {
	summary := Summarize(nil, 10)
	assert.Equal(t, 0, summary.NumSimulations)
	assert.True(t, summary.SuccessRate.IsZero())
	assert.Nil(t, summary.PortfolioValueByYear)
}
