package montecarlo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/logging"
	"github.com/rgehrsitz/simkernel/internal/scenario"
)

// recordingRunner drains every year from the scenario and stores the
// observed market sequence on the report, so tests can assert paired
// sampling without a full Trial Runner.
func recordingRunner(label string) Runner {
	return Runner{
		Label: label,
		Run: func(sc scenario.Scenario) (domain.SimulationReport, error) {
			var years []domain.YearRecord
			for {
				m, ok := sc.Next()
				if !ok {
					break
				}
				years = append(years, domain.YearRecord{Market: m})
			}
			return domain.SimulationReport{Years: years}, nil
		},
	}
}

func mcConfig(numSims int, seed int64) *config.Config {
	return &config.Config{
		ScenarioConfig: config.ScenarioConfig{
			Kind:          config.ScenarioMonteCarlo,
			ScenarioYears: 10,
			MonteCarlo: &config.MonteCarloScenarioConfig{
				StockMean: decimal.NewFromFloat(0.07),
				StockStd:  decimal.NewFromFloat(0.15),
			},
		},
		NumSimulations: numSims,
		Seed:           &seed,
	}
}

// S5 — Paired comparison: two runners ("strategies") must see identical
// YearMarket sequences per trial, since differences should only come from
// cash-flow decisions.
func TestS5_PairedSamplesAcrossRunners(t *testing.T) {
	cfg := mcConfig(20, 42)
	factory := scenario.NewFactory(cfg.ScenarioConfig, nil)
	runners := []Runner{recordingRunner("A"), recordingRunner("B")}

	result, err := Run(context.Background(), cfg, factory, runners, logging.NopLogger{})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)

	for trialIdx := 0; trialIdx < cfg.NumSimulations; trialIdx++ {
		a := result.Reports[0][trialIdx]
		b := result.Reports[1][trialIdx]
		require.Len(t, a.Years, len(b.Years), "trial %d", trialIdx)
		for y := range a.Years {
			assert.True(t, a.Years[y].Market.StockReturn.Equal(b.Years[y].Market.StockReturn), "trial %d year %d", trialIdx, y)
		}
	}
}

func TestResultsCollectedIntoOriginalIndices(t *testing.T) {
	cfg := mcConfig(30, 7)
	factory := scenario.NewFactory(cfg.ScenarioConfig, nil)
	runners := []Runner{recordingRunner("only")}

	result, err := Run(context.Background(), cfg, factory, runners, logging.NopLogger{})
	require.NoError(t, err)
	require.Len(t, result.Reports[0], 30)
	for i, report := range result.Reports[0] {
		require.Len(t, report.Years, 10, "trial %d", i)
	}
}

// S6 — Cancellation: an already-cancelled context yields Cancelled and no
// partial report.
func TestS6_CancellationYieldsNoPartialResult(t *testing.T) {
	cfg := mcConfig(10000, 1)
	factory := scenario.NewFactory(cfg.ScenarioConfig, nil)
	runners := []Runner{recordingRunner("only")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, cfg, factory, runners, logging.NopLogger{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, kernelerr.ErrCancelled)
}

func TestRun_RequiresAtLeastOneRunner(t *testing.T) {
	cfg := mcConfig(5, 1)
	factory := scenario.NewFactory(cfg.ScenarioConfig, nil)
	_, err := Run(context.Background(), cfg, factory, nil, logging.NopLogger{})
	require.Error(t, err)
}

func TestRun_RequiresPositiveNumSimulations(t *testing.T) {
	cfg := mcConfig(0, 1)
	factory := scenario.NewFactory(cfg.ScenarioConfig, nil)
	_, err := Run(context.Background(), cfg, factory, []Runner{recordingRunner("only")}, logging.NopLogger{})
	require.Error(t, err)
}
