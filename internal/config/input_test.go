package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/simkernel/internal/domain"
)

const validYAML = `
initial_portfolio:
  value: "1000000"
  allocation:
    stocks: "1"
    bonds: "0"
    cash: "0"
rebalance: false
scenario_config:
  kind: monte_carlo
  scenario_years: 25
  monte_carlo:
    stock_mean: "0"
    stock_std: "0"
    bond_mean: "0"
    bond_std: "0"
    inflation_mean: "0"
    inflation_std: "0"
    cash_return: "0"
strategy_config:
  kind: fixed_swr
  fixed_swr:
    withdrawal_rate: "0.04"
    minimum_withdrawal: "0"
tax_config:
  country: none
  region: ""
  adjust_brackets_with_inflation: false
simulation_years: 25
num_simulations: 1
`

func TestLoadFromBytes_Valid(t *testing.T) {
	l := NewLoader()
	cfg, err := l.LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 25, cfg.SimulationYears)
	assert.Equal(t, ScenarioMonteCarlo, cfg.ScenarioConfig.Kind)
	assert.Len(t, cfg.Strategies(), 1)
}

func TestValidate_RejectsBadAllocation(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadFromBytes([]byte(`
initial_portfolio:
  value: "1000"
  allocation:
    stocks: "0.5"
    bonds: "0.6"
    cash: "0"
scenario_config:
  kind: monte_carlo
  scenario_years: 1
  monte_carlo: {}
strategy_config:
  kind: fixed_swr
  fixed_swr:
    withdrawal_rate: "0.04"
    minimum_withdrawal: "0"
tax_config:
  country: none
simulation_years: 1
num_simulations: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocation")
}

func TestValidate_RejectsNonPositiveSimulationYears(t *testing.T) {
	l := NewLoader()
	cfg := &Config{SimulationYears: 0, NumSimulations: 1}
	err := l.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulation_years")
}

func TestValidate_CombinedModeAcceptsZeroSimulationYears(t *testing.T) {
	l := NewLoader()
	cfg := baseValidConfig()
	cfg.SimulationYears = 0
	cfg.AccumulationYears = 5
	cfg.RetirementYears = 3
	err := l.Validate(cfg)
	require.NoError(t, err)
}

func TestValidate_CombinedModeRejectsMissingRetirementYears(t *testing.T) {
	l := NewLoader()
	cfg := baseValidConfig()
	cfg.SimulationYears = 0
	cfg.AccumulationYears = 5
	err := l.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retirement_years")
}

func TestValidate_RejectsEmptyStrategyList(t *testing.T) {
	l := NewLoader()
	cfg := baseValidConfig()
	cfg.StrategyConfig = nil
	cfg.StrategyConfigs = nil
	err := l.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy_config")
}

func TestValidate_RejectsMissingTaxRegion(t *testing.T) {
	l := NewLoader()
	cfg := baseValidConfig()
	cfg.TaxConfig = TaxConfig{Country: "US"} // region missing
	err := l.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tax_config.region")
}

func validAllocation() domain.Allocation {
	return domain.Allocation{
		Stocks: decimal.NewFromInt(1),
		Bonds:  decimal.Zero,
		Cash:   decimal.Zero,
	}
}

func baseValidConfig() *Config {
	return &Config{
		SimulationYears: 10,
		NumSimulations:  1,
		InitialPortfolio: InitialPortfolioConfig{
			Allocation: validAllocation(),
		},
		ScenarioConfig: ScenarioConfig{
			Kind:          ScenarioMonteCarlo,
			ScenarioYears: 10,
			MonteCarlo:    &MonteCarloScenarioConfig{},
		},
		StrategyConfig: &StrategyConfig{
			Kind:     StrategyFixedSWR,
			FixedSWR: &FixedSWRConfig{},
		},
		TaxConfig: TaxConfig{Country: "none"},
	}
}
