// Package config defines the kernel's Config object (spec §6) and its YAML
// loading/validation, generalized from the teacher's InputParser pattern in
// the original internal/config/input.go.
package config

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// ScenarioKind tags which Scenario Engine variant a ScenarioConfig selects.
type ScenarioKind string

const (
	ScenarioHistorical ScenarioKind = "historical"
	ScenarioMonteCarlo ScenarioKind = "monte_carlo"
)

// HistoricalScenarioConfig parameterizes the historical-bootstrap variant
// (spec §4.1).
type HistoricalScenarioConfig struct {
	Country        string          `yaml:"country"`
	ChunkYears     *int            `yaml:"chunk_years"`
	Shuffle        bool            `yaml:"shuffle"`
	RandomizeStart bool            `yaml:"randomize_start"`
	CashReturn     decimal.Decimal `yaml:"cash_return"`
}

// MonteCarloScenarioConfig parameterizes the Monte Carlo normal-sampling
// variant (spec §4.1).
type MonteCarloScenarioConfig struct {
	StockMean     decimal.Decimal `yaml:"stock_mean"`
	StockStd      decimal.Decimal `yaml:"stock_std"`
	BondMean      decimal.Decimal `yaml:"bond_mean"`
	BondStd       decimal.Decimal `yaml:"bond_std"`
	InflationMean decimal.Decimal `yaml:"inflation_mean"`
	InflationStd  decimal.Decimal `yaml:"inflation_std"`
	CashReturn    decimal.Decimal `yaml:"cash_return"`
}

// ScenarioConfig is the tagged-variant config for the Scenario Engine.
type ScenarioConfig struct {
	Kind          ScenarioKind              `yaml:"kind"`
	ScenarioYears int                       `yaml:"scenario_years"`
	Historical    *HistoricalScenarioConfig `yaml:"historical,omitempty"`
	MonteCarlo    *MonteCarloScenarioConfig `yaml:"monte_carlo,omitempty"`
}

// StrategyKind tags which Strategy Engine variant a StrategyConfig selects
// (spec §4.3).
type StrategyKind string

const (
	StrategyFixedSWR       StrategyKind = "fixed_swr"
	StrategyConstantDollar StrategyKind = "constant_dollar"
	StrategyHebelerAPII    StrategyKind = "hebeler_autopilot_ii"
	StrategyCashBuffer     StrategyKind = "cash_buffer"
)

// FixedSWRConfig parameterizes the Fixed SWR strategy.
type FixedSWRConfig struct {
	WithdrawalRate    decimal.Decimal  `yaml:"withdrawal_rate"`
	MinimumWithdrawal money.Money      `yaml:"minimum_withdrawal"`
	MaximumWithdrawal *money.Money     `yaml:"maximum_withdrawal"`
}

// ConstantDollarConfig parameterizes the Constant Dollar strategy.
type ConstantDollarConfig struct {
	WithdrawalAmount money.Money `yaml:"withdrawal_amount"`
}

// HebelerAutopilotIIConfig parameterizes the Hebeler Autopilot II strategy.
type HebelerAutopilotIIConfig struct {
	InitialWithdrawalRate   decimal.Decimal `yaml:"initial_withdrawal_rate"`
	PreviousWithdrawalWeight decimal.Decimal `yaml:"previous_withdrawal_weight"`
	PayoutHorizon           int             `yaml:"payout_horizon"`
	MinimumWithdrawal       money.Money     `yaml:"minimum_withdrawal"`
}

// CashBufferConfig parameterizes the Cash Buffer strategy.
type CashBufferConfig struct {
	WithdrawalRateBuffer decimal.Decimal `yaml:"withdrawal_rate_buffer"`
	SubsistenceWithdrawal money.Money    `yaml:"subsistence_withdrawal"`
	StandardWithdrawal    money.Money    `yaml:"standard_withdrawal"`
	MaximumWithdrawal     money.Money    `yaml:"maximum_withdrawal"`
	BufferTarget          money.Money    `yaml:"buffer_target"`
}

// StrategyConfig is the tagged-variant config for one Strategy Engine
// instance, optionally labeled for multi-strategy comparison output.
type StrategyConfig struct {
	Kind               StrategyKind              `yaml:"kind"`
	Label              string                    `yaml:"label,omitempty"`
	FixedSWR           *FixedSWRConfig           `yaml:"fixed_swr,omitempty"`
	ConstantDollar     *ConstantDollarConfig     `yaml:"constant_dollar,omitempty"`
	HebelerAutopilotII *HebelerAutopilotIIConfig `yaml:"hebeler_autopilot_ii,omitempty"`
	CashBuffer         *CashBufferConfig         `yaml:"cash_buffer,omitempty"`
}

// TaxConfig names the region whose Tax Engine schedule applies, and whether
// bracket thresholds are inflation-indexed year over year (spec §4.2).
type TaxConfig struct {
	Country                     string `yaml:"country"`
	Region                      string `yaml:"region"`
	AdjustBracketsWithInflation bool   `yaml:"adjust_brackets_with_inflation"`
}

// InitialPortfolioConfig is the starting Portfolio value and allocation.
type InitialPortfolioConfig struct {
	Value      money.Money       `yaml:"value"`
	Allocation domain.Allocation `yaml:"allocation"`
}

// Config is the kernel's full run configuration (spec §6). Exactly one of
// StrategyConfig or StrategyConfigs should be set: a single strategy run or
// a multi-strategy comparison.
type Config struct {
	InitialPortfolio InitialPortfolioConfig `yaml:"initial_portfolio"`
	Rebalance        bool                   `yaml:"rebalance"`
	ScenarioConfig   ScenarioConfig         `yaml:"scenario_config"`
	StrategyConfig   *StrategyConfig        `yaml:"strategy_config,omitempty"`
	StrategyConfigs  []StrategyConfig       `yaml:"strategy_configs,omitempty"`
	TaxConfig        TaxConfig              `yaml:"tax_config"`
	SimulationYears  int                    `yaml:"simulation_years"`
	NumSimulations   int                    `yaml:"num_simulations"`
	Seed             *int64                 `yaml:"seed,omitempty"`

	// Accumulation-only.
	MonthlySavings decimal.Decimal `yaml:"monthly_savings,omitempty"`
	AnnualIncrease decimal.Decimal `yaml:"annual_increase,omitempty"`
	TargetValue    *money.Money    `yaml:"target_value,omitempty"`

	// Combined-mode only (run_combined, spec §6): the accumulation phase
	// runs for AccumulationYears, then feeds its ending portfolio into a
	// withdrawal phase running for RetirementYears, per-trial.
	AccumulationYears int `yaml:"accumulation_years,omitempty"`
	RetirementYears   int `yaml:"retirement_years,omitempty"`
}

// Strategies returns the configured strategy list regardless of whether the
// config used the single-strategy or compare-mode field.
func (c *Config) Strategies() []StrategyConfig {
	if c.StrategyConfig != nil {
		return []StrategyConfig{*c.StrategyConfig}
	}
	return c.StrategyConfigs
}
