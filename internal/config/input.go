package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rgehrsitz/simkernel/internal/kernelerr"
)

// Loader parses and validates Config objects, mirroring the structure of
// the teacher's InputParser: a stateless file-reader plus a field-by-field
// validator that reports the first offending path via ConfigError.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFromFile reads and parses a YAML config file, then validates it.
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}
	return l.LoadFromBytes(data)
}

// LoadFromBytes parses raw YAML bytes into a Config, then validates it.
func (l *Loader) LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a Config against spec §7's configuration-error list,
// returning the first violation as a *kernelerr.ConfigError with a field
// path.
func (l *Loader) Validate(cfg *Config) error {
	combined := cfg.AccumulationYears > 0 || cfg.RetirementYears > 0
	if combined {
		if cfg.AccumulationYears <= 0 {
			return kernelerr.NewConfigError("accumulation_years", "must be positive, got %d", cfg.AccumulationYears)
		}
		if cfg.RetirementYears <= 0 {
			return kernelerr.NewConfigError("retirement_years", "must be positive, got %d", cfg.RetirementYears)
		}
	} else if cfg.SimulationYears <= 0 {
		return kernelerr.NewConfigError("simulation_years", "must be positive, got %d", cfg.SimulationYears)
	}
	if cfg.NumSimulations <= 0 {
		return kernelerr.NewConfigError("num_simulations", "must be positive, got %d", cfg.NumSimulations)
	}

	if !cfg.InitialPortfolio.Allocation.Valid() {
		return kernelerr.NewConfigError("initial_portfolio.allocation", "fractions must be non-negative and sum to 1 (got %s)", cfg.InitialPortfolio.Allocation.Sum())
	}
	if cfg.InitialPortfolio.Value.IsNegative() {
		return kernelerr.NewConfigError("initial_portfolio.value", "must be non-negative")
	}

	if err := l.validateScenarioConfig(&cfg.ScenarioConfig); err != nil {
		return err
	}

	strategies := cfg.Strategies()
	if len(strategies) == 0 {
		return kernelerr.NewConfigError("strategy_config", "at least one strategy is required")
	}
	for i, sc := range strategies {
		if err := l.validateStrategyConfig(i, &sc); err != nil {
			return err
		}
	}

	if err := l.validateTaxConfig(&cfg.TaxConfig); err != nil {
		return err
	}

	return nil
}

func (l *Loader) validateScenarioConfig(sc *ScenarioConfig) error {
	if sc.ScenarioYears <= 0 {
		return kernelerr.NewConfigError("scenario_config.scenario_years", "must be positive, got %d", sc.ScenarioYears)
	}
	switch sc.Kind {
	case ScenarioHistorical:
		if sc.Historical == nil {
			return kernelerr.NewConfigError("scenario_config.historical", "required for kind=historical")
		}
		if sc.Historical.Country == "" {
			return kernelerr.NewConfigError("scenario_config.historical.country", "must not be empty")
		}
		if sc.Historical.ChunkYears != nil && *sc.Historical.ChunkYears < 1 {
			return kernelerr.NewConfigError("scenario_config.historical.chunk_years", "must be ≥ 1 if set")
		}
	case ScenarioMonteCarlo:
		if sc.MonteCarlo == nil {
			return kernelerr.NewConfigError("scenario_config.monte_carlo", "required for kind=monte_carlo")
		}
		mc := sc.MonteCarlo
		for path, std := range map[string]decimal.Decimal{
			"scenario_config.monte_carlo.stock_std":     mc.StockStd,
			"scenario_config.monte_carlo.bond_std":      mc.BondStd,
			"scenario_config.monte_carlo.inflation_std": mc.InflationStd,
		} {
			if std.IsNegative() {
				return kernelerr.NewConfigError(path, "standard deviation must be non-negative")
			}
		}
	default:
		return kernelerr.NewConfigError("scenario_config.kind", "unknown scenario kind %q", sc.Kind)
	}
	return nil
}

func (l *Loader) validateStrategyConfig(i int, sc *StrategyConfig) error {
	path := fmt.Sprintf("strategy_configs[%d]", i)
	switch sc.Kind {
	case StrategyFixedSWR:
		if sc.FixedSWR == nil {
			return kernelerr.NewConfigError(path, "fixed_swr block is required for kind=fixed_swr")
		}
		if sc.FixedSWR.WithdrawalRate.IsNegative() {
			return kernelerr.NewConfigError(path+".fixed_swr.withdrawal_rate", "must be non-negative")
		}
	case StrategyConstantDollar:
		if sc.ConstantDollar == nil {
			return kernelerr.NewConfigError(path, "constant_dollar block is required for kind=constant_dollar")
		}
	case StrategyHebelerAPII:
		if sc.HebelerAutopilotII == nil {
			return kernelerr.NewConfigError(path, "hebeler_autopilot_ii block is required for kind=hebeler_autopilot_ii")
		}
		h := sc.HebelerAutopilotII
		if h.PreviousWithdrawalWeight.IsNegative() || h.PreviousWithdrawalWeight.GreaterThan(decimal.NewFromInt(1)) {
			return kernelerr.NewConfigError(path+".hebeler_autopilot_ii.previous_withdrawal_weight", "must be in [0,1]")
		}
		if h.PayoutHorizon <= 0 {
			return kernelerr.NewConfigError(path+".hebeler_autopilot_ii.payout_horizon", "must be positive")
		}
	case StrategyCashBuffer:
		if sc.CashBuffer == nil {
			return kernelerr.NewConfigError(path, "cash_buffer block is required for kind=cash_buffer")
		}
	default:
		return kernelerr.NewConfigError(path+".kind", "unknown strategy kind %q", sc.Kind)
	}
	return nil
}

func (l *Loader) validateTaxConfig(tc *TaxConfig) error {
	if tc.Country == "" {
		return kernelerr.NewConfigError("tax_config.country", "must not be empty (use \"none\" for zero tax)")
	}
	if tc.Country != "none" && tc.Region == "" {
		return kernelerr.NewConfigError("tax_config.region", "required unless country is \"none\"")
	}
	return nil
}
