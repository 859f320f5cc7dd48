// Package kernel wires the Scenario Engine, Strategy Engine, Tax Engine,
// Portfolio, Trial Runner, Monte-Carlo Runner, and Aggregator into the
// language-neutral entry surface spec §6 names: run_withdrawal,
// run_accumulation, run_combined, list_tax_regions, list_countries, and
// validate. Grounded on the teacher's top-level wiring in
// internal/calculation/montecarlo.go (NewMonteCarloSimulator composing a
// HistoricalDataManager and running trials) and cmd/*/main.go's config-load-
// then-run shape, generalized into one exported orchestrator both a CLI and
// an embedder can call.
package kernel

import (
	"context"

	"github.com/google/uuid"

	"github.com/rgehrsitz/simkernel/internal/aggregator"
	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/logging"
	"github.com/rgehrsitz/simkernel/internal/montecarlo"
	"github.com/rgehrsitz/simkernel/internal/referencedata"
	"github.com/rgehrsitz/simkernel/internal/scenario"
	"github.com/rgehrsitz/simkernel/internal/taxengine"
)

// Kernel holds the two immutable, process-resident reference-data bundles
// (spec §5: "loaded once at process start and shared read-only") and builds
// a run-tagged Logger per call.
type Kernel struct {
	historical *referencedata.HistoricalStore
	taxStore   *referencedata.TaxStore
	taxEngine  *taxengine.Engine
	newLogger  func(runID string) logging.Logger
}

// New loads both reference-data bundles and builds a Kernel with the
// default zerolog-backed, run-ID-tagged logger (spec §7).
func New() (*Kernel, error) {
	return NewWithLogger(func(runID string) logging.Logger {
		return logging.NewZerologLogger(runID)
	})
}

// NewWithLogger is New with an injectable per-run Logger constructor —
// tests and embedders that want a NopLogger (or their own sink) pass
// func(string) logging.Logger { return logging.NopLogger{} }.
func NewWithLogger(newLogger func(runID string) logging.Logger) (*Kernel, error) {
	if newLogger == nil {
		newLogger = func(string) logging.Logger { return logging.NopLogger{} }
	}
	historical, err := referencedata.LoadHistorical(newLogger(""))
	if err != nil {
		return nil, err
	}
	taxStore, err := referencedata.LoadTaxSchedules()
	if err != nil {
		return nil, err
	}
	return &Kernel{
		historical: historical,
		taxStore:   taxStore,
		taxEngine:  taxengine.New(taxStore),
		newLogger:  newLogger,
	}, nil
}

// WithdrawalReport is run_withdrawal's output (spec §6): a run ID, the
// aggregate summary (with per-strategy success rates when compare mode is
// in use), and every strategy's raw per-trial reports, indexed
// [strategy][trial] in the same order as Labels.
type WithdrawalReport struct {
	RunID   string
	Labels  []string
	Summary domain.AggregateSummary
	Trials  [][]domain.SimulationReport
}

// AccumulationReport is run_accumulation's output (spec §6): the aggregate
// summary includes median_time_to_target.
type AccumulationReport struct {
	RunID   string
	Summary domain.AggregateSummary
	Trials  []domain.SimulationReport
}

// CombinedReport is run_combined's output (spec §6): accumulation_years and
// retirement_years accompany the summary so callers can label the
// transition point on a chart.
type CombinedReport struct {
	RunID             string
	Labels            []string
	AccumulationYears int
	RetirementYears   int
	Summary           domain.AggregateSummary
	Trials            [][]domain.SimulationReport
}

// Validate checks cfg against spec §7's configuration-error list and
// returns the normalized config on success (spec §6's
// validate(config) → {valid, normalized_config} | ConfigError).
func (k *Kernel) Validate(cfg *config.Config) (*config.Config, error) {
	if err := config.NewLoader().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListTaxRegions returns every loaded country's available regions (spec
// §6's list_tax_regions() → map<country, list<region>>).
func (k *Kernel) ListTaxRegions() map[string][]string {
	return k.taxStore.ListRegions()
}

// ListCountries returns every loaded historical series' year-range metadata
// (spec §6's list_countries() → map<country, {start_year, end_year,
// num_years}>, expanded per SPEC_FULL §11).
func (k *Kernel) ListCountries() map[string]referencedata.CountryInfo {
	return k.historical.ListCountries()
}

// RunWithdrawal runs cfg.NumSimulations trials of every configured
// withdrawal strategy, paired on the same per-trial scenario (spec §4.6),
// and aggregates the results.
func (k *Kernel) RunWithdrawal(ctx context.Context, cfg *config.Config) (*WithdrawalReport, error) {
	if _, err := k.Validate(cfg); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := k.newLogger(runID)

	runners, err := montecarlo.WithdrawalRunners(cfg, k.taxEngine)
	if err != nil {
		return nil, err
	}
	factory := scenario.NewFactory(cfg.ScenarioConfig, k.historical)

	result, err := montecarlo.Run(ctx, cfg, factory, runners, log)
	if err != nil {
		return nil, err
	}

	strategies := make([]aggregator.StrategyReports, len(result.Labels))
	for i, label := range result.Labels {
		strategies[i] = aggregator.StrategyReports{Label: label, Reports: result.Reports[i]}
	}
	summary := aggregator.SummarizeMulti(strategies, cfg.SimulationYears)

	return &WithdrawalReport{
		RunID:   runID,
		Labels:  result.Labels,
		Summary: summary,
		Trials:  result.Reports,
	}, nil
}

// RunAccumulation runs cfg.NumSimulations accumulation-phase trials and
// aggregates the results, including median_time_to_target when cfg has a
// TargetValue.
func (k *Kernel) RunAccumulation(ctx context.Context, cfg *config.Config) (*AccumulationReport, error) {
	if _, err := k.Validate(cfg); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := k.newLogger(runID)

	runner := montecarlo.AccumulationRunner(cfg, k.taxEngine)
	factory := scenario.NewFactory(cfg.ScenarioConfig, k.historical)

	result, err := montecarlo.Run(ctx, cfg, factory, []montecarlo.Runner{runner}, log)
	if err != nil {
		return nil, err
	}

	summary := aggregator.Summarize(result.Reports[0], cfg.SimulationYears)
	return &AccumulationReport{RunID: runID, Summary: summary, Trials: result.Reports[0]}, nil
}

// RunCombined runs cfg.NumSimulations trials of accumulation immediately
// followed by withdrawal, per configured strategy, paired on the same
// per-trial scenario (spec §6).
func (k *Kernel) RunCombined(ctx context.Context, cfg *config.Config) (*CombinedReport, error) {
	if _, err := k.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.AccumulationYears <= 0 {
		return nil, kernelerr.NewConfigError("accumulation_years", "must be positive for run_combined, got %d", cfg.AccumulationYears)
	}
	if cfg.RetirementYears <= 0 {
		return nil, kernelerr.NewConfigError("retirement_years", "must be positive for run_combined, got %d", cfg.RetirementYears)
	}
	if want := cfg.AccumulationYears + cfg.RetirementYears; cfg.ScenarioConfig.ScenarioYears != want {
		return nil, kernelerr.NewConfigError("scenario_config.scenario_years", "must equal accumulation_years + retirement_years (%d), got %d", want, cfg.ScenarioConfig.ScenarioYears)
	}

	runID := uuid.NewString()
	log := k.newLogger(runID)

	runners, err := montecarlo.CombinedRunners(cfg, k.taxEngine)
	if err != nil {
		return nil, err
	}
	factory := scenario.NewFactory(cfg.ScenarioConfig, k.historical)

	result, err := montecarlo.Run(ctx, cfg, factory, runners, log)
	if err != nil {
		return nil, err
	}

	strategies := make([]aggregator.StrategyReports, len(result.Labels))
	for i, label := range result.Labels {
		strategies[i] = aggregator.StrategyReports{Label: label, Reports: result.Reports[i]}
	}
	summary := aggregator.SummarizeMulti(strategies, cfg.AccumulationYears+cfg.RetirementYears)

	return &CombinedReport{
		RunID:             runID,
		Labels:            result.Labels,
		AccumulationYears: cfg.AccumulationYears,
		RetirementYears:   cfg.RetirementYears,
		Summary:           summary,
		Trials:            result.Reports,
	}, nil
}
