// Package montecarlo implements the Monte-Carlo Runner: parallel fan-out
// over independent trials (and, in compare mode, over strategies sharing
// paired scenarios), collecting results into their original indices before
// returning (spec §4.6/§5). Grounded on the teacher's semaphore-bounded
// goroutine pool in internal/calculation/montecarlo.go's RunSimulation,
// generalized with context cancellation polled between trials and
// deterministic per-trial seeding.
package montecarlo

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/logging"
	"github.com/rgehrsitz/simkernel/internal/scenario"
	"github.com/rgehrsitz/simkernel/internal/strategy"
	"github.com/rgehrsitz/simkernel/internal/taxengine"
	"github.com/rgehrsitz/simkernel/internal/trial"
)

// Runner is one labeled way of turning a Scenario into a SimulationReport —
// either a withdrawal strategy or the single accumulation pipeline.
type Runner struct {
	Label string
	Run   func(sc scenario.Scenario) (domain.SimulationReport, error)
}

// WithdrawalRunners builds one Runner per configured strategy (spec §4.3),
// each building a fresh Strategy from its config on every trial so mutable state
// (Hebeler's previous withdrawal, Cash Buffer's accumulator) never leaks
// across strategies or trials.
func WithdrawalRunners(cfg *config.Config, taxEngine *taxengine.Engine) ([]Runner, error) {
	strategyConfigs := cfg.Strategies()
	if len(strategyConfigs) == 0 {
		return nil, kernelerr.NewConfigError("strategy_config", "at least one strategy is required")
	}
	runners := make([]Runner, 0, len(strategyConfigs))
	for _, sCfg := range strategyConfigs {
		label := sCfg.Label
		if label == "" {
			label = string(sCfg.Kind)
		}
		sCfg := sCfg
		runners = append(runners, Runner{
			Label: label,
			Run: func(sc scenario.Scenario) (domain.SimulationReport, error) {
				strat, err := strategy.New(sCfg, cfg.InitialPortfolio.Value)
				if err != nil {
					return domain.SimulationReport{}, err
				}
				return trial.RunWithdrawal(cfg, strat, sc, taxEngine)
			},
		})
	}
	return runners, nil
}

// CombinedRunners builds one Runner per configured strategy (spec §4.3),
// each running RunCombined's accumulation-then-withdrawal pipeline per trial
// (spec §6's run_combined).
func CombinedRunners(cfg *config.Config, taxEngine *taxengine.Engine) ([]Runner, error) {
	strategyConfigs := cfg.Strategies()
	if len(strategyConfigs) == 0 {
		return nil, kernelerr.NewConfigError("strategy_config", "at least one strategy is required")
	}
	runners := make([]Runner, 0, len(strategyConfigs))
	for _, sCfg := range strategyConfigs {
		label := sCfg.Label
		if label == "" {
			label = string(sCfg.Kind)
		}
		sCfg := sCfg
		runners = append(runners, Runner{
			Label: label,
			Run: func(sc scenario.Scenario) (domain.SimulationReport, error) {
				return trial.RunCombined(cfg, sCfg, sc, taxEngine)
			},
		})
	}
	return runners, nil
}

// AccumulationRunner builds the single Runner for accumulation-phase trials
// — accumulation has no strategy variant (spec §4.3's Contribute formula is
// strategy-independent).
func AccumulationRunner(cfg *config.Config, taxEngine *taxengine.Engine) Runner {
	return Runner{
		Label: "accumulation",
		Run: func(sc scenario.Scenario) (domain.SimulationReport, error) {
			return trial.RunAccumulation(cfg, sc, taxEngine)
		},
	}
}

// Result holds every runner's per-trial reports, indexed [runner][trial] in
// original trial order regardless of completion order.
type Result struct {
	Labels  []string
	Reports [][]domain.SimulationReport
}

// Run fans cfg.NumSimulations trials out across a worker pool bounded by
// runtime.GOMAXPROCS(0). Every runner sees the same per-trial scenario
// sequence (same seed, fresh Scenario instance per runner) so multi-strategy
// comparisons are paired samples (spec §9) — only cash-flow decisions
// differ, not market draws. Cancellation is polled between trial dispatches,
// never mid-trial; on cancellation the partial result is discarded and
// kernelerr.ErrCancelled is returned.
func Run(ctx context.Context, cfg *config.Config, scenarioFactory scenario.Factory, runners []Runner, log logging.Logger) (*Result, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	if len(runners) == 0 {
		return nil, kernelerr.NewConfigError("strategy_config", "at least one runner is required")
	}
	if cfg.NumSimulations <= 0 {
		return nil, kernelerr.NewConfigError("num_simulations", "must be positive, got %d", cfg.NumSimulations)
	}

	// Progress logging is throttled independently of trial throughput so a
	// large run doesn't flood the log with one line per completed trial.
	progressLimiter := rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	var completed int

	var masterSeed int64
	if cfg.Seed != nil {
		masterSeed = *cfg.Seed
	}

	reports := make([][]domain.SimulationReport, len(runners))
	for i := range reports {
		reports[i] = make([]domain.SimulationReport, cfg.NumSimulations)
	}

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	cancelled := false

	for trialIndex := 0; trialIndex < cfg.NumSimulations; trialIndex++ {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		seed := scenario.DeriveSeed(masterSeed, trialIndex)
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, seed int64) {
			defer wg.Done()
			defer func() { <-sem }()
			for r, runner := range runners {
				sc, err := scenarioFactory(seed)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				report, err := runner.Run(sc)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				reports[r][idx] = report
			}

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()
			if progressLimiter.Allow() {
				log.Infof("completed %d/%d trials", n, cfg.NumSimulations)
			}
		}(trialIndex, seed)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, kernelerr.ErrCancelled
	}
	if firstErr != nil {
		return nil, firstErr
	}

	labels := make([]string, len(runners))
	for i, r := range runners {
		labels[i] = r.Label
	}
	return &Result{Labels: labels, Reports: reports}, nil
}
