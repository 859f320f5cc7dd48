// Package scenario implements the Scenario Engine: a finite, per-trial
// lazy sequence of YearMarket produced either by historical block
// bootstrap or by independent-year Monte Carlo normal sampling (spec
// §4.1). Grounded on the teacher's internal/calculation/historical.go for
// the historical-series shape and internal/calculation/montecarlo.go for
// the per-trial independent-draw idiom, generalized to the bootstrap
// algorithm and RNG contract spec §4.1/§9 require.
package scenario

import (
	"math/rand"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/referencedata"
)

// Scenario is the lazy sequence the Trial Runner pulls one YearMarket at a
// time from. Next returns false once exactly the configured number of years
// has been emitted.
type Scenario interface {
	Next() (domain.YearMarket, bool)
}

// DeriveSeed mixes a master seed with a trial index via a splitmix64-style
// round so that every trial gets a distinct, reproducible RNG stream.
// Deliberately independent of any strategy index — spec §9's paired-sample
// contract requires seeds to be a function of (master_seed, trial_index)
// only, so multi-strategy comparisons reuse the same scenario per trial.
func DeriveSeed(masterSeed int64, trialIndex int) int64 {
	x := uint64(masterSeed) + uint64(trialIndex)*0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}

// minTotalReturn is the floor applied to each year's stock and bond return
// (cash and inflation are not clipped), so the stock and bond buckets cannot
// go negative from one year's market move — spec §9 Open Question 1,
// resolved by clipping each of those asset returns at -99.9%.
var minTotalReturn = decimal.NewFromFloat(-0.999)

// clipReturn enforces minTotalReturn.
func clipReturn(r decimal.Decimal) decimal.Decimal {
	if r.LessThan(minTotalReturn) {
		return minTotalReturn
	}
	return r
}

// Historical replays a block-bootstrapped sequence from a country's
// recorded series (spec §4.1's historical bootstrap variant). The block
// sequence is computed once at construction — the Scenario Engine emits
// from that materialized slice, matching spec §9's "historical bootstrap
// materialises only the selected block sequence" (not the full cross
// product of possible blocks).
type Historical struct {
	years []domain.YearMarket
	pos   int
}

// NewHistorical builds the block-bootstrapped year sequence per spec §4.1.
//
// Block pool: block i (0 ≤ i < numYears) is the chunk_years-length run
// starting at historical index i, wrapping modulo numYears. When shuffle is
// false, blocks are drawn in sequential, non-overlapping order starting at
// index 0 (or a uniformly random index when randomize_start is set),
// advancing by chunk_years and wrapping — this is the S4 contract. When
// shuffle is true, blocks are drawn independently and uniformly at random
// (with replacement) from the full overlapping pool; randomize_start has no
// additional effect in that mode since every draw is already uniform.
func NewHistorical(cfg config.HistoricalScenarioConfig, scenarioYears int, series referencedata.CountrySeries, seed int64) (*Historical, error) {
	numYears := series.NumYears()
	if numYears == 0 {
		return nil, kernelerr.NewConfigError("scenario_config.historical.country", "country %q has no historical data", cfg.Country)
	}

	chunk := 1
	if cfg.ChunkYears != nil && *cfg.ChunkYears > 0 {
		chunk = *cfg.ChunkYears
	}
	if chunk > numYears {
		return nil, kernelerr.NewConfigError("scenario_config.historical.chunk_years", "chunk_years %d exceeds series length %d", chunk, numYears)
	}

	rng := rand.New(rand.NewSource(seed))

	startIndex := 0
	if cfg.RandomizeStart {
		startIndex = rng.Intn(numYears)
	}

	var years []domain.YearMarket
	blockStart := startIndex
	for len(years) < scenarioYears {
		if cfg.Shuffle {
			blockStart = rng.Intn(numYears)
		}
		for j := 0; j < chunk && len(years) < scenarioYears; j++ {
			idx := (blockStart + j) % numYears
			y := series.Years[idx]
			years = append(years, domain.YearMarket{
				StockReturn: clipReturn(y.Stock),
				BondReturn:  clipReturn(y.Bond),
				CashReturn:  cfg.CashReturn,
				Inflation:   y.Inflation,
			})
		}
		if !cfg.Shuffle {
			blockStart = (blockStart + chunk) % numYears
		}
	}

	return &Historical{years: years[:scenarioYears]}, nil
}

// Next implements Scenario.
func (h *Historical) Next() (domain.YearMarket, bool) {
	if h.pos >= len(h.years) {
		return domain.YearMarket{}, false
	}
	y := h.years[h.pos]
	h.pos++
	return y, true
}

// MonteCarlo draws stock, bond, and inflation independently from normal
// distributions each year; cash is the configured constant. No cross-asset
// correlation (spec §4.1).
type MonteCarlo struct {
	stock         distuv.Normal
	bond          distuv.Normal
	inflation     distuv.Normal
	cashReturn    decimal.Decimal
	scenarioYears int
	emitted       int
}

// NewMonteCarlo builds a MonteCarlo scenario. Negative standard deviations
// are a configuration error (spec §4.1).
func NewMonteCarlo(cfg config.MonteCarloScenarioConfig, scenarioYears int, seed int64) (*MonteCarlo, error) {
	for path, std := range map[string]decimal.Decimal{
		"scenario_config.monte_carlo.stock_std":     cfg.StockStd,
		"scenario_config.monte_carlo.bond_std":      cfg.BondStd,
		"scenario_config.monte_carlo.inflation_std": cfg.InflationStd,
	} {
		if std.IsNegative() {
			return nil, kernelerr.NewConfigError(path, "standard deviation must be ≥ 0, got %s", std)
		}
	}

	src := rand.NewSource(seed)
	stockMean, _ := cfg.StockMean.Float64()
	stockStd, _ := cfg.StockStd.Float64()
	bondMean, _ := cfg.BondMean.Float64()
	bondStd, _ := cfg.BondStd.Float64()
	inflMean, _ := cfg.InflationMean.Float64()
	inflStd, _ := cfg.InflationStd.Float64()

	return &MonteCarlo{
		stock:         distuv.Normal{Mu: stockMean, Sigma: stockStd, Src: src},
		bond:          distuv.Normal{Mu: bondMean, Sigma: bondStd, Src: src},
		inflation:     distuv.Normal{Mu: inflMean, Sigma: inflStd, Src: src},
		cashReturn:    cfg.CashReturn,
		scenarioYears: scenarioYears,
	}, nil
}

// Next implements Scenario, drawing a fresh independent sample per call.
func (mc *MonteCarlo) Next() (domain.YearMarket, bool) {
	if mc.emitted >= mc.scenarioYears {
		return domain.YearMarket{}, false
	}
	mc.emitted++
	return domain.YearMarket{
		StockReturn: clipReturn(decimal.NewFromFloat(mc.stock.Rand())),
		BondReturn:  clipReturn(decimal.NewFromFloat(mc.bond.Rand())),
		CashReturn:  mc.cashReturn,
		Inflation:   decimal.NewFromFloat(mc.inflation.Rand()),
	}, true
}

// Factory builds a fresh Scenario for a given seed. The Monte-Carlo Runner
// calls it once per (trial, strategy) pair rather than sharing a Scenario
// instance — Next() mutates internal position, so paired-sample determinism
// across strategies (spec §9) is achieved by reconstructing an identical
// sequence from the same seed, not by sharing state across goroutines.
type Factory func(seed int64) (Scenario, error)

// NewFactory closes over a ScenarioConfig and HistoricalStore so the
// Monte-Carlo Runner only needs to supply a seed per call.
func NewFactory(cfg config.ScenarioConfig, historical *referencedata.HistoricalStore) Factory {
	return func(seed int64) (Scenario, error) {
		return New(cfg, historical, seed)
	}
}

// New builds the Scenario Engine variant selected by cfg.Kind.
func New(cfg config.ScenarioConfig, historical *referencedata.HistoricalStore, seed int64) (Scenario, error) {
	switch cfg.Kind {
	case config.ScenarioHistorical:
		if cfg.Historical == nil {
			return nil, kernelerr.NewConfigError("scenario_config.historical", "historical config required")
		}
		series, err := historical.Series(cfg.Historical.Country)
		if err != nil {
			return nil, err
		}
		return NewHistorical(*cfg.Historical, cfg.ScenarioYears, series, seed)
	case config.ScenarioMonteCarlo:
		if cfg.MonteCarlo == nil {
			return nil, kernelerr.NewConfigError("scenario_config.monte_carlo", "monte_carlo config required")
		}
		return NewMonteCarlo(*cfg.MonteCarlo, cfg.ScenarioYears, seed)
	default:
		return nil, kernelerr.NewConfigError("scenario_config.kind", "unknown scenario kind %q", cfg.Kind)
	}
}
