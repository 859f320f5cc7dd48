// Package trial implements the Trial Runner: the per-trial year-by-year
// state machine that composes the Scenario Engine, Strategy Engine, Tax
// Engine, and Portfolio into a SimulationReport (spec §4.5). Grounded on
// the teacher's per-year loop shape in internal/calculation/deterministic.go
// and the per-trial loop body of montecarlo.go's runSingleSimulation,
// generalized from FERS-specific TSP projection to the spec's withdrawal
// and accumulation pipelines.
package trial

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/portfolio"
	"github.com/rgehrsitz/simkernel/internal/scenario"
	"github.com/rgehrsitz/simkernel/internal/strategy"
	"github.com/rgehrsitz/simkernel/internal/taxengine"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// inflationTracker keeps the two cumulative-inflation figures the kernel
// needs: cumulative inflation through the previous year (feeds tax bracket
// indexing and every strategy's cumulative_inflation(k) term) and through
// the current year (used to deflate this year's nominal figures to real
// terms, per spec §3's real_x = x / cumulative_inflation_k).
type inflationTracker struct {
	throughPrevYear decimal.Decimal
}

func newInflationTracker() *inflationTracker {
	return &inflationTracker{throughPrevYear: decimal.NewFromInt(1)}
}

// advance returns (cumulative through previous year, cumulative through
// this year) for a year whose inflation rate is infl, and updates the
// tracker for the next year.
func (t *inflationTracker) advance(infl decimal.Decimal) (prev, current decimal.Decimal) {
	prev = t.throughPrevYear
	current = prev.Mul(decimal.NewFromInt(1).Add(infl))
	t.throughPrevYear = current
	return prev, current
}

func realValue(nominal money.Money, cumulativeInflation decimal.Decimal) money.Money {
	if cumulativeInflation.IsZero() {
		return nominal
	}
	return nominal.Div(cumulativeInflation)
}

// zeroYearRecord fills the remaining post-depletion years with
// zero-portfolio records so that per-year chart axes align across trials,
// per spec §4.5 failure semantics and Open Question 3.
func zeroYearRecord(year int, cumInflPrev, cumInflCurrent decimal.Decimal, alloc domain.Allocation) domain.YearRecord {
	return domain.YearRecord{
		Year:                year,
		PortfolioValue:      money.Zero(),
		Allocation:          alloc,
		CumulativeInflation: cumInflCurrent,
		RealPortfolioValue:  money.Zero(),
		GoalAchieved:        false,
	}
}

// RunWithdrawal executes one trial's withdrawal-phase loop: each year draws
// a market, applies returns, asks strat for a target net withdrawal, solves
// gross via taxEngine, applies the cash flow and tax with overflow, and
// optionally rebalances (spec §4.4/§4.5).
func RunWithdrawal(cfg *config.Config, strat strategy.Strategy, sc scenario.Scenario, taxEngine *taxengine.Engine) (domain.SimulationReport, error) {
	region := taxengine.Region{Country: cfg.TaxConfig.Country, Region: cfg.TaxConfig.Region}
	adjustBrackets := cfg.TaxConfig.AdjustBracketsWithInflation

	p := domain.NewPortfolio(cfg.InitialPortfolio.Value, cfg.InitialPortfolio.Allocation)
	infl := newInflationTracker()

	report := domain.SimulationReport{}
	failed := false

	for year := 1; year <= cfg.SimulationYears; year++ {
		if failed {
			report.Years = append(report.Years, zeroYearRecord(year, decimal.Zero, decimal.Zero, p.TargetAllocation))
			continue
		}

		market, ok := sc.Next()
		if !ok {
			break
		}
		cumInflPrev, cumInflCurrent := infl.advance(market.Inflation)

		startOfYear := p
		p = portfolio.ApplyReturns(p, market)
		combinedReturn, nonCashReturn := portfolio.CombinedReturn(startOfYear, market)
		portfolioValue := p.Total()

		targetNet := strat.TargetNet(strategy.WithdrawInput{
			Year:                   year,
			CumulativeInflation:    cumInflPrev,
			PortfolioValue:         portfolioValue,
			PreviousPortfolioValue: startOfYear.Total(),
			PreviousCombinedReturn: combinedReturn,
			PreviousNonCashReturn:  nonCashReturn,
			PreviousCashReturn:     market.CashReturn,
		})

		gross, err := taxEngine.GrossFromNet(region, targetNet, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		incomeTax, err := taxEngine.IncomeTax(region, gross, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}
		wealthTax, err := taxEngine.WealthTax(region, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		var shortfall money.Money
		p, shortfall = portfolio.ApplyCashFlow(p, gross.Mul(decimal.NewFromInt(-1)))
		totalTax := incomeTax.Add(wealthTax)
		var taxShortfall money.Money
		p, taxShortfall = portfolio.PayTax(p, totalTax)

		if cfg.Rebalance {
			p = portfolio.Rebalance(p)
		}

		endValue := p.Total()
		netCashFlow := gross.Sub(incomeTax).Sub(wealthTax)

		record := domain.YearRecord{
			Year:                year,
			PortfolioValue:      endValue,
			Allocation:          p.CurrentAllocation(),
			Market:              market,
			CombinedReturn:      combinedReturn,
			GrossCashFlow:       gross,
			CapitalGainsTax:     incomeTax,
			WealthTax:           wealthTax,
			NetCashFlow:         netCashFlow,
			CumulativeInflation: cumInflCurrent,
			RealPortfolioValue:  realValue(endValue, cumInflCurrent),
			RealNetCashFlow:     realValue(netCashFlow, cumInflCurrent),
			GoalAchieved:        true,
		}

		if endValue.LessThan(money.New(1)) || shortfall.IsPositive() || taxShortfall.IsPositive() {
			failed = true
			record.GoalAchieved = false
		}
		report.Years = append(report.Years, record)
	}

	report.GoalAchieved = !failed
	if len(report.Years) > 0 {
		last := report.Years[len(report.Years)-1]
		report.FinalPortfolioValue = last.PortfolioValue
		report.FinalRealPortfolioValue = last.RealPortfolioValue
	}
	return report, nil
}

// RunAccumulation executes one trial's accumulation-phase loop: each year
// draws a market, applies returns, contributes the standalone accumulation
// formula, pays wealth tax only (capital-gains tax is zero by design during
// accumulation — spec §9 Open Question 4), and checks target_value.
func RunAccumulation(cfg *config.Config, sc scenario.Scenario, taxEngine *taxengine.Engine) (domain.SimulationReport, error) {
	region := taxengine.Region{Country: cfg.TaxConfig.Country, Region: cfg.TaxConfig.Region}
	adjustBrackets := cfg.TaxConfig.AdjustBracketsWithInflation

	p := domain.NewPortfolio(cfg.InitialPortfolio.Value, cfg.InitialPortfolio.Allocation)
	infl := newInflationTracker()

	report := domain.SimulationReport{}
	failed := false
	var timeToTarget *int

	for year := 1; year <= cfg.SimulationYears; year++ {
		market, ok := sc.Next()
		if !ok {
			break
		}
		cumInflPrev, cumInflCurrent := infl.advance(market.Inflation)

		p = portfolio.ApplyReturns(p, market)
		portfolioValue := p.Total()

		contribution := strategy.Contribute(year, money.NewFromDecimal(cfg.MonthlySavings), cfg.AnnualIncrease)

		wealthTax, err := taxEngine.WealthTax(region, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		var shortfall money.Money
		p, shortfall = portfolio.ApplyCashFlow(p, contribution)
		var taxShortfall money.Money
		p, taxShortfall = portfolio.PayTax(p, wealthTax)

		if cfg.Rebalance {
			p = portfolio.Rebalance(p)
		}

		endValue := p.Total()

		goalAchieved := true
		if endValue.LessThan(money.New(1)) || shortfall.IsPositive() || taxShortfall.IsPositive() {
			failed = true
			goalAchieved = false
		}

		if cfg.TargetValue != nil && timeToTarget == nil && endValue.GreaterThanOrEqual(*cfg.TargetValue) {
			y := year
			timeToTarget = &y
		}

		report.Years = append(report.Years, domain.YearRecord{
			Year:                year,
			PortfolioValue:      endValue,
			Allocation:          p.CurrentAllocation(),
			Market:              market,
			Contribution:        contribution,
			WealthTax:           wealthTax,
			CumulativeInflation: cumInflCurrent,
			RealPortfolioValue:  realValue(endValue, cumInflCurrent),
			RealContribution:    realValue(contribution, cumInflCurrent),
			GoalAchieved:        goalAchieved,
		})

		if failed {
			for y := year + 1; y <= cfg.SimulationYears; y++ {
				report.Years = append(report.Years, zeroYearRecord(y, decimal.Zero, decimal.Zero, p.TargetAllocation))
			}
			break
		}
		if timeToTarget != nil {
			break
		}
	}

	report.GoalAchieved = !failed && (cfg.TargetValue == nil || timeToTarget != nil)
	report.TimeToTarget = timeToTarget
	if len(report.Years) > 0 {
		last := report.Years[len(report.Years)-1]
		report.FinalPortfolioValue = last.PortfolioValue
		report.FinalRealPortfolioValue = last.RealPortfolioValue
	}
	return report, nil
}

// RunCombined executes one trial's accumulation phase (cfg.AccumulationYears)
// followed immediately by its withdrawal phase (cfg.RetirementYears) against
// the same scenario iterator, portfolio, and inflation tracker — the
// accumulation phase's ending portfolio becomes the withdrawal phase's
// starting wealth, and year numbering continues across the transition (spec
// §6: "accumulation phase feeds its ending portfolios into the withdrawal
// phase, per-trial"). stratCfg builds the withdrawal strategy only after the
// accumulation phase ends, since Fixed SWR and Hebeler Autopilot II both fix
// their "initial portfolio value" at construction (see FixedSWR's
// trial-start semantics) — in combined mode that value is the accumulation
// phase's ending balance, not cfg.InitialPortfolio.Value, so the Strategy
// can't be built up front.
func RunCombined(cfg *config.Config, stratCfg config.StrategyConfig, sc scenario.Scenario, taxEngine *taxengine.Engine) (domain.SimulationReport, error) {
	region := taxengine.Region{Country: cfg.TaxConfig.Country, Region: cfg.TaxConfig.Region}
	adjustBrackets := cfg.TaxConfig.AdjustBracketsWithInflation

	p := domain.NewPortfolio(cfg.InitialPortfolio.Value, cfg.InitialPortfolio.Allocation)
	infl := newInflationTracker()

	report := domain.SimulationReport{}
	failed := false
	totalYears := cfg.AccumulationYears + cfg.RetirementYears

	for year := 1; year <= cfg.AccumulationYears; year++ {
		if failed {
			report.Years = append(report.Years, zeroYearRecord(year, decimal.Zero, decimal.Zero, p.TargetAllocation))
			continue
		}

		market, ok := sc.Next()
		if !ok {
			break
		}
		cumInflPrev, cumInflCurrent := infl.advance(market.Inflation)

		p = portfolio.ApplyReturns(p, market)
		portfolioValue := p.Total()

		contribution := strategy.Contribute(year, money.NewFromDecimal(cfg.MonthlySavings), cfg.AnnualIncrease)

		wealthTax, err := taxEngine.WealthTax(region, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		var shortfall money.Money
		p, shortfall = portfolio.ApplyCashFlow(p, contribution)
		var taxShortfall money.Money
		p, taxShortfall = portfolio.PayTax(p, wealthTax)

		if cfg.Rebalance {
			p = portfolio.Rebalance(p)
		}

		endValue := p.Total()
		goalAchieved := true
		if endValue.LessThan(money.New(1)) || shortfall.IsPositive() || taxShortfall.IsPositive() {
			failed = true
			goalAchieved = false
		}

		report.Years = append(report.Years, domain.YearRecord{
			Year:                year,
			PortfolioValue:      endValue,
			Allocation:          p.CurrentAllocation(),
			Market:              market,
			Contribution:        contribution,
			WealthTax:           wealthTax,
			CumulativeInflation: cumInflCurrent,
			RealPortfolioValue:  realValue(endValue, cumInflCurrent),
			RealContribution:    realValue(contribution, cumInflCurrent),
			GoalAchieved:        goalAchieved,
		})
	}

	var strat strategy.Strategy
	if !failed {
		var err error
		strat, err = strategy.New(stratCfg, p.Total())
		if err != nil {
			return domain.SimulationReport{}, err
		}
	}

	for year := cfg.AccumulationYears + 1; year <= totalYears; year++ {
		if failed {
			report.Years = append(report.Years, zeroYearRecord(year, decimal.Zero, decimal.Zero, p.TargetAllocation))
			continue
		}

		market, ok := sc.Next()
		if !ok {
			break
		}
		cumInflPrev, cumInflCurrent := infl.advance(market.Inflation)

		startOfYear := p
		p = portfolio.ApplyReturns(p, market)
		combinedReturn, nonCashReturn := portfolio.CombinedReturn(startOfYear, market)
		portfolioValue := p.Total()

		targetNet := strat.TargetNet(strategy.WithdrawInput{
			Year:                   year - cfg.AccumulationYears,
			CumulativeInflation:    cumInflPrev,
			PortfolioValue:         portfolioValue,
			PreviousPortfolioValue: startOfYear.Total(),
			PreviousCombinedReturn: combinedReturn,
			PreviousNonCashReturn:  nonCashReturn,
			PreviousCashReturn:     market.CashReturn,
		})

		gross, err := taxEngine.GrossFromNet(region, targetNet, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		incomeTax, err := taxEngine.IncomeTax(region, gross, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}
		wealthTax, err := taxEngine.WealthTax(region, portfolioValue, cumInflPrev, adjustBrackets)
		if err != nil {
			return domain.SimulationReport{}, err
		}

		var shortfall money.Money
		p, shortfall = portfolio.ApplyCashFlow(p, gross.Mul(decimal.NewFromInt(-1)))
		totalTax := incomeTax.Add(wealthTax)
		var taxShortfall money.Money
		p, taxShortfall = portfolio.PayTax(p, totalTax)

		if cfg.Rebalance {
			p = portfolio.Rebalance(p)
		}

		endValue := p.Total()
		netCashFlow := gross.Sub(incomeTax).Sub(wealthTax)

		record := domain.YearRecord{
			Year:                year,
			PortfolioValue:      endValue,
			Allocation:          p.CurrentAllocation(),
			Market:              market,
			CombinedReturn:      combinedReturn,
			GrossCashFlow:       gross,
			CapitalGainsTax:     incomeTax,
			WealthTax:           wealthTax,
			NetCashFlow:         netCashFlow,
			CumulativeInflation: cumInflCurrent,
			RealPortfolioValue:  realValue(endValue, cumInflCurrent),
			RealNetCashFlow:     realValue(netCashFlow, cumInflCurrent),
			GoalAchieved:        true,
		}

		if endValue.LessThan(money.New(1)) || shortfall.IsPositive() || taxShortfall.IsPositive() {
			failed = true
			record.GoalAchieved = false
		}
		report.Years = append(report.Years, record)
	}

	report.GoalAchieved = !failed
	if len(report.Years) > 0 {
		last := report.Years[len(report.Years)-1]
		report.FinalPortfolioValue = last.PortfolioValue
		report.FinalRealPortfolioValue = last.RealPortfolioValue
	}
	return report, nil
}
