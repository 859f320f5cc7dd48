// Package domain holds the kernel's shared data model: Portfolio state,
// per-year records, scenario output, and the report/summary types produced
// by a run. These types are passed between the scenario, strategy, tax,
// portfolio, trial, and aggregation components but owned by none of them.
package domain

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/pkg/money"
)

// Allocation is a {stocks, bonds, cash} split. Fractions are expected to sum
// to 1 within AllocationTolerance.
type Allocation struct {
	Stocks decimal.Decimal
	Bonds  decimal.Decimal
	Cash   decimal.Decimal
}

// AllocationTolerance is the epsilon invariant 3 of spec §8 allows for the
// allocation-sums-to-1 check.
var AllocationTolerance = decimal.New(1, -9)

// Sum returns Stocks + Bonds + Cash.
func (a Allocation) Sum() decimal.Decimal {
	return a.Stocks.Add(a.Bonds).Add(a.Cash)
}

// Valid reports whether the allocation sums to 1 within AllocationTolerance
// and has no negative fraction.
func (a Allocation) Valid() bool {
	if a.Stocks.IsNegative() || a.Bonds.IsNegative() || a.Cash.IsNegative() {
		return false
	}
	diff := a.Sum().Sub(decimal.NewFromInt(1)).Abs()
	return diff.LessThanOrEqual(AllocationTolerance)
}

// Portfolio is the mutable per-trial state: total asset-bucket values and
// the target allocation used on rebalance.
type Portfolio struct {
	Stocks           money.Money
	Bonds            money.Money
	Cash             money.Money
	TargetAllocation Allocation
}

// NewPortfolio builds a Portfolio from a total initial value split according
// to alloc.
func NewPortfolio(initialValue money.Money, alloc Allocation) Portfolio {
	return Portfolio{
		Stocks:           initialValue.Mul(alloc.Stocks),
		Bonds:            initialValue.Mul(alloc.Bonds),
		Cash:             initialValue.Mul(alloc.Cash),
		TargetAllocation: alloc,
	}
}

// Total returns the sum of all three buckets.
func (p Portfolio) Total() money.Money {
	return p.Stocks.Add(p.Bonds).Add(p.Cash)
}

// CurrentAllocation returns the actual (post-drift) allocation fractions.
// Returns the zero Allocation if the portfolio is fully depleted.
func (p Portfolio) CurrentAllocation() Allocation {
	total := p.Total()
	if total.IsZero() {
		return Allocation{}
	}
	return Allocation{
		Stocks: p.Stocks.Decimal.Div(total.Decimal),
		Bonds:  p.Bonds.Decimal.Div(total.Decimal),
		Cash:   p.Cash.Decimal.Div(total.Decimal),
	}
}

// YearMarket is one year's worth of asset returns and inflation, the unit
// produced by the Scenario Engine and consumed by the Portfolio.
type YearMarket struct {
	StockReturn  decimal.Decimal
	BondReturn   decimal.Decimal
	CashReturn   decimal.Decimal
	Inflation    decimal.Decimal
}

// YearRecord is the immutable per-year outcome of one trial, as produced by
// the Portfolio after applying returns, cash flow, and taxes for year Year.
type YearRecord struct {
	Year                 int
	PortfolioValue       money.Money
	Allocation           Allocation
	Market               YearMarket
	CombinedReturn       decimal.Decimal
	Contribution         money.Money
	GrossCashFlow        money.Money
	CapitalGainsTax      money.Money
	WealthTax            money.Money
	NetCashFlow          money.Money
	CumulativeInflation  decimal.Decimal
	RealPortfolioValue   money.Money
	RealNetCashFlow      money.Money
	RealContribution     money.Money
	GoalAchieved         bool
}

// SimulationReport is the per-trial output: whether the trial's goal was
// met, the final portfolio values, and the ordered year-by-year history.
type SimulationReport struct {
	GoalAchieved           bool
	FinalPortfolioValue    money.Money
	FinalRealPortfolioValue money.Money
	TimeToTarget           *int
	Years                  []YearRecord
}

// PercentileBand holds the nearest-rank quantiles of a per-year metric
// across all trials, per spec §4.7.
type PercentileBand struct {
	P10    decimal.Decimal
	P25    decimal.Decimal
	Median decimal.Decimal
	P75    decimal.Decimal
	P90    decimal.Decimal
}

// HistogramBin is one fixed-width bin of an aggregate histogram. Upper is
// nil for the overflow bin.
type HistogramBin struct {
	Lower decimal.Decimal
	Upper *decimal.Decimal
	Count int
}

// StrategySummary is one strategy's slice of a multi-strategy AggregateSummary.
type StrategySummary struct {
	Label       string
	Count       int
	SuccessRate decimal.Decimal
}

// AggregateSummary is the output of the Aggregator over a batch of trial
// reports: success rate, per-year percentile bands, histograms, and
// optional multi-strategy breakdown.
type AggregateSummary struct {
	NumSimulations int
	SuccessRate    decimal.Decimal
	SimulationYears int

	MedianTimeToTarget *int

	PortfolioValueByYear []PercentileBand // nominal, index 0 = year 1
	RealPortfolioValueByYear []PercentileBand
	IncomeByYear         []PercentileBand
	RealIncomeByYear     []PercentileBand

	FinalPortfolioHistogram []HistogramBin
	IncomeHistogram         []HistogramBin
	FailureYearHistogram    []HistogramBin

	StrategySummaries []StrategySummary
}
