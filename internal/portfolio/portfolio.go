// Package portfolio implements the Portfolio's single per-year operation:
// apply returns, apply cash flow with cash→bonds→stocks overflow, pay taxes
// with the same overflow, and optionally rebalance (spec §4.4); the Trial
// Runner records the year. Grounded on the teacher's updateTSPBalances in
// internal/calculation/tsp.go, whose Roth-then-Traditional overflow account
// priority becomes cash→bonds→stocks overflow priority here.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// ApplyReturns multiplies each asset bucket by (1 + its return), step 1 of
// spec §4.4.
func ApplyReturns(p domain.Portfolio, market domain.YearMarket) domain.Portfolio {
	one := decimal.NewFromInt(1)
	return domain.Portfolio{
		Stocks:           p.Stocks.Mul(one.Add(market.StockReturn)),
		Bonds:            p.Bonds.Mul(one.Add(market.BondReturn)),
		Cash:             p.Cash.Mul(one.Add(market.CashReturn)),
		TargetAllocation: p.TargetAllocation,
	}
}

// drain subtracts amount from the portfolio, overflowing from cash into
// bonds then stocks when cash is insufficient, clamping every bucket at 0.
// It returns the portfolio after the draw and the shortfall left unfunded
// if even stocks ran out — the Trial Runner treats a positive shortfall as
// a trial failure signal.
func drain(p domain.Portfolio, amount money.Money) (domain.Portfolio, money.Money) {
	if !amount.IsPositive() {
		return p, money.Zero()
	}
	remaining := amount

	fromCash := money.Min(remaining, p.Cash)
	p.Cash = p.Cash.Sub(fromCash)
	remaining = remaining.Sub(fromCash)

	fromBonds := money.Min(remaining, p.Bonds)
	p.Bonds = p.Bonds.Sub(fromBonds)
	remaining = remaining.Sub(fromBonds)

	fromStocks := money.Min(remaining, p.Stocks)
	p.Stocks = p.Stocks.Sub(fromStocks)
	remaining = remaining.Sub(fromStocks)

	p.Cash = money.Max(p.Cash, money.Zero())
	p.Bonds = money.Max(p.Bonds, money.Zero())
	p.Stocks = money.Max(p.Stocks, money.Zero())

	return p, remaining
}

// ApplyCashFlow adds a contribution or drains a gross withdrawal, per spec
// §4.4 step 2. A positive netFlow is an accumulation contribution added to
// cash; a negative netFlow is a withdrawal's gross cash flow drained from
// the portfolio with cash→bonds→stocks overflow. It returns the updated
// portfolio and any shortfall (always zero for a contribution).
func ApplyCashFlow(p domain.Portfolio, netFlow money.Money) (domain.Portfolio, money.Money) {
	if !netFlow.IsNegative() {
		p.Cash = p.Cash.Add(netFlow)
		return p, money.Zero()
	}
	return drain(p, netFlow.Mul(decimal.NewFromInt(-1)))
}

// PayTax drains combined tax due with cash→bonds→stocks overflow, step 3 of
// spec §4.4. It returns the updated portfolio and any shortfall.
func PayTax(p domain.Portfolio, tax money.Money) (domain.Portfolio, money.Money) {
	return drain(p, tax)
}

// Rebalance resets every bucket to total · TargetAllocation, step 4 of spec
// §4.4, when the config requests it.
func Rebalance(p domain.Portfolio) domain.Portfolio {
	total := p.Total()
	return domain.Portfolio{
		Stocks:           total.Mul(p.TargetAllocation.Stocks),
		Bonds:            total.Mul(p.TargetAllocation.Bonds),
		Cash:             total.Mul(p.TargetAllocation.Cash),
		TargetAllocation: p.TargetAllocation,
	}
}

// CombinedReturn computes the portfolio-weighted return for the year from
// the allocation in effect before returns were applied, and separately the
// non-cash-weighted return the Cash Buffer strategy needs to detect a loss
// year (spec §4.3's "portfolio share invested in non-cash produced loss").
func CombinedReturn(startOfYear domain.Portfolio, market domain.YearMarket) (combined, nonCash decimal.Decimal) {
	total := startOfYear.Total()
	if total.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	alloc := startOfYear.CurrentAllocation()
	combined = alloc.Stocks.Mul(market.StockReturn).
		Add(alloc.Bonds.Mul(market.BondReturn)).
		Add(alloc.Cash.Mul(market.CashReturn))

	nonCashWeight := alloc.Stocks.Add(alloc.Bonds)
	if nonCashWeight.IsZero() {
		return combined, decimal.Zero
	}
	nonCash = alloc.Stocks.Mul(market.StockReturn).
		Add(alloc.Bonds.Mul(market.BondReturn)).
		Div(nonCashWeight)
	return combined, nonCash
}
