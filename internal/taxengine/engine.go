// Package taxengine computes progressive capital-gains and wealth tax on
// gross income and portfolio value for a named region, with inflation
// bracket indexing and a closed-form net-to-gross inverse solver. Grounded
// on the teacher's internal/calculation/taxes.go bracket-walk
// (CalculateFederalTax) and calculateFederalTaxWithInflation's
// threshold-scaling pattern, generalized from two hardcoded US schedules to
// an arbitrary region-keyed bracket table with both income and wealth
// brackets (spec §4.2).
package taxengine

import (
	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/referencedata"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// Region identifies one tax schedule. Country "none" is the zero-tax edge
// case (spec §4.2) and needs no TaxStore lookup.
type Region struct {
	Country string
	Region  string
}

// Engine evaluates tax against the shared, immutable TaxStore.
type Engine struct {
	store *referencedata.TaxStore
}

// New builds an Engine backed by store.
func New(store *referencedata.TaxStore) *Engine {
	return &Engine{store: store}
}

// schedule resolves a Region to its TaxSchedule, or reports country=="none"
// via the zero bool.
func (e *Engine) schedule(region Region) (referencedata.TaxSchedule, bool, error) {
	if region.Country == "none" {
		return referencedata.TaxSchedule{}, true, nil
	}
	schedule, err := e.store.Schedule(region.Country, region.Region)
	if err != nil {
		return referencedata.TaxSchedule{}, false, &kernelerr.ConfigError{
			Path:   "tax_config",
			Reason: err.Error(),
		}
	}
	return schedule, false, nil
}

// effectiveBrackets scales base brackets by cumulativeInflation when adjust
// is true, per spec §4.2's "this year's brackets use last year's price
// level" — cumulativeInflation here is the caller's already-computed
// cumulative inflation multiplier through the previous year.
func effectiveBrackets(base []referencedata.Bracket, cumulativeInflation decimal.Decimal, adjust bool) []referencedata.Bracket {
	if !adjust || len(base) == 0 {
		return base
	}
	out := make([]referencedata.Bracket, len(base))
	for i, b := range base {
		out[i] = referencedata.Bracket{
			Threshold: money.NewFromDecimal(b.Threshold.Decimal.Mul(cumulativeInflation)),
			Rate:      b.Rate,
		}
	}
	return out
}

// EvaluateBracketTax computes progressive tax on value under brackets sorted
// ascending by threshold, per spec §4.2's formula:
// tax(V) = Σ_i r_i · max(0, min(V, t_{i+1}) − t_i), with t_{n+1}=+∞.
func EvaluateBracketTax(value money.Money, brackets []referencedata.Bracket) money.Money {
	if len(brackets) == 0 || value.LessThanOrEqual(money.Zero()) {
		return money.Zero()
	}
	total := money.Zero()
	for i, b := range brackets {
		lower := b.Threshold
		var upper money.Money
		hasUpper := i+1 < len(brackets)
		if hasUpper {
			upper = brackets[i+1].Threshold
		}
		var taxableInBracket money.Money
		if hasUpper {
			taxableInBracket = money.Min(value, upper).Sub(lower)
		} else {
			taxableInBracket = value.Sub(lower)
		}
		if taxableInBracket.IsPositive() {
			total = total.Add(taxableInBracket.Mul(b.Rate))
		}
	}
	return total
}

// MarginalRate returns the rate of the bracket containing value (spec §8
// invariant 4).
func MarginalRate(value money.Money, brackets []referencedata.Bracket) decimal.Decimal {
	if len(brackets) == 0 {
		return decimal.Zero
	}
	rate := brackets[0].Rate
	for _, b := range brackets {
		if value.GreaterThanOrEqual(b.Threshold) {
			rate = b.Rate
		}
	}
	return rate
}

// IncomeTax computes capital-gains tax on gross income for region in a year
// whose effective brackets use cumulativeInflation (spec §4.2).
func (e *Engine) IncomeTax(region Region, gross money.Money, cumulativeInflation decimal.Decimal, adjustBrackets bool) (money.Money, error) {
	schedule, zeroTax, err := e.schedule(region)
	if err != nil {
		return money.Zero(), err
	}
	if zeroTax {
		return money.Zero(), nil
	}
	brackets := effectiveBrackets(schedule.IncomeBrackets, cumulativeInflation, adjustBrackets)
	return EvaluateBracketTax(gross, brackets), nil
}

// WealthTax computes wealth tax on end-of-year portfolio value for region.
func (e *Engine) WealthTax(region Region, wealth money.Money, cumulativeInflation decimal.Decimal, adjustBrackets bool) (money.Money, error) {
	schedule, zeroTax, err := e.schedule(region)
	if err != nil {
		return money.Zero(), err
	}
	if zeroTax {
		return money.Zero(), nil
	}
	brackets := effectiveBrackets(schedule.WealthBrackets, cumulativeInflation, adjustBrackets)
	return EvaluateBracketTax(wealth, brackets), nil
}

// breakpoint is one threshold of the piecewise-linear net(G) = G -
// incomeTax(G) function, used by GrossFromNet's segment search.
type breakpoint struct {
	threshold money.Money
	netAtT    money.Money
	rate      decimal.Decimal
}

// buildBreakpoints walks the income brackets once, computing net(G) at each
// threshold boundary so GrossFromNet can locate the containing segment
// without iteration.
func buildBreakpoints(brackets []referencedata.Bracket) []breakpoint {
	if len(brackets) == 0 {
		return nil
	}
	points := make([]breakpoint, len(brackets))
	netAtPrev := money.Zero()
	for i, b := range brackets {
		points[i] = breakpoint{threshold: b.Threshold, netAtT: netAtPrev, rate: b.Rate}
		if i+1 < len(brackets) {
			width := brackets[i+1].Threshold.Sub(b.Threshold)
			netAtPrev = netAtPrev.Add(width.Mul(decimal.NewFromInt(1).Sub(b.Rate)))
		}
	}
	return points
}

// GrossFromNet solves G ≥ 0 such that G − incomeTax(G) − wealthTax(W) = net,
// for a fixed wealth W, by closed-form segment search over the
// piecewise-linear net(G) function (spec §4.2). If the required G exceeds W,
// the maximum feasible gross (W) is returned and the caller/strategy handles
// the shortfall.
func (e *Engine) GrossFromNet(region Region, net money.Money, wealth money.Money, cumulativeInflation decimal.Decimal, adjustBrackets bool) (money.Money, error) {
	if net.LessThanOrEqual(money.Zero()) {
		return money.Zero(), nil
	}

	wealthTax, err := e.WealthTax(region, wealth, cumulativeInflation, adjustBrackets)
	if err != nil {
		return money.Zero(), err
	}

	schedule, zeroTax, err := e.schedule(region)
	if err != nil {
		return money.Zero(), err
	}
	if zeroTax {
		return money.Min(net, wealth), nil
	}

	brackets := effectiveBrackets(schedule.IncomeBrackets, cumulativeInflation, adjustBrackets)
	target := net.Add(wealthTax) // solve G - incomeTax(G) = target

	points := buildBreakpoints(brackets)
	if len(points) == 0 {
		return money.Min(target, wealth), nil
	}

	gross := money.Zero()
	solved := false
	for i, p := range points {
		var nextNetAtT money.Money
		hasNext := i+1 < len(points)
		if hasNext {
			nextNetAtT = points[i+1].netAtT
		}
		oneMinusRate := decimal.NewFromInt(1).Sub(p.rate)
		if !hasNext || target.LessThan(nextNetAtT) || target.Equal(nextNetAtT) {
			if oneMinusRate.IsZero() {
				continue
			}
			delta := target.Sub(p.netAtT)
			gross = p.threshold.Add(delta.Div(oneMinusRate))
			solved = true
			break
		}
	}
	if !solved {
		// Every bracket's rate was 100% (degenerate schedule); fall back to
		// the last threshold as the best achievable gross.
		gross = points[len(points)-1].threshold
	}

	return money.Min(gross, wealth).Clamp(money.Zero(), wealth), nil
}
