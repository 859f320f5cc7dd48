// Package strategy implements the Strategy Engine: a sum type of
// withdrawal strategies, each owning its own internal state, dispatched via
// a factory on config.StrategyKind. Grounded on the teacher's
// TSPWithdrawalStrategy interface and concrete FourPercentRule/
// NeedBasedWithdrawal/VariablePercentageWithdrawal strategies in
// internal/calculation/tsp.go, and its createTSPStrategy factory dispatch
// (spec §4.3).
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

// WithdrawInput is everything a strategy needs to compute one year's target
// net withdrawal. PortfolioValue is the wealth after this year's market
// returns but before this year's cash flow and tax (the same point-in-time
// value the Tax Engine's wealth tax is computed against). PreviousPortfolioValue
// is the wealth at the end of the prior year (V_{k-1} in spec §4.3), i.e.
// before this year's returns were applied — Hebeler Autopilot II's
// remaining-horizon term is defined over this value, not PortfolioValue.
type WithdrawInput struct {
	Year                   int
	CumulativeInflation    decimal.Decimal
	PortfolioValue         money.Money
	PreviousPortfolioValue money.Money
	PreviousCombinedReturn decimal.Decimal
	PreviousNonCashReturn  decimal.Decimal
	PreviousCashReturn     decimal.Decimal
}

// Strategy is the tagged-variant interface every withdrawal strategy
// implements. The runner dispatches on Kind() only for labeling/reporting;
// hot-loop dispatch is via the interface call, no further switch needed.
type Strategy interface {
	Kind() config.StrategyKind
	Label() string
	// TargetNet computes this year's desired net withdrawal, before the Tax
	// Engine's inverse solve and the Portfolio's balance cap are applied.
	TargetNet(in WithdrawInput) money.Money
}

// New builds a Strategy from its config, dispatching on cfg.Kind (spec §4.3).
func New(cfg config.StrategyConfig, initialPortfolioValue money.Money) (Strategy, error) {
	label := cfg.Label
	switch cfg.Kind {
	case config.StrategyFixedSWR:
		if cfg.FixedSWR == nil {
			return nil, fmt.Errorf("strategy %q: fixed_swr config required", cfg.Kind)
		}
		if label == "" {
			label = "fixed_swr"
		}
		return &FixedSWR{
			label:                 label,
			WithdrawalRate:        cfg.FixedSWR.WithdrawalRate,
			MinimumWithdrawal:     cfg.FixedSWR.MinimumWithdrawal,
			MaximumWithdrawal:     cfg.FixedSWR.MaximumWithdrawal,
			initialPortfolioValue: initialPortfolioValue,
		}, nil
	case config.StrategyConstantDollar:
		if cfg.ConstantDollar == nil {
			return nil, fmt.Errorf("strategy %q: constant_dollar config required", cfg.Kind)
		}
		if label == "" {
			label = "constant_dollar"
		}
		return &ConstantDollar{label: label, WithdrawalAmount: cfg.ConstantDollar.WithdrawalAmount}, nil
	case config.StrategyHebelerAPII:
		if cfg.HebelerAutopilotII == nil {
			return nil, fmt.Errorf("strategy %q: hebeler_autopilot_ii config required", cfg.Kind)
		}
		if label == "" {
			label = "hebeler_autopilot_ii"
		}
		h := cfg.HebelerAutopilotII
		return &HebelerAutopilotII{
			label:                    label,
			InitialWithdrawalRate:    h.InitialWithdrawalRate,
			PreviousWithdrawalWeight: h.PreviousWithdrawalWeight,
			PayoutHorizon:            h.PayoutHorizon,
			MinimumWithdrawal:        h.MinimumWithdrawal,
			initialPortfolioValue:    initialPortfolioValue,
		}, nil
	case config.StrategyCashBuffer:
		if cfg.CashBuffer == nil {
			return nil, fmt.Errorf("strategy %q: cash_buffer config required", cfg.Kind)
		}
		if label == "" {
			label = "cash_buffer"
		}
		cb := cfg.CashBuffer
		return &CashBuffer{
			label:                 label,
			WithdrawalRateBuffer:  cb.WithdrawalRateBuffer,
			SubsistenceWithdrawal: cb.SubsistenceWithdrawal,
			StandardWithdrawal:    cb.StandardWithdrawal,
			MaximumWithdrawal:     cb.MaximumWithdrawal,
			BufferTarget:          cb.BufferTarget,
			cashBuffer:            money.Zero(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", cfg.Kind)
	}
}

// Contribute computes year k's accumulation-phase contribution: monthly
// amount s with annual nominal increase g, per spec §4.3's
// `12 · s · (1+g)^{k−1}`. This is independent of which withdrawal strategy
// variant a config selects — contribution only ever runs during
// accumulation, before any strategy's TargetNet is called.
func Contribute(year int, monthlySavings money.Money, annualIncrease decimal.Decimal) money.Money {
	factor := decimal.NewFromInt(1).Add(annualIncrease).Pow(decimal.NewFromInt(int64(year - 1)))
	return monthlySavings.Mul(decimal.NewFromInt(12)).Mul(factor)
}

// FixedSWR withdraws a fixed fraction of the portfolio's value AT TRIAL
// START every year — the classic flat-dollar "safe withdrawal rate" rule —
// clamped to [MinimumWithdrawal, MaximumWithdrawal]. Spec S1 pins this down:
// a 4% rate on a non-appreciating portfolio withdraws exactly the same
// 40,000 every year and depletes linearly to exactly zero at year 25, which
// only holds if the rate is applied to the initial value once, not to each
// year's declining balance.
type FixedSWR struct {
	label             string
	WithdrawalRate    decimal.Decimal
	MinimumWithdrawal money.Money
	MaximumWithdrawal *money.Money

	initialPortfolioValue money.Money
}

func (s *FixedSWR) Kind() config.StrategyKind { return config.StrategyFixedSWR }
func (s *FixedSWR) Label() string             { return s.label }

func (s *FixedSWR) TargetNet(in WithdrawInput) money.Money {
	target := s.initialPortfolioValue.Mul(s.WithdrawalRate)
	hi := money.NewFromInt(1<<62 - 1) // effectively +∞ when MaximumWithdrawal is unset
	if s.MaximumWithdrawal != nil {
		hi = *s.MaximumWithdrawal
	}
	// The current portfolio value (in.PortfolioValue) further caps the
	// achievable withdrawal — enforced downstream by the tax engine's
	// GrossFromNet, which clamps gross to wealth, so it is not repeated here.
	return target.Clamp(s.MinimumWithdrawal, hi)
}

// ConstantDollar withdraws a fixed nominal amount, inflation-adjusted to
// maintain constant real spending.
type ConstantDollar struct {
	label            string
	WithdrawalAmount money.Money
}

func (s *ConstantDollar) Kind() config.StrategyKind { return config.StrategyConstantDollar }
func (s *ConstantDollar) Label() string             { return s.label }

func (s *ConstantDollar) TargetNet(in WithdrawInput) money.Money {
	return s.WithdrawalAmount.Mul(in.CumulativeInflation)
}

// HebelerAutopilotII blends the previous year's withdrawal with a
// remaining-horizon fraction of the prior year-end wealth (spec §4.3).
type HebelerAutopilotII struct {
	label                    string
	InitialWithdrawalRate    decimal.Decimal
	PreviousWithdrawalWeight decimal.Decimal
	PayoutHorizon            int
	MinimumWithdrawal        money.Money

	initialPortfolioValue money.Money
	previousWithdrawal    money.Money
	hasPrevious           bool
}

func (s *HebelerAutopilotII) Kind() config.StrategyKind { return config.StrategyHebelerAPII }
func (s *HebelerAutopilotII) Label() string             { return s.label }

func (s *HebelerAutopilotII) TargetNet(in WithdrawInput) money.Money {
	var target money.Money
	if !s.hasPrevious {
		target = s.initialPortfolioValue.Mul(s.InitialWithdrawalRate)
	} else {
		remainingYears := s.PayoutHorizon - in.Year + 1
		if remainingYears < 1 {
			remainingYears = 1
		}
		horizonShare := in.PreviousPortfolioValue.Div(decimal.NewFromInt(int64(remainingYears)))
		weighted := s.previousWithdrawal.Mul(s.PreviousWithdrawalWeight).
			Add(horizonShare.Mul(decimal.NewFromInt(1).Sub(s.PreviousWithdrawalWeight)))
		target = weighted
	}

	floor := s.MinimumWithdrawal.Mul(in.CumulativeInflation)
	target = money.Max(floor, target)

	s.previousWithdrawal = target
	s.hasPrevious = true
	return target
}

// CashBuffer withdraws a subsistence amount in loss years while its cash
// buffer is below target, withdraws up to the maximum and tops the buffer up
// during strong years, and otherwise withdraws a standard inflation-adjusted
// amount (spec §4.3). The buffer accumulator only grows; no branch draws it
// down. The "good year" trigger and reference rate b_reference
// resolve Open Question 2: the previous year's combined return must clear
// WithdrawalRateBuffer plus the previous year's cash return (see DESIGN.md).
type CashBuffer struct {
	label                 string
	WithdrawalRateBuffer  decimal.Decimal
	SubsistenceWithdrawal money.Money
	StandardWithdrawal    money.Money
	MaximumWithdrawal     money.Money
	BufferTarget          money.Money

	cashBuffer money.Money
}

func (s *CashBuffer) Kind() config.StrategyKind { return config.StrategyCashBuffer }
func (s *CashBuffer) Label() string             { return s.label }

// CashBufferBalance exposes the current buffer accumulator, mainly for tests
// and reporting.
func (s *CashBuffer) CashBufferBalance() money.Money { return s.cashBuffer }

func (s *CashBuffer) TargetNet(in WithdrawInput) money.Money {
	standard := s.StandardWithdrawal.Mul(in.CumulativeInflation)

	lossYear := in.PreviousNonCashReturn.IsNegative()
	if lossYear && s.cashBuffer.LessThan(s.BufferTarget) {
		return s.SubsistenceWithdrawal.Mul(in.CumulativeInflation)
	}

	goodYearThreshold := s.WithdrawalRateBuffer.Add(in.PreviousCashReturn)
	if in.PreviousCombinedReturn.GreaterThanOrEqual(goodYearThreshold) {
		target := money.Min(s.MaximumWithdrawal, in.PortfolioValue)
		surplus := target.Sub(standard)
		if surplus.IsPositive() {
			room := s.BufferTarget.Sub(s.cashBuffer)
			s.cashBuffer = s.cashBuffer.Add(money.Min(surplus, room).Clamp(money.Zero(), room))
		}
		return target
	}

	return standard
}
