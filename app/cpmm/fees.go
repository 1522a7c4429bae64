package cpmm

import (
	"github.com/foldmarket/fold/models"
)

// FeeSchedule holds the per-trade fee rates. Each fee is charged on the money
// leg as rate * probAgainst * amount, where probAgainst is the post-trade
// probability of the outcome the trader bet against: trades that move the
// price further pay proportionally more.
type FeeSchedule struct {
	LiquidityRate float64 `env:"FEE_LIQUIDITY_RATE"`
	PlatformRate  float64 `env:"FEE_PLATFORM_RATE"`
	CreatorRate   float64 `env:"FEE_CREATOR_RATE"`
}

// Validate checks the schedule rates are sane fractions.
func (f *FeeSchedule) Validate() error {
	rates := []float64{f.LiquidityRate, f.PlatformRate, f.CreatorRate}
	var total float64
	for _, r := range rates {
		if r < 0 || r >= 1 {
			return models.ErrInvalidFeeRate
		}
		total += r
	}
	if total >= 1 {
		return models.ErrInvalidFeeRate
	}
	return nil
}

// GetDefaultFeeSchedule returns the default fee schedule.
func GetDefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		LiquidityRate: 0,
		PlatformRate:  0,
		CreatorRate:   0.05,
	}
}

// NoFees is a zero-rate schedule, used for redemptions and tests.
var NoFees = FeeSchedule{}

// calculate splits an amount into fees and the remainder that actually
// trades against the pool.
func (f FeeSchedule) calculate(state State, amount float64, outcome models.Outcome) (models.Fees, float64, error) {
	probAfter, err := probabilityAfterBet(state, amount, outcome)
	if err != nil {
		return models.Fees{}, 0, err
	}

	probAgainst := probAfter
	if outcome == models.OutcomeYes {
		probAgainst = 1 - probAfter
	}

	fees := models.Fees{
		LiquidityFee: f.LiquidityRate * probAgainst * amount,
		PlatformFee:  f.PlatformRate * probAgainst * amount,
		CreatorFee:   f.CreatorRate * probAgainst * amount,
	}
	remaining := amount - fees.Total()
	if remaining <= 0 || !isFinite(remaining) {
		return models.Fees{}, 0, models.ErrNonFiniteResult
	}
	return fees, remaining, nil
}
