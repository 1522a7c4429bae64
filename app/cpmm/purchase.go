package cpmm

import (
	"math"

	"github.com/foldmarket/fold/models"
)

// Purchase is the complete result of buying shares from the pool. Either the
// whole struct is valid or the computing function returned an error; partial
// results are never produced.
type Purchase struct {
	Shares float64
	State  State
	Fees   models.Fees
}

// CalculateShares returns the number of outcome shares bought with the given
// amount, keeping the weighted product invariant.
func CalculateShares(state State, amount float64, outcome models.Outcome) (float64, error) {
	if err := state.validate(); err != nil {
		return 0, err
	}
	if amount <= 0 || !isFinite(amount) {
		return 0, models.ErrInvalidBetAmount
	}

	y, n, p := state.PoolYes, state.PoolNo, state.P
	k := state.invariant()

	var shares float64
	if outcome == models.OutcomeYes {
		// (y + amount - shares)^p * (n + amount)^(1-p) = k
		shares = y + amount - math.Pow(k*math.Pow(n+amount, p-1), 1/p)
	} else {
		// (y + amount)^p * (n + amount - shares)^(1-p) = k
		shares = n + amount - math.Pow(k*math.Pow(y+amount, -p), 1/(1-p))
	}

	if !isFinite(shares) || shares < 0 {
		return 0, models.ErrNonFiniteResult
	}
	return shares, nil
}

// CalculatePurchase computes the full effect of buying an outcome with the
// given amount: fees on the money leg, shares bought with the remainder, and
// the resulting pool state. The liquidity fee is folded back into the pool
// without moving the probability.
func CalculatePurchase(state State, amount float64, outcome models.Outcome, schedule FeeSchedule) (Purchase, error) {
	if !outcome.IsBinary() {
		return Purchase{}, models.ErrInvalidOutcome
	}
	if amount <= 0 || !isFinite(amount) {
		return Purchase{}, models.ErrInvalidBetAmount
	}

	fees, remaining, err := schedule.calculate(state, amount, outcome)
	if err != nil {
		return Purchase{}, err
	}

	shares, err := CalculateShares(state, remaining, outcome)
	if err != nil {
		return Purchase{}, err
	}

	var next State
	if outcome == models.OutcomeYes {
		next = State{PoolYes: state.PoolYes + remaining - shares, PoolNo: state.PoolNo + remaining, P: state.P}
	} else {
		next = State{PoolYes: state.PoolYes + remaining, PoolNo: state.PoolNo + remaining - shares, P: state.P}
	}
	if err := next.validate(); err != nil {
		return Purchase{}, err
	}

	if fees.LiquidityFee > 0 {
		next, err = next.AddLiquidity(fees.LiquidityFee)
		if err != nil {
			return Purchase{}, err
		}
	}

	return Purchase{Shares: shares, State: next, Fees: fees}, nil
}

// probabilityAfterBet is the fee-free post-trade probability, used to price
// the fee itself.
func probabilityAfterBet(state State, amount float64, outcome models.Outcome) (float64, error) {
	shares, err := CalculateShares(state, amount, outcome)
	if err != nil {
		return 0, err
	}
	var next State
	if outcome == models.OutcomeYes {
		next = State{PoolYes: state.PoolYes + amount - shares, PoolNo: state.PoolNo + amount, P: state.P}
	} else {
		next = State{PoolYes: state.PoolYes + amount, PoolNo: state.PoolNo + amount - shares, P: state.P}
	}
	return next.Probability()
}

// AmountToProb returns the bet amount that moves the pool probability to the
// target. This is the exact inverse of the purchase formula and is what limit
// orders use to clip pool fills at their price cap. Returns 0 when the pool
// already trades at or past the target in the taker's favor, and +Inf for an
// unreachable target.
func AmountToProb(state State, target float64, outcome models.Outcome) (float64, error) {
	if err := state.validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(target) {
		return 0, models.ErrInvalidProbability
	}
	if target <= 0 || target >= 1 {
		return math.Inf(1), nil
	}

	y, n, p := state.PoolYes, state.PoolNo, state.P
	k := state.invariant()

	var amount float64
	if outcome == models.OutcomeYes {
		// Solve (1-p)*newYes = p*newNo*(1-target)/target for the bet size.
		ratio := (1 - p) * target / (p * (1 - target))
		amount = k*math.Pow(ratio, p) - n
	} else {
		ratio := p * (1 - target) / ((1 - p) * target)
		amount = k*math.Pow(ratio, 1-p) - y
	}

	if math.IsNaN(amount) {
		return 0, models.ErrNonFiniteResult
	}
	if amount < 0 {
		return 0, nil
	}
	return amount, nil
}
