package dpm

import (
	"math"

	"github.com/foldmarket/fold/models"
)

// The dpm-2 mechanism is frozen: no new markets use it, but historical bets
// must keep computing consistently. Probability is proportional to the square
// of the shares outstanding per outcome, and the pool total tracks the square
// root of the share square-sum.

// DefaultFeeRate is charged on the profit portion of dpm sales and payouts.
const DefaultFeeRate = 0.05

func squareSum(totalShares models.PoolMap) float64 {
	var sum float64
	for _, shares := range totalShares {
		sum += shares * shares
	}
	return sum
}

// Probability returns the implied probability of an outcome from the
// aggregate share totals.
func Probability(totalShares models.PoolMap, outcome string) (float64, error) {
	shares, ok := totalShares[outcome]
	if !ok {
		return 0, models.ErrInvalidOutcome
	}
	sum := squareSum(totalShares)
	if sum <= 0 {
		return 0, models.ErrInvalidPool
	}
	prob := shares * shares / sum
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, models.ErrNonFiniteResult
	}
	return prob, nil
}

// Shares returns the number of shares a bet amount buys on an outcome.
func Shares(totalShares models.PoolMap, bet float64, outcome string) (float64, error) {
	if bet <= 0 || math.IsNaN(bet) || math.IsInf(bet, 0) {
		return 0, models.ErrInvalidBetAmount
	}
	existing := totalShares[outcome]
	shares := math.Sqrt(bet*bet+existing*existing+2*bet*math.Sqrt(squareSum(totalShares))) - existing
	if math.IsNaN(shares) || math.IsInf(shares, 0) || shares <= 0 {
		return 0, models.ErrNonFiniteResult
	}
	return shares, nil
}

// ShareValue returns the cash value of selling shares of an outcome at the
// current aggregate totals. The pool scales with the square root of the share
// square-sum, so the sale value is the pool total times the shrinkage of that
// root. Proceeds depend on market movement since the bet, not on the bet's
// original amount.
func ShareValue(pool, totalShares models.PoolMap, shares float64, outcome string) (float64, error) {
	held, ok := totalShares[outcome]
	if !ok {
		return 0, models.ErrInvalidOutcome
	}
	if shares <= 0 || math.IsNaN(shares) || math.IsInf(shares, 0) {
		return 0, models.ErrInvalidBetAmount
	}
	if shares > held {
		return 0, models.ErrInvalidBetAmount
	}

	prev := squareSum(totalShares)
	if prev <= 0 {
		return 0, models.ErrInvalidPool
	}
	remaining := held - shares
	post := prev - held*held + remaining*remaining

	value := pool.Total() * (1 - math.Sqrt(post/prev))
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, models.ErrNonFiniteResult
	}
	return value, nil
}

// SaleProceeds applies the dpm fee to a sale: the original stake comes back
// whole, profit is charged the fee rate.
func SaleProceeds(betAmount, shareValue, feeRate float64) float64 {
	return deductFees(betAmount, shareValue, feeRate)
}

// WinPayout returns a winning bet's share of the pool on resolution, fee
// charged on profit only.
func WinPayout(pool, totalShares models.PoolMap, betAmount, shares float64, outcome string, feeRate float64) (float64, error) {
	winningShares := totalShares[outcome]
	if winningShares <= 0 {
		return 0, models.ErrInvalidPool
	}
	winnings := shares / winningShares * pool.Total()
	if math.IsNaN(winnings) || math.IsInf(winnings, 0) {
		return 0, models.ErrNonFiniteResult
	}
	return deductFees(betAmount, winnings, feeRate), nil
}

func deductFees(betAmount, winnings, feeRate float64) float64 {
	if winnings <= betAmount {
		return winnings
	}
	return betAmount + (1-feeRate)*(winnings-betAmount)
}
