package cpmm

import (
	"math"

	"github.com/foldmarket/fold/models"
)

// Multi-outcome constant product (the cpmm-2 mechanism): the invariant is the
// plain product of all outcome reserves. Buying an outcome adds the amount to
// every reserve and removes shares of the bought outcome to restore the
// invariant. Limit orders are not supported on this mechanism.

// MultiPurchase is the complete result of a cpmm-2 buy.
type MultiPurchase struct {
	Shares float64
	Pool   models.PoolMap
}

// MultiSale is the complete result of a cpmm-2 sale.
type MultiSale struct {
	Value float64
	Pool  models.PoolMap
}

func validateMultiPool(pool models.PoolMap, outcome string) error {
	if len(pool) < 2 {
		return models.ErrInvalidPool
	}
	if _, ok := pool[outcome]; !ok {
		return models.ErrInvalidOutcome
	}
	for _, reserve := range pool {
		if reserve <= 0 || !isFinite(reserve) {
			return models.ErrInvalidPool
		}
	}
	return nil
}

// MultiProbability returns the implied probability of one outcome:
// the normalized inverse reserve, so scarcer outcomes price higher.
func MultiProbability(pool models.PoolMap, outcome string) (float64, error) {
	if err := validateMultiPool(pool, outcome); err != nil {
		return 0, err
	}

	var sumInverse float64
	for _, reserve := range pool {
		sumInverse += 1 / reserve
	}
	prob := (1 / pool[outcome]) / sumInverse
	if !isFinite(prob) {
		return 0, models.ErrNonFiniteResult
	}
	return clampProb(prob), nil
}

// CalculateMultiPurchase computes the shares bought and resulting pool for a
// cpmm-2 buy of the given outcome.
func CalculateMultiPurchase(pool models.PoolMap, amount float64, outcome string) (MultiPurchase, error) {
	if err := validateMultiPool(pool, outcome); err != nil {
		return MultiPurchase{}, err
	}
	if amount <= 0 || !isFinite(amount) {
		return MultiPurchase{}, models.ErrInvalidBetAmount
	}

	invariant := 1.0
	othersProduct := 1.0
	for key, reserve := range pool {
		invariant *= reserve
		if key != outcome {
			othersProduct *= reserve + amount
		}
	}

	shares := pool[outcome] + amount - invariant/othersProduct
	if !isFinite(shares) || shares <= 0 {
		return MultiPurchase{}, models.ErrNonFiniteResult
	}

	newPool := pool.Clone()
	for key := range newPool {
		newPool[key] += amount
	}
	newPool[outcome] -= shares

	for _, reserve := range newPool {
		if reserve <= 0 || !isFinite(reserve) {
			return MultiPurchase{}, models.ErrNonFiniteResult
		}
	}
	return MultiPurchase{Shares: shares, Pool: newPool}, nil
}

// CalculateMultiSale returns the cash value of selling shares of one outcome
// back to a cpmm-2 pool, solved by bisection on the product invariant.
func CalculateMultiSale(pool models.PoolMap, shares float64, outcome string) (MultiSale, error) {
	if err := validateMultiPool(pool, outcome); err != nil {
		return MultiSale{}, err
	}
	if shares <= 0 || !isFinite(shares) {
		return MultiSale{}, models.ErrInvalidBetAmount
	}

	invariant := 1.0
	upper := math.Inf(1)
	for key, reserve := range pool {
		invariant *= reserve
		limit := reserve
		if key == outcome {
			limit = reserve + shares
		}
		upper = math.Min(upper, limit)
	}

	residual := func(value float64) float64 {
		product := 1.0
		for key, reserve := range pool {
			if key == outcome {
				product *= reserve + shares - value
			} else {
				product *= reserve - value
			}
		}
		return product - invariant
	}

	lo, hi := 0.0, upper
	for i := 0; i < saleIterations; i++ {
		mid := (lo + hi) / 2
		if residual(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	value := (lo + hi) / 2

	newPool := pool.Clone()
	for key := range newPool {
		if key == outcome {
			newPool[key] += shares - value
		} else {
			newPool[key] -= value
		}
		if newPool[key] <= 0 || !isFinite(newPool[key]) {
			return MultiSale{}, models.ErrNonFiniteResult
		}
	}
	return MultiSale{Value: value, Pool: newPool}, nil
}
