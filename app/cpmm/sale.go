package cpmm

import (
	"math"

	"github.com/foldmarket/fold/models"
)

// Sale is the complete result of selling shares back to the pool.
type Sale struct {
	Value float64
	State State
}

// saleIterations bounds the bisection; 100 halvings reach float64 precision
// for any realistic pool size.
const saleIterations = 100

// CalculateSale returns the cash value of selling the given shares back to
// the pool, solved by bisection on the pool invariant: the sold shares enter
// the pool and the sale value is withdrawn equally from both reserves.
func CalculateSale(state State, shares float64, outcome models.Outcome) (Sale, error) {
	if err := state.validate(); err != nil {
		return Sale{}, err
	}
	if !outcome.IsBinary() {
		return Sale{}, models.ErrInvalidOutcome
	}
	if shares <= 0 || !isFinite(shares) {
		return Sale{}, models.ErrInvalidBetAmount
	}

	y, n, p := state.PoolYes, state.PoolNo, state.P
	k := state.invariant()

	poolAfter := func(value float64) (float64, float64) {
		if outcome == models.OutcomeYes {
			return y + shares - value, n - value
		}
		return y - value, n + shares - value
	}

	// The invariant residual is decreasing in the sale value; the root lies
	// between 0 and the point where a reserve would be drained.
	residual := func(value float64) float64 {
		newYes, newNo := poolAfter(value)
		return math.Pow(newYes, p)*math.Pow(newNo, 1-p) - k
	}

	var upper float64
	if outcome == models.OutcomeYes {
		upper = math.Min(y+shares, n)
	} else {
		upper = math.Min(y, n+shares)
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

	newYes, newNo := poolAfter(value)
	next := State{PoolYes: newYes, PoolNo: newNo, P: p}
	if err := next.validate(); err != nil {
		return Sale{}, err
	}
	if !isFinite(value) || value < 0 {
		return Sale{}, models.ErrNonFiniteResult
	}

	return Sale{Value: value, State: next}, nil
}
