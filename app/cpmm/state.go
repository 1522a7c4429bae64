package cpmm

import (
	"math"

	"github.com/foldmarket/fold/models"
)

// probEpsilon keeps probabilities away from exact 0 and 1 so downstream
// divisions stay finite.
const probEpsilon = 1e-10

// State is an immutable snapshot of a weighted constant-product pool.
// All calculations return new State values; callers own persistence.
type State struct {
	PoolYes float64
	PoolNo  float64
	P       float64
}

// NewState builds a State from a stored pool map and weighting parameter.
func NewState(pool models.PoolMap, p float64) (State, error) {
	s := State{
		PoolYes: pool[string(models.OutcomeYes)],
		PoolNo:  pool[string(models.OutcomeNo)],
		P:       p,
	}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

func (s State) validate() error {
	if s.PoolYes <= 0 || s.PoolNo <= 0 ||
		math.IsInf(s.PoolYes, 0) || math.IsInf(s.PoolNo, 0) ||
		math.IsNaN(s.PoolYes) || math.IsNaN(s.PoolNo) {
		return models.ErrInvalidPool
	}
	if s.P <= 0 || s.P >= 1 || math.IsNaN(s.P) {
		return models.ErrInvalidPoolP
	}
	return nil
}

// Pool converts the state back to the stored map representation.
func (s State) Pool() models.PoolMap {
	return models.PoolMap{
		string(models.OutcomeYes): s.PoolYes,
		string(models.OutcomeNo):  s.PoolNo,
	}
}

// invariant is the weighted constant product k = yes^p * no^(1-p).
func (s State) invariant() float64 {
	return math.Pow(s.PoolYes, s.P) * math.Pow(s.PoolNo, 1-s.P)
}

// Probability returns the market probability implied by the pool:
//
//	prob = p*no / (p*no + (1-p)*yes)
//
// The result is clamped away from exact 0 and 1.
func (s State) Probability() (float64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	prob := s.P * s.PoolNo / (s.P*s.PoolNo + (1-s.P)*s.PoolYes)
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return 0, models.ErrNonFiniteResult
	}
	return clampProb(prob), nil
}

// AddLiquidity adds the amount to both reserves and re-solves the weighting
// parameter so the implied probability is unchanged.
func (s State) AddLiquidity(amount float64) (State, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return State{}, models.ErrInvalidLiquidity
	}
	if amount == 0 {
		return s, nil
	}

	prob, err := s.Probability()
	if err != nil {
		return State{}, err
	}

	newYes := s.PoolYes + amount
	newNo := s.PoolNo + amount
	newP := prob * newYes / (prob*newYes + (1-prob)*newNo)

	next := State{PoolYes: newYes, PoolNo: newNo, P: newP}
	if err := next.validate(); err != nil {
		return State{}, err
	}
	return next, nil
}

func clampProb(prob float64) float64 {
	if prob < probEpsilon {
		return probEpsilon
	}
	if prob > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return prob
}

func isFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
