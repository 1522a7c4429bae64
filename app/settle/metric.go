package settle

import (
	"math"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/app/dpm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

const shareEpsilon = 1e-9

// ComputeContractMetric rebuilds a user's position summary from their bet
// history on a contract. For an unresolved contract the payout is the
// position's value at current prices; for a resolved one it is the settled
// amount before loan deduction.
func ComputeContractMetric(contract *models.Contract, userID uuid.UUID, bets []*models.Bet) (*models.ContractMetric, error) {
	if contract == nil {
		return nil, models.ErrInvalidOrder
	}

	totals := models.PoolMap{}
	var invested, netAmount, loan float64
	var userBets []*models.Bet
	for _, bet := range bets {
		if bet == nil || bet.UserID != userID {
			continue
		}
		userBets = append(userBets, bet)
		totals[string(bet.Outcome)] += bet.Shares
		if bet.Amount > 0 {
			invested += bet.Amount
		}
		netAmount += bet.Amount
		loan += bet.LoanAmount
	}

	var value float64
	if contract.IsResolved() {
		s, err := settlerFor(contract.Mechanism)
		if err != nil {
			return nil, err
		}
		for _, bet := range userBets {
			gross, err := s.payout(contract, bet)
			if err != nil {
				return nil, err
			}
			value += gross
		}
	} else {
		for outcome, shares := range totals {
			prob, err := currentProbability(contract, outcome)
			if err != nil {
				return nil, err
			}
			value += shares * prob
		}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, models.ErrNonFiniteResult
	}

	hasShares := false
	for _, shares := range totals {
		if shares > shareEpsilon {
			hasShares = true
			break
		}
	}

	return &models.ContractMetric{
		UserID:      userID,
		ContractID:  contract.ID,
		Invested:    invested,
		Payout:      value,
		Profit:      value - netAmount,
		Loan:        loan,
		HasShares:   hasShares,
		TotalShares: totals,
	}, nil
}

// currentProbability prices one outcome share under the contract's mechanism.
func currentProbability(contract *models.Contract, outcome string) (float64, error) {
	switch contract.Mechanism {
	case models.MechanismCPMM1:
		state, err := cpmm.NewState(contract.Pool, contract.P)
		if err != nil {
			return 0, err
		}
		prob, err := state.Probability()
		if err != nil {
			return 0, err
		}
		if models.Outcome(outcome) == models.OutcomeNo {
			return 1 - prob, nil
		}
		return prob, nil
	case models.MechanismCPMM2:
		return cpmm.MultiProbability(contract.Pool, outcome)
	case models.MechanismDPM2:
		return dpm.Probability(contract.TotalShares, outcome)
	default:
		return 0, models.ErrUnsupportedMechanism
	}
}
