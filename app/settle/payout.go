package settle

import (
	"math"

	"github.com/foldmarket/fold/app/dpm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

// settler computes per-bet payouts for one mechanism. The variant is picked
// once per settlement run, never re-dispatched per bet.
type settler interface {
	payout(contract *models.Contract, bet *models.Bet) (float64, error)
}

func settlerFor(mechanism models.Mechanism) (settler, error) {
	switch mechanism {
	case models.MechanismCPMM1:
		return cpmm1Settler{}, nil
	case models.MechanismCPMM2:
		return cpmm2Settler{}, nil
	case models.MechanismDPM2:
		return dpmSettler{}, nil
	default:
		return nil, models.ErrUnsupportedMechanism
	}
}

// Payout returns the money a single bet receives from a resolved contract,
// after deducting the bet's outstanding loan. Fail-closed: a non-finite
// intermediate never reaches the caller.
func Payout(contract *models.Contract, bet *models.Bet) (float64, error) {
	if contract == nil || bet == nil {
		return 0, models.ErrInvalidOrder
	}
	if !contract.IsResolved() {
		return 0, models.ErrMarketNotResolved
	}

	s, err := settlerFor(contract.Mechanism)
	if err != nil {
		return 0, err
	}

	gross, err := s.payout(contract, bet)
	if err != nil {
		return 0, err
	}

	net := gross - bet.LoanAmount
	if math.IsNaN(net) || math.IsInf(net, 0) {
		return 0, models.ErrNonFiniteResult
	}
	return net, nil
}

// BetPayout pairs a bet with its computed settlement amount.
type BetPayout struct {
	BetID  uuid.UUID
	UserID uuid.UUID
	Payout float64
}

// ResolutionPayouts settles every bet of a resolved contract. Either all
// payouts compute or none are returned.
func ResolutionPayouts(contract *models.Contract, bets []*models.Bet) ([]BetPayout, error) {
	if contract == nil {
		return nil, models.ErrInvalidOrder
	}
	if !contract.IsResolved() {
		return nil, models.ErrMarketNotResolved
	}

	out := make([]BetPayout, 0, len(bets))
	for _, bet := range bets {
		if bet == nil {
			continue
		}
		amount, err := Payout(contract, bet)
		if err != nil {
			return nil, err
		}
		out = append(out, BetPayout{BetID: bet.ID, UserID: bet.UserID, Payout: amount})
	}
	return out, nil
}

// cpmm1Settler settles binary and pseudo-numeric contracts. One winning share
// pays one unit.
type cpmm1Settler struct{}

func (cpmm1Settler) payout(contract *models.Contract, bet *models.Bet) (float64, error) {
	switch contract.Resolution {
	case models.ResolutionCancel:
		return bet.Amount, nil
	case models.ResolutionYes:
		return bet.SharesOf(models.OutcomeYes), nil
	case models.ResolutionNo:
		return bet.SharesOf(models.OutcomeNo), nil
	case models.ResolutionMarket:
		prob, err := resolutionProbability(contract)
		if err != nil {
			return 0, err
		}
		value := bet.SharesOf(models.OutcomeYes)*prob + bet.SharesOf(models.OutcomeNo)*(1-prob)
		return value, nil
	default:
		return 0, models.ErrInvalidResolution
	}
}

// resolutionProbability is the probability a MKT resolution pays out at. A
// pseudo-numeric contract resolved to a value maps it through the contract's
// value range first.
func resolutionProbability(contract *models.Contract) (float64, error) {
	if contract.OutcomeType == models.OutcomeTypePseudoNumeric && contract.ResolutionValue != nil {
		prob := contract.PseudoProbability(*contract.ResolutionValue)
		if math.IsNaN(prob) {
			return 0, models.ErrNonFiniteResult
		}
		return prob, nil
	}
	if contract.ResolutionProbability == nil {
		return 0, models.ErrInvalidResolution
	}
	prob := *contract.ResolutionProbability
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, models.ErrInvalidResolution
	}
	return prob, nil
}

// cpmm2Settler settles multi-outcome pool contracts, which resolve to an
// outcome key.
type cpmm2Settler struct{}

func (cpmm2Settler) payout(contract *models.Contract, bet *models.Bet) (float64, error) {
	switch contract.Resolution {
	case "":
		return 0, models.ErrInvalidResolution
	case models.ResolutionCancel:
		return bet.Amount, nil
	case models.ResolutionMarket:
		return 0, models.ErrInvalidResolution
	default:
		return bet.SharesOf(models.Outcome(contract.Resolution)), nil
	}
}

// dpmSettler settles frozen dpm-2 contracts: winners split the pool pro rata
// by shares, with the dpm fee charged on profit.
type dpmSettler struct{}

func (dpmSettler) payout(contract *models.Contract, bet *models.Bet) (float64, error) {
	switch contract.Resolution {
	case "":
		return 0, models.ErrInvalidResolution
	case models.ResolutionCancel:
		return bet.Amount, nil
	case models.ResolutionMarket:
		return 0, models.ErrInvalidResolution
	default:
		if string(bet.Outcome) != contract.Resolution {
			return 0, nil
		}
		return dpm.WinPayout(contract.Pool, contract.TotalShares, bet.Amount, bet.Shares, contract.Resolution, dpm.DefaultFeeRate)
	}
}
