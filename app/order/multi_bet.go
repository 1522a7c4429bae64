package order

import (
	"time"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

// computeMultiBetInfo prices a buy on a multi-outcome contract. There is no
// order book on this mechanism, so a limit probability is rejected and the
// whole amount fills against the pool in one leg.
func computeMultiBetInfo(contract *models.Contract, req Request, now time.Time) (*BetInfo, error) {
	if req.LimitProb != nil {
		return nil, models.ErrInvalidOrder
	}

	outcome := string(req.Outcome)
	probBefore, err := cpmm.MultiProbability(contract.Pool, outcome)
	if err != nil {
		return nil, err
	}

	purchase, err := cpmm.CalculateMultiPurchase(contract.Pool, req.Amount, outcome)
	if err != nil {
		return nil, err
	}
	probAfter, err := cpmm.MultiProbability(purchase.Pool, outcome)
	if err != nil {
		return nil, err
	}

	return &BetInfo{
		Bet: models.Bet{
			ID:         uuid.New(),
			UserID:     req.UserID,
			ContractID: contract.ID,
			Outcome:    req.Outcome,
			Amount:     req.Amount,
			Shares:     purchase.Shares,
			ProbBefore: probBefore,
			ProbAfter:  probAfter,
			Fills: models.FillList{{
				Amount:    req.Amount,
				Shares:    purchase.Shares,
				Timestamp: now,
			}},
			IsFilled:  true,
			CreatedAt: now,
		},
		NewPool: purchase.Pool,
		NewP:    contract.P,
	}, nil
}
