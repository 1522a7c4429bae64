package order

import (
	"math"
	"time"

	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

// Redemption converts offsetting YES/NO share pairs back into cash. Each
// redeemed pair pays out one currency unit. The pair of negative-share bets
// keeps the position history consistent without touching the pool.
type Redemption struct {
	Bets     []models.Bet
	Shares   float64
	LoanPaid float64
	// Net is what the user's balance is credited: the redeemed value minus
	// any loan repaid first.
	Net float64
}

// ComputeRedemption finds the redeemable pair of a user's position on a
// contract. Returns nil when the user holds no offsetting shares, which makes
// redemption idempotent: running it twice with no trades in between is a
// no-op the second time.
func ComputeRedemption(bets []*models.Bet, contractID, userID uuid.UUID, prob float64, now time.Time) *Redemption {
	var sharesYes, sharesNo, loanTotal float64
	for _, b := range bets {
		if b == nil {
			continue
		}
		sharesYes += b.SharesOf(models.OutcomeYes)
		sharesNo += b.SharesOf(models.OutcomeNo)
		loanTotal += b.LoanAmount
	}

	shares := math.Min(sharesYes, sharesNo)
	if shares <= fillEpsilon {
		return nil
	}

	loanPaid := math.Min(math.Max(loanTotal, 0), shares)

	yesBet := redemptionBet(contractID, userID, models.OutcomeYes, shares, prob, -loanPaid/2, now)
	noBet := redemptionBet(contractID, userID, models.OutcomeNo, shares, prob, -loanPaid/2, now)

	return &Redemption{
		Bets:     []models.Bet{yesBet, noBet},
		Shares:   shares,
		LoanPaid: loanPaid,
		Net:      shares - loanPaid,
	}
}

func redemptionBet(contractID, userID uuid.UUID, outcome models.Outcome, shares, prob, loanAmount float64, now time.Time) models.Bet {
	amount := -shares * priceFor(outcome, prob)
	return models.Bet{
		ID:           uuid.New(),
		UserID:       userID,
		ContractID:   contractID,
		Outcome:      outcome,
		Amount:       amount,
		Shares:       -shares,
		ProbBefore:   prob,
		ProbAfter:    prob,
		IsFilled:     true,
		IsRedemption: true,
		LoanAmount:   loanAmount,
		CreatedAt:    now,
	}
}
