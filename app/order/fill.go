package order

import (
	"math"
	"time"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

const (
	// fillEpsilon absorbs float rounding when deciding whether money or an
	// order is fully consumed.
	fillEpsilon = 1e-9
	// probTolerance decides whether a price cap has been reached.
	probTolerance = 1e-10
)

// MakerFill is the update a matched standing order must receive when the
// taker's bet is committed. The matcher never mutates the order itself;
// callers apply the fill inside their transaction.
type MakerFill struct {
	Order *models.Bet
	Fill  models.Fill
}

type fillResult struct {
	TakerFills     models.FillList
	MakerFills     []MakerFill
	OrdersToCancel []*models.Bet
	State          cpmm.State
	TotalFees      models.Fees
}

// computeFills matches a taker's money against the book and the pool. Makers
// are consumed best price first; between makers the pool is tapped up to the
// next maker's price. Matching stops when the money runs out or the taker's
// own limit probability is reached.
//
// Maker fills are capped by both the order's remaining amount and the maker's
// balance. An order whose owner cannot fund it is returned in OrdersToCancel.
func computeFills(
	state cpmm.State,
	outcome models.Outcome,
	amount float64,
	limitProb *float64,
	takerID uuid.UUID,
	makers []*models.Bet,
	balances map[uuid.UUID]float64,
	schedule cpmm.FeeSchedule,
	now time.Time,
) (fillResult, error) {
	res := fillResult{State: state}
	sorted := sortMakers(makers, outcome)
	funds := cloneBalances(balances)
	remaining := amount

	i := 0
	for remaining > fillEpsilon {
		prob, err := res.State.Probability()
		if err != nil {
			return fillResult{}, err
		}
		if limitReached(prob, limitProb, outcome) {
			break
		}

		var maker *models.Bet
		if i < len(sorted) {
			maker = sorted[i]
		}

		if maker == nil || poolIsBetter(prob, *maker.LimitProb, outcome) {
			cap := poolCap(limitProb, maker, outcome)
			buy := remaining
			if cap != nil {
				capAmount, err := cpmm.AmountToProb(res.State, *cap, outcome)
				if err != nil {
					return fillResult{}, err
				}
				buy = math.Min(remaining, capAmount)
			}
			if buy > fillEpsilon {
				purchase, err := cpmm.CalculatePurchase(res.State, buy, outcome, schedule)
				if err != nil {
					return fillResult{}, err
				}
				res.TakerFills = append(res.TakerFills, models.Fill{
					Amount:    buy,
					Shares:    purchase.Shares,
					Timestamp: now,
				})
				res.State = purchase.State
				res.TotalFees = res.TotalFees.Add(purchase.Fees)
				remaining -= buy
				continue
			}
			if maker == nil {
				break
			}
			// price already sits at the maker's cap; match the maker
		}

		matchedProb := *maker.LimitProb
		takerPrice := priceFor(outcome, matchedProb)
		makerPrice := 1 - takerPrice

		budget := math.Min(maker.RemainingAmount(), funds.of(maker.UserID))
		if budget <= fillEpsilon {
			res.OrdersToCancel = append(res.OrdersToCancel, maker)
			i++
			continue
		}

		shares := math.Min(remaining/takerPrice, budget/makerPrice)
		takerAmount := shares * takerPrice
		makerAmount := shares * makerPrice

		res.TakerFills = append(res.TakerFills, models.Fill{
			Amount:       takerAmount,
			Shares:       shares,
			MatchedBetID: &maker.ID,
			Timestamp:    now,
		})
		res.MakerFills = append(res.MakerFills, MakerFill{
			Order: maker,
			Fill: models.Fill{
				Amount:       makerAmount,
				Shares:       shares,
				MatchedBetID: &takerID,
				Timestamp:    now,
			},
		})

		funds.debit(maker.UserID, makerAmount)
		remaining -= takerAmount

		// An order its owner can no longer fund does not stay on the book.
		if maker.RemainingAmount()-makerAmount > fillEpsilon && funds.of(maker.UserID) <= fillEpsilon {
			res.OrdersToCancel = append(res.OrdersToCancel, maker)
		}
		i++
	}

	return res, nil
}

// limitReached reports whether the pool price has hit the taker's own cap.
func limitReached(prob float64, limitProb *float64, outcome models.Outcome) bool {
	if limitProb == nil {
		return false
	}
	if outcome == models.OutcomeYes {
		return prob >= *limitProb-probTolerance
	}
	return prob <= *limitProb+probTolerance
}

// poolIsBetter reports whether the pool currently beats the maker's price for
// the taker.
func poolIsBetter(prob, matchedProb float64, outcome models.Outcome) bool {
	if outcome == models.OutcomeYes {
		return prob < matchedProb
	}
	return prob > matchedProb
}

// poolCap is the probability at which a pool fill must stop: the nearer of
// the next maker's price and the taker's own limit.
func poolCap(limitProb *float64, maker *models.Bet, outcome models.Outcome) *float64 {
	if maker == nil {
		return limitProb
	}
	cap := *maker.LimitProb
	if limitProb != nil {
		if outcome == models.OutcomeYes {
			cap = math.Min(cap, *limitProb)
		} else {
			cap = math.Max(cap, *limitProb)
		}
	}
	return &cap
}

// balanceSheet tracks maker funds across fills of a single taker. A nil
// source map means balances are not enforced.
type balanceSheet map[uuid.UUID]float64

func cloneBalances(balances map[uuid.UUID]float64) balanceSheet {
	if balances == nil {
		return nil
	}
	out := make(balanceSheet, len(balances))
	for k, v := range balances {
		out[k] = v
	}
	return out
}

func (b balanceSheet) of(userID uuid.UUID) float64 {
	if b == nil {
		return math.Inf(1)
	}
	return b[userID]
}

func (b balanceSheet) debit(userID uuid.UUID, amount float64) {
	if b == nil {
		return
	}
	b[userID] -= amount
}
