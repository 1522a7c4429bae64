package order

import (
	"sort"

	"github.com/foldmarket/fold/models"
)

// oppositeOpenOrders filters the standing orders a taker can match against:
// open limit orders on the other side of the book.
func oppositeOpenOrders(orders []*models.Bet, takerOutcome models.Outcome) []*models.Bet {
	var out []*models.Bet
	for _, o := range orders {
		if o == nil || !o.IsOpenOrder() {
			continue
		}
		if o.Outcome == takerOutcome.Opposite() {
			out = append(out, o)
		}
	}
	return out
}

// sortMakers orders standing orders best price first for the taker, ties
// broken by earlier creation time. A YES taker pays the maker's limit
// probability per share, so lower is better; a NO taker pays the complement.
func sortMakers(orders []*models.Bet, takerOutcome models.Outcome) []*models.Bet {
	sorted := make([]*models.Bet, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := *sorted[i].LimitProb, *sorted[j].LimitProb
		if a != b {
			if takerOutcome == models.OutcomeYes {
				return a < b
			}
			return a > b
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// priceFor is the cost of one share for the given side at a market
// probability.
func priceFor(outcome models.Outcome, prob float64) float64 {
	if outcome == models.OutcomeYes {
		return prob
	}
	return 1 - prob
}
