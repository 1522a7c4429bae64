package trade

import (
	"time"

	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

// PlaceBetRequest is the payload for placing a market or limit order.
type PlaceBetRequest struct {
	ContractID uuid.UUID `json:"contract_id" validate:"required"`
	Outcome    string    `json:"outcome" validate:"required"`
	Amount     float64   `json:"amount" validate:"required,gt=0"`
	LimitProb  *float64  `json:"limit_prob" validate:"omitempty,gt=0,lt=1"`
}

// SellSharesRequest is the payload for unwinding part of a position.
type SellSharesRequest struct {
	ContractID uuid.UUID `json:"contract_id" validate:"required"`
	Outcome    string    `json:"outcome" validate:"required"`
	Shares     float64   `json:"shares" validate:"required,gt=0"`
}

// FillResponse mirrors a stored fill for API consumers.
type FillResponse struct {
	Amount       float64    `json:"amount"`
	Shares       float64    `json:"shares"`
	MatchedBetID *uuid.UUID `json:"matched_bet_id,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// BetResponse is the API view of a bet or limit order.
type BetResponse struct {
	ID          uuid.UUID      `json:"id"`
	ContractID  uuid.UUID      `json:"contract_id"`
	Outcome     string         `json:"outcome"`
	Amount      float64        `json:"amount"`
	Shares      float64        `json:"shares"`
	ProbBefore  float64        `json:"prob_before"`
	ProbAfter   float64        `json:"prob_after"`
	LimitProb   *float64       `json:"limit_prob,omitempty"`
	OrderAmount *float64       `json:"order_amount,omitempty"`
	Fills       []FillResponse `json:"fills,omitempty"`
	IsFilled    bool           `json:"is_filled"`
	IsCancelled bool           `json:"is_cancelled"`
	Fees        float64        `json:"fees"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SaleResponse reports the result of selling shares back to the pool.
type SaleResponse struct {
	BetID          uuid.UUID `json:"bet_id"`
	SharesSold     float64   `json:"shares_sold"`
	Proceeds       float64   `json:"proceeds"`
	NewProbability float64   `json:"new_probability"`
}

// PositionResponse summarizes a user's standing on one contract.
type PositionResponse struct {
	ContractID uuid.UUID          `json:"contract_id"`
	Invested   float64            `json:"invested"`
	Payout     float64            `json:"payout"`
	Profit     float64            `json:"profit"`
	Loan       float64            `json:"loan"`
	HasShares  bool               `json:"has_shares"`
	Shares     map[string]float64 `json:"shares"`
}

// ToBetResponse maps a bet model to its API representation.
func ToBetResponse(bet *models.Bet) *BetResponse {
	fills := make([]FillResponse, len(bet.Fills))
	for i, f := range bet.Fills {
		fills[i] = FillResponse{
			Amount:       f.Amount,
			Shares:       f.Shares,
			MatchedBetID: f.MatchedBetID,
			Timestamp:    f.Timestamp,
		}
	}
	return &BetResponse{
		ID:          bet.ID,
		ContractID:  bet.ContractID,
		Outcome:     string(bet.Outcome),
		Amount:      bet.Amount,
		Shares:      bet.Shares,
		ProbBefore:  bet.ProbBefore,
		ProbAfter:   bet.ProbAfter,
		LimitProb:   bet.LimitProb,
		OrderAmount: bet.OrderAmount,
		Fills:       fills,
		IsFilled:    bet.IsFilled,
		IsCancelled: bet.IsCancelled,
		Fees:        bet.Fees.Total(),
		CreatedAt:   bet.CreatedAt,
	}
}
