package order

import (
	"math"
	"time"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
)

// Request describes an incoming bet or limit order.
type Request struct {
	UserID    uuid.UUID
	Outcome   models.Outcome
	Amount    float64
	LimitProb *float64
}

// BetInfo is everything a caller must persist to commit a bet: the taker's
// bet record, the pool it leaves behind, fills for matched standing orders
// and orders that must be cancelled. The computation is pure; nothing is
// written anywhere.
type BetInfo struct {
	Bet            models.Bet
	NewPool        models.PoolMap
	NewP           float64
	MakerFills     []MakerFill
	OrdersToCancel []*models.Bet
	TotalFees      models.Fees
}

// ComputeBetInfo prices a bet against the contract's pool and, on binary
// contracts, its open limit orders. A market order always consumes its full
// amount; a limit order may fill partially and stand for the remainder.
// Multi-outcome contracts trade against the pool alone.
func ComputeBetInfo(
	contract *models.Contract,
	req Request,
	openOrders []*models.Bet,
	balances map[uuid.UUID]float64,
	schedule cpmm.FeeSchedule,
	now time.Time,
) (*BetInfo, error) {
	if contract == nil {
		return nil, models.ErrInvalidOrder
	}
	if !contract.CanTrade() {
		return nil, models.ErrMarketClosed
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, models.ErrInvalidOrder
	}
	if req.LimitProb != nil && (*req.LimitProb <= 0 || *req.LimitProb >= 1 || math.IsNaN(*req.LimitProb)) {
		return nil, models.ErrInvalidOrder
	}

	switch contract.Mechanism {
	case models.MechanismCPMM1:
		return computeBinaryBetInfo(contract, req, openOrders, balances, schedule, now)
	case models.MechanismCPMM2:
		return computeMultiBetInfo(contract, req, now)
	default:
		return nil, models.ErrUnsupportedMechanism
	}
}

func computeBinaryBetInfo(
	contract *models.Contract,
	req Request,
	openOrders []*models.Bet,
	balances map[uuid.UUID]float64,
	schedule cpmm.FeeSchedule,
	now time.Time,
) (*BetInfo, error) {
	if !req.Outcome.IsBinary() {
		return nil, models.ErrInvalidOutcome
	}

	state, err := cpmm.NewState(contract.Pool, contract.P)
	if err != nil {
		return nil, err
	}
	probBefore, err := state.Probability()
	if err != nil {
		return nil, err
	}

	// The bet id is minted up front so maker fills can reference it.
	takerID := uuid.New()

	result, err := computeFills(
		state, req.Outcome, req.Amount, req.LimitProb, takerID,
		oppositeOpenOrders(openOrders, req.Outcome), balances, schedule, now,
	)
	if err != nil {
		return nil, err
	}

	probAfter, err := result.State.Probability()
	if err != nil {
		return nil, err
	}

	bet := models.Bet{
		ID:         takerID,
		UserID:     req.UserID,
		ContractID: contract.ID,
		Outcome:    req.Outcome,
		Amount:     result.TakerFills.TotalAmount(),
		Shares:     result.TakerFills.TotalShares(),
		ProbBefore: probBefore,
		ProbAfter:  probAfter,
		Fills:      result.TakerFills,
		Fees:       result.TotalFees,
		IsFilled:   true,
		CreatedAt:  now,
	}
	if req.LimitProb != nil {
		orderAmount := req.Amount
		bet.OrderAmount = &orderAmount
		bet.LimitProb = req.LimitProb
		bet.IsFilled = bet.Amount >= req.Amount-fillEpsilon
	}

	return &BetInfo{
		Bet:            bet,
		NewPool:        result.State.Pool(),
		NewP:           result.State.P,
		MakerFills:     result.MakerFills,
		OrdersToCancel: result.OrdersToCancel,
		TotalFees:      result.TotalFees,
	}, nil
}
