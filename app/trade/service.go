package trade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/app/dpm"
	"github.com/foldmarket/fold/app/order"
	"github.com/foldmarket/fold/app/settle"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/models"
)

// service implements the Service interface
type service struct {
	db        *gorm.DB // Main DB connection for starting transactions
	repo      Repository
	config    *Config
	logger    logger.Logger
	validator *validator.Validate
}

// NewService creates a new trade service
func NewService(db *gorm.DB, repo Repository, config *Config, log logger.Logger) Service {
	return &service{
		db:        db,
		repo:      repo,
		config:    config,
		logger:    log,
		validator: validator.New(),
	}
}

// PlaceBet prices the request against a snapshot of the pool and order book,
// then commits the result atomically. On a version conflict the whole
// compute-and-commit cycle is retried against a fresh snapshot.
func (s *service) PlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*BetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if req.Amount < s.config.MinBetAmount || req.Amount > s.config.MaxBetAmount {
		return nil, models.ErrInvalidBetAmount
	}

	var placed *models.Bet
	var contract *models.Contract
	var touched []uuid.UUID
	err := s.withRetries(func() error {
		var err error
		placed, contract, touched, err = s.tryPlaceBet(ctx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Cross-side fills can leave users holding offsetting YES/NO pairs.
	// Redeeming is best-effort after commit; the pair stays redeemable if
	// this pass loses a race.
	for _, uid := range dedupe(append(touched, userID)) {
		if err := s.redeemPosition(ctx, contract, uid); err != nil {
			s.logger.Error(err, map[string]interface{}{
				"contract_id": contract.ID.String(),
				"user_id":     uid.String(),
				"op":          "redeem",
			})
		}
	}

	return ToBetResponse(placed), nil
}

// tryPlaceBet runs one compute-and-commit cycle against the current snapshot.
func (s *service) tryPlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*models.Bet, *models.Contract, []uuid.UUID, error) {
	contract, err := s.loadContract(ctx, req.ContractID)
	if err != nil {
		return nil, nil, nil, err
	}

	orders, err := s.repo.GetOpenOrders(ctx, contract.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load open orders: %w", err)
	}
	balances, err := s.repo.GetBalances(ctx, orderOwners(orders))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load maker balances: %w", err)
	}

	info, err := order.ComputeBetInfo(contract, order.Request{
		UserID:    userID,
		Outcome:   models.Outcome(req.Outcome),
		Amount:    req.Amount,
		LimitProb: req.LimitProb,
	}, orders, balances, s.config.Fees, time.Now())
	if err != nil {
		return nil, nil, nil, err
	}

	var makerUsers []uuid.UUID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)

		// Version-guarded pool write goes first: a stale snapshot aborts
		// before any money moves.
		if err := repoTx.CommitContractState(ctx, contract, info.NewPool, nil, info.NewP, info.TotalFees, info.Bet.Amount); err != nil {
			return err
		}

		// The taker pays only what actually filled; a standing remainder
		// costs nothing until it matches.
		if err := s.debitWallet(ctx, repoTx, userID, info.Bet.Amount, models.TransactionTypeBet, contract.ID, info.Bet.ID, "bet placed"); err != nil {
			return err
		}
		if err := repoTx.CreateBet(ctx, &info.Bet); err != nil {
			return fmt.Errorf("create bet: %w", err)
		}

		for i := range info.MakerFills {
			mf := info.MakerFills[i]
			if err := mf.Order.ApplyFill(mf.Fill); err != nil {
				return err
			}
			if err := repoTx.UpdateBet(ctx, mf.Order); err != nil {
				return fmt.Errorf("update matched order: %w", err)
			}
			if err := s.debitWallet(ctx, repoTx, mf.Order.UserID, mf.Fill.Amount, models.TransactionTypeBet, contract.ID, mf.Order.ID, "limit order filled"); err != nil {
				return err
			}
			makerUsers = append(makerUsers, mf.Order.UserID)
		}

		for _, stale := range info.OrdersToCancel {
			if !stale.IsOpenOrder() {
				continue
			}
			if err := stale.Cancel(); err != nil {
				return err
			}
			if err := repoTx.UpdateBet(ctx, stale); err != nil {
				return fmt.Errorf("cancel unfunded order: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return &info.Bet, contract, makerUsers, nil
}

// CancelOrder moves a standing limit order to its terminal cancelled state.
func (s *service) CancelOrder(ctx context.Context, userID, betID uuid.UUID) error {
	bet, err := s.repo.GetBetByID(ctx, betID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrRecordNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if bet.UserID != userID {
		return models.ErrForbidden
	}
	if !bet.IsLimitOrder() {
		return models.ErrInvalidOrder
	}
	if err := bet.Cancel(); err != nil {
		return err
	}
	return s.repo.UpdateBet(ctx, bet)
}

// SellShares unwinds part of a position back into the pool. The legacy dpm
// path prices against aggregate share totals instead.
func (s *service) SellShares(ctx context.Context, userID uuid.UUID, req *SellSharesRequest) (*SaleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var resp *SaleResponse
	err := s.withRetries(func() error {
		var err error
		resp, err = s.trySellShares(ctx, userID, req)
		return err
	})
	return resp, err
}

func (s *service) trySellShares(ctx context.Context, userID uuid.UUID, req *SellSharesRequest) (*SaleResponse, error) {
	contract, err := s.loadContract(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.CanTrade() {
		return nil, models.ErrMarketClosed
	}

	bets, err := s.repo.GetUserBets(ctx, userID, contract.ID)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}

	outcome := models.Outcome(req.Outcome)
	var held, basis float64
	for _, b := range bets {
		held += b.SharesOf(outcome)
		if b.Outcome == outcome && b.Amount > 0 {
			basis += b.Amount
		}
	}
	if req.Shares > held+1e-9 {
		return nil, models.ErrInvalidBetAmount
	}

	var proceeds, probBefore, probAfter float64
	var newPool, newTotals models.PoolMap
	newP := contract.P

	switch contract.Mechanism {
	case models.MechanismCPMM1:
		state, err := cpmm.NewState(contract.Pool, contract.P)
		if err != nil {
			return nil, err
		}
		if probBefore, err = state.Probability(); err != nil {
			return nil, err
		}
		sale, err := cpmm.CalculateSale(state, req.Shares, outcome)
		if err != nil {
			return nil, err
		}
		if probAfter, err = sale.State.Probability(); err != nil {
			return nil, err
		}
		proceeds = sale.Value
		newPool = sale.State.Pool()
		newP = sale.State.P
	case models.MechanismCPMM2:
		if probBefore, err = cpmm.MultiProbability(contract.Pool, string(outcome)); err != nil {
			return nil, err
		}
		sale, err := cpmm.CalculateMultiSale(contract.Pool, req.Shares, string(outcome))
		if err != nil {
			return nil, err
		}
		if probAfter, err = cpmm.MultiProbability(sale.Pool, string(outcome)); err != nil {
			return nil, err
		}
		proceeds = sale.Value
		newPool = sale.Pool
	case models.MechanismDPM2:
		value, err := dpm.ShareValue(contract.Pool, contract.TotalShares, req.Shares, string(outcome))
		if err != nil {
			return nil, err
		}
		if probBefore, err = dpm.Probability(contract.TotalShares, string(outcome)); err != nil {
			return nil, err
		}
		// Fee applies to the profit over the sold fraction's cost basis.
		soldBasis := 0.0
		if held > 0 {
			soldBasis = basis * req.Shares / held
		}
		proceeds = dpm.SaleProceeds(soldBasis, value, dpm.DefaultFeeRate)

		newTotals = contract.TotalShares.Clone()
		newTotals[string(outcome)] -= req.Shares
		scale := 1 - value/contract.Pool.Total()
		newPool = contract.Pool.Clone()
		for k := range newPool {
			newPool[k] *= scale
		}
		if probAfter, err = dpm.Probability(newTotals, string(outcome)); err != nil {
			return nil, err
		}
	default:
		return nil, models.ErrUnsupportedMechanism
	}

	if math.IsNaN(proceeds) || math.IsInf(proceeds, 0) || proceeds < 0 {
		return nil, models.ErrNonFiniteResult
	}

	saleBet := &models.Bet{
		ID:         uuid.New(),
		UserID:     userID,
		ContractID: contract.ID,
		Outcome:    outcome,
		Amount:     -proceeds,
		Shares:     -req.Shares,
		ProbBefore: probBefore,
		ProbAfter:  probAfter,
		IsFilled:   true,
		IsSold:     true,
		CreatedAt:  time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.CommitContractState(ctx, contract, newPool, newTotals, newP, models.Fees{}, proceeds); err != nil {
			return err
		}
		if err := repoTx.CreateBet(ctx, saleBet); err != nil {
			return fmt.Errorf("create sale record: %w", err)
		}
		return s.creditWallet(ctx, repoTx, userID, proceeds, models.TransactionTypeSale, contract.ID, saleBet.ID, "shares sold")
	})
	if err != nil {
		return nil, err
	}

	s.refreshMetric(ctx, contract, userID)

	return &SaleResponse{
		BetID:          saleBet.ID,
		SharesSold:     req.Shares,
		Proceeds:       proceeds,
		NewProbability: probAfter,
	}, nil
}

// GetOpenOrders returns the standing limit orders of a contract.
func (s *service) GetOpenOrders(ctx context.Context, contractID uuid.UUID) ([]BetResponse, error) {
	orders, err := s.repo.GetOpenOrders(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("load open orders: %w", err)
	}
	out := make([]BetResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, *ToBetResponse(o))
	}
	return out, nil
}

// GetUserBets returns a user's bet history on a contract.
func (s *service) GetUserBets(ctx context.Context, userID, contractID uuid.UUID) ([]BetResponse, error) {
	bets, err := s.repo.GetUserBets(ctx, userID, contractID)
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}
	out := make([]BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, *ToBetResponse(b))
	}
	return out, nil
}

// GetPosition summarizes a user's standing on a contract from bet history.
func (s *service) GetPosition(ctx context.Context, userID, contractID uuid.UUID) (*PositionResponse, error) {
	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	bets, err := s.repo.GetUserBets(ctx, userID, contractID)
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}
	metric, err := settle.ComputeContractMetric(contract, userID, bets)
	if err != nil {
		return nil, err
	}
	return &PositionResponse{
		ContractID: contractID,
		Invested:   metric.Invested,
		Payout:     metric.Payout,
		Profit:     metric.Profit,
		Loan:       metric.Loan,
		HasShares:  metric.HasShares,
		Shares:     metric.TotalShares,
	}, nil
}

// redeemPosition converts a user's offsetting YES/NO pairs to cash and
// refreshes their derived metric. A no-op when nothing offsets.
func (s *service) redeemPosition(ctx context.Context, contract *models.Contract, userID uuid.UUID) error {
	if contract.Mechanism != models.MechanismCPMM1 {
		return nil
	}
	bets, err := s.repo.GetUserBets(ctx, userID, contract.ID)
	if err != nil {
		return fmt.Errorf("load bets for redemption: %w", err)
	}
	state, err := cpmm.NewState(contract.Pool, contract.P)
	if err != nil {
		return err
	}
	prob, err := state.Probability()
	if err != nil {
		return err
	}

	redemption := order.ComputeRedemption(bets, contract.ID, userID, prob, time.Now())
	if redemption == nil {
		s.refreshMetric(ctx, contract, userID)
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		for i := range redemption.Bets {
			if err := repoTx.CreateBet(ctx, &redemption.Bets[i]); err != nil {
				return fmt.Errorf("create redemption record: %w", err)
			}
		}
		return s.creditWallet(ctx, repoTx, userID, redemption.Net, models.TransactionTypeRedemption, contract.ID, redemption.Bets[0].ID, "offsetting shares redeemed")
	})
	if err != nil {
		return err
	}

	s.refreshMetric(ctx, contract, userID)
	return nil
}

// refreshMetric recomputes the derived position cache. Failures are logged,
// never propagated: the bet history is authoritative.
func (s *service) refreshMetric(ctx context.Context, contract *models.Contract, userID uuid.UUID) {
	bets, err := s.repo.GetUserBets(ctx, userID, contract.ID)
	if err == nil {
		var metric *models.ContractMetric
		if metric, err = settle.ComputeContractMetric(contract, userID, bets); err == nil {
			err = s.repo.SaveContractMetric(ctx, metric)
		}
	}
	if err != nil {
		s.logger.Error(err, map[string]interface{}{
			"contract_id": contract.ID.String(),
			"user_id":     userID.String(),
			"op":          "refresh_metric",
		})
	}
}

func (s *service) loadContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetContractByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get contract %s: %w", id, err)
	}
	return contract, nil
}

func (s *service) withRetries(fn func() error) error {
	var err error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		err = fn()
		if !errors.Is(err, models.ErrConcurrentModification) {
			return err
		}
	}
	return err
}

// debitWallet takes money from a wallet and writes the matching ledger row.
// Zero amounts (an unmatched standing order) write nothing.
func (s *service) debitWallet(ctx context.Context, repoTx Repository, userID uuid.UUID, amount float64, txType models.TransactionType, contractID, betID uuid.UUID, memo string) error {
	if amount <= 0 {
		return nil
	}
	wallet, err := repoTx.GetWallet(ctx, userID)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}
	value := decimal.NewFromFloat(amount)
	if err := wallet.Debit(value); err != nil {
		return err
	}
	if err := repoTx.UpdateWallet(ctx, wallet); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return repoTx.CreateTransaction(ctx, &models.Transaction{
		UserID:     userID,
		ContractID: &contractID,
		BetID:      &betID,
		Type:       txType,
		Amount:     value.Neg(),
		Balance:    wallet.Balance,
		Memo:       memo,
	})
}

func (s *service) creditWallet(ctx context.Context, repoTx Repository, userID uuid.UUID, amount float64, txType models.TransactionType, contractID, betID uuid.UUID, memo string) error {
	if amount <= 0 {
		return nil
	}
	wallet, err := repoTx.GetWallet(ctx, userID)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}
	value := decimal.NewFromFloat(amount)
	if err := wallet.Credit(value); err != nil {
		return err
	}
	if err := repoTx.UpdateWallet(ctx, wallet); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return repoTx.CreateTransaction(ctx, &models.Transaction{
		UserID:     userID,
		ContractID: &contractID,
		BetID:      &betID,
		Type:       txType,
		Amount:     value,
		Balance:    wallet.Balance,
		Memo:       memo,
	})
}

func orderOwners(orders []*models.Bet) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.UserID)
	}
	return dedupe(ids)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
