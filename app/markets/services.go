package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/app/dpm"
	"github.com/foldmarket/fold/app/settle"
	"github.com/foldmarket/fold/internal/cache"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/internal/sanitizer"
	rules "github.com/foldmarket/fold/internal/validator"
	"github.com/foldmarket/fold/models"
)

const probCachePrefix = "market:probs:"

// service implements the Service interface
type service struct {
	db        *gorm.DB
	repo      Repository
	config    *Config
	logger    logger.Logger
	stripper  sanitizer.HTMLStripperer
	probCache cache.Cache[map[string]float64]
	validator *validator.Validate
}

// NewService creates a new market service
func NewService(db *gorm.DB, repo Repository, config *Config, log logger.Logger,
	stripper sanitizer.HTMLStripperer, probCache cache.Cache[map[string]float64]) Service {
	return &service{
		db:        db,
		repo:      repo,
		config:    config,
		logger:    log,
		stripper:  stripper,
		probCache: probCache,
		validator: validator.New(),
	}
}

// CreateMarket creates a contract and seeds its pool with the creator's ante.
func (s *service) CreateMarket(ctx context.Context, creatorID uuid.UUID, req *CreateMarketRequest) (*MarketResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if req.Ante < s.config.MinAnte || req.Ante > s.config.MaxAnte {
		return nil, models.ErrInvalidLiquidity
	}
	if err := s.validateTiming(req.CloseTime); err != nil {
		return nil, err
	}

	contract := &models.Contract{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Question:    strings.TrimSpace(s.stripper.StripHTML(req.Question)),
		Description: strings.TrimSpace(s.stripper.StripHTML(req.Description)),
		OutcomeType: models.OutcomeType(req.OutcomeType),
		Status:      models.ContractStatusOpen,
		CloseTime:   req.CloseTime,
		TotalShares: models.PoolMap{},
	}

	switch contract.OutcomeType {
	case models.OutcomeTypeBinary, models.OutcomeTypePseudoNumeric:
		contract.Mechanism = models.MechanismCPMM1
		p := 0.5
		if req.InitialProbability != nil {
			p = *req.InitialProbability
		}
		if !rules.IsProbability(p) {
			return nil, models.ErrInvalidProbability
		}
		contract.P = p
		contract.Pool = models.PoolMap{
			string(models.OutcomeYes): req.Ante,
			string(models.OutcomeNo):  req.Ante,
		}
		if contract.OutcomeType == models.OutcomeTypePseudoNumeric {
			if req.MinValue == nil || req.MaxValue == nil || *req.MaxValue <= *req.MinValue {
				return nil, models.ErrInvalidValueRange
			}
			contract.MinValue = *req.MinValue
			contract.MaxValue = *req.MaxValue
			contract.IsLogScale = req.IsLogScale
		}
	case models.OutcomeTypeMultipleChoice:
		contract.Mechanism = models.MechanismCPMM2
		pool, err := s.buildMultiPool(req.Outcomes, req.Ante)
		if err != nil {
			return nil, err
		}
		contract.Pool = pool
	default:
		return nil, models.ErrInvalidOutcome
	}

	if err := contract.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.Create(ctx, contract); err != nil {
			return fmt.Errorf("create contract: %w", err)
		}
		return s.debitWallet(ctx, repoTx, creatorID, req.Ante, models.TransactionTypeLiquidity, contract.ID, "market ante")
	})
	if err != nil {
		return nil, err
	}

	return ToMarketResponse(contract, s.snapshotProbabilities(ctx, contract)), nil
}

// buildMultiPool seeds one reserve per distinct outcome label.
func (s *service) buildMultiPool(outcomes []string, ante float64) (models.PoolMap, error) {
	pool := make(models.PoolMap, len(outcomes))
	for _, raw := range outcomes {
		key := strings.TrimSpace(s.stripper.StripHTML(raw))
		if !rules.NotBlank(key) || rules.In(key, models.ResolutionMarket, models.ResolutionCancel) {
			return nil, models.ErrInvalidOutcome
		}
		if !rules.MaxRunes(key, 100) {
			return nil, models.ErrInvalidOutcome
		}
		if _, dup := pool[key]; dup {
			return nil, models.ErrInvalidOutcome
		}
		pool[key] = ante
	}
	if len(pool) < 2 || len(pool) > s.config.MaxOutcomes {
		return nil, models.ErrInvalidOutcome
	}
	return pool, nil
}

func (s *service) validateTiming(closeTime time.Time) error {
	now := time.Now()
	if closeTime.Before(now.Add(s.config.MinMarketDuration)) {
		return models.ErrInvalidCloseTime
	}
	if closeTime.After(now.Add(s.config.MaxMarketDuration)) {
		return models.ErrInvalidCloseTime
	}
	return nil
}

// GetMarkets returns paginated markets with current prices.
func (s *service) GetMarkets(ctx context.Context, filters *MarketFilters) (*MarketListResponse, error) {
	contracts, total, err := s.repo.GetAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	out := make([]MarketResponse, 0, len(contracts))
	for i := range contracts {
		out = append(out, *ToMarketResponse(&contracts[i], s.snapshotProbabilities(ctx, &contracts[i])))
	}
	return &MarketListResponse{
		Markets: out,
		Total:   total,
		Page:    filters.Page,
		PerPage: filters.PerPage,
	}, nil
}

// GetMarketByID returns one market with current prices.
func (s *service) GetMarketByID(ctx context.Context, id uuid.UUID) (*MarketResponse, error) {
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToMarketResponse(contract, s.snapshotProbabilities(ctx, contract)), nil
}

// GetMyMarkets returns markets created by a user.
func (s *service) GetMyMarkets(ctx context.Context, userID uuid.UUID) ([]MarketResponse, error) {
	contracts, err := s.repo.GetByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	out := make([]MarketResponse, 0, len(contracts))
	for i := range contracts {
		out = append(out, *ToMarketResponse(&contracts[i], s.snapshotProbabilities(ctx, &contracts[i])))
	}
	return out, nil
}

// AddLiquidity deepens the pool without moving the price.
func (s *service) AddLiquidity(ctx context.Context, userID, id uuid.UUID, amount float64) (*MarketResponse, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidLiquidity
	}
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contract.CanTrade() {
		return nil, models.ErrMarketClosed
	}
	if contract.Mechanism != models.MechanismCPMM1 {
		return nil, models.ErrUnsupportedMechanism
	}

	state, err := cpmm.NewState(contract.Pool, contract.P)
	if err != nil {
		return nil, err
	}
	deeper, err := state.AddLiquidity(amount)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.CommitPool(ctx, contract, deeper.Pool(), deeper.P); err != nil {
			return err
		}
		return s.debitWallet(ctx, repoTx, userID, amount, models.TransactionTypeLiquidity, contract.ID, "liquidity added")
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProbabilities(ctx, contract.ID)
	return ToMarketResponse(contract, s.snapshotProbabilities(ctx, contract)), nil
}

// CloseMarket stops trading without resolving. Creator only.
func (s *service) CloseMarket(ctx context.Context, userID, id uuid.UUID) error {
	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return err
	}
	if contract.CreatorID != userID {
		return models.ErrForbidden
	}
	if err := contract.Close(); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, contract)
}

// ResolveMarket settles every bet and credits payouts atomically with the
// terminal status write. A concurrent trade invalidates the computed payouts
// and surfaces as ErrConcurrentModification.
func (s *service) ResolveMarket(ctx context.Context, userID, id uuid.UUID, req *ResolveMarketRequest) (*ResolutionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	contract, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.CreatorID != userID {
		return nil, models.ErrForbidden
	}
	if !contract.CanResolve() {
		return nil, models.ErrMarketAlreadyClosed
	}
	if err := s.validateResolution(contract, req); err != nil {
		return nil, err
	}

	bets, err := s.repo.GetBetsByContract(ctx, contract.ID)
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}

	if err := contract.Resolve(req.Resolution, req.Probability, req.Value); err != nil {
		return nil, err
	}
	payouts, err := settle.ResolutionPayouts(contract, bets)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]float64)
	for _, p := range payouts {
		totals[p.UserID] += p.Payout
	}
	// Resolution only ever credits. A user who sold shares for more than they
	// wagered nets negative on a CANCEL, but that money already reached their
	// wallet through the sale ledger entry and is not clawed back.
	for userID, amount := range totals {
		if amount <= 0 {
			delete(totals, userID)
		}
	}

	txType := models.TransactionTypePayout
	memo := "market resolved"
	if req.Resolution == models.ResolutionCancel {
		txType = models.TransactionTypeRefund
		memo = "market cancelled"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		if err := repoTx.MarkResolved(ctx, contract); err != nil {
			return err
		}
		for userID, amount := range totals {
			if err := s.creditWallet(ctx, repoTx, userID, amount, txType, contract.ID, memo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProbabilities(ctx, contract.ID)
	s.refreshMetrics(ctx, contract, bets)

	var paid float64
	for _, amount := range totals {
		paid += amount
	}
	return &ResolutionResponse{
		ContractID: contract.ID,
		Resolution: req.Resolution,
		UsersPaid:  len(totals),
		TotalPaid:  paid,
	}, nil
}

// CloseExpiredMarkets sweeps open contracts past their close time.
func (s *service) CloseExpiredMarkets(ctx context.Context) (int, error) {
	expired, err := s.repo.GetExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("load expired markets: %w", err)
	}
	closed := 0
	for i := range expired {
		contract := &expired[i]
		if err := contract.Close(); err != nil {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, contract); err != nil {
			s.logger.Error(err, map[string]interface{}{
				"contract_id": contract.ID.String(),
				"op":          "close_expired",
			})
			continue
		}
		closed++
	}
	return closed, nil
}

// validateResolution checks the resolution against the contract's outcome
// type before any money moves.
func (s *service) validateResolution(contract *models.Contract, req *ResolveMarketRequest) error {
	if req.Resolution == models.ResolutionCancel {
		return nil
	}
	switch contract.Mechanism {
	case models.MechanismCPMM1:
		switch req.Resolution {
		case models.ResolutionYes, models.ResolutionNo:
			return nil
		case models.ResolutionMarket:
			if contract.OutcomeType == models.OutcomeTypePseudoNumeric {
				if req.Value == nil {
					return models.ErrInvalidResolution
				}
				return nil
			}
			if req.Probability == nil {
				return models.ErrInvalidResolution
			}
			return nil
		}
		return models.ErrInvalidResolution
	case models.MechanismCPMM2:
		if _, ok := contract.Pool[req.Resolution]; !ok {
			return models.ErrInvalidResolution
		}
		return nil
	case models.MechanismDPM2:
		if _, ok := contract.TotalShares[req.Resolution]; !ok {
			return models.ErrInvalidResolution
		}
		return nil
	}
	return models.ErrUnsupportedMechanism
}

// snapshotProbabilities returns the current price per outcome, via the cache
// when fresh. Failures degrade to a direct computation.
func (s *service) snapshotProbabilities(ctx context.Context, contract *models.Contract) map[string]float64 {
	key := probCachePrefix + contract.ID.String()
	if cached, err := s.probCache.Get(ctx, key); err == nil {
		return cached
	}

	probs, err := s.computeProbabilities(contract)
	if err != nil {
		s.logger.Error(err, map[string]interface{}{
			"contract_id": contract.ID.String(),
			"op":          "probabilities",
		})
		return nil
	}
	if err := s.probCache.Set(ctx, key, probs, s.config.ProbabilityCacheTTL); err != nil {
		s.logger.Debug("probability cache write failed", map[string]interface{}{
			"contract_id": contract.ID.String(),
		})
	}
	return probs
}

func (s *service) computeProbabilities(contract *models.Contract) (map[string]float64, error) {
	switch contract.Mechanism {
	case models.MechanismCPMM1:
		state, err := cpmm.NewState(contract.Pool, contract.P)
		if err != nil {
			return nil, err
		}
		prob, err := state.Probability()
		if err != nil {
			return nil, err
		}
		return map[string]float64{
			string(models.OutcomeYes): prob,
			string(models.OutcomeNo):  1 - prob,
		}, nil
	case models.MechanismCPMM2:
		probs := make(map[string]float64, len(contract.Pool))
		for outcome := range contract.Pool {
			prob, err := cpmm.MultiProbability(contract.Pool, outcome)
			if err != nil {
				return nil, err
			}
			probs[outcome] = prob
		}
		return probs, nil
	case models.MechanismDPM2:
		probs := make(map[string]float64, len(contract.TotalShares))
		for outcome := range contract.TotalShares {
			prob, err := dpm.Probability(contract.TotalShares, outcome)
			if err != nil {
				return nil, err
			}
			probs[outcome] = prob
		}
		return probs, nil
	}
	return nil, models.ErrUnsupportedMechanism
}

func (s *service) invalidateProbabilities(ctx context.Context, id uuid.UUID) {
	if err := s.probCache.Delete(ctx, probCachePrefix+id.String()); err != nil {
		s.logger.Debug("probability cache delete failed", map[string]interface{}{
			"contract_id": id.String(),
		})
	}
}

// refreshMetrics recomputes derived positions after resolution. Best effort.
func (s *service) refreshMetrics(ctx context.Context, contract *models.Contract, bets []*models.Bet) {
	byUser := make(map[uuid.UUID][]*models.Bet)
	for _, b := range bets {
		byUser[b.UserID] = append(byUser[b.UserID], b)
	}
	for userID, userBets := range byUser {
		metric, err := settle.ComputeContractMetric(contract, userID, userBets)
		if err == nil {
			err = s.repo.SaveContractMetric(ctx, metric)
		}
		if err != nil {
			s.logger.Error(err, map[string]interface{}{
				"contract_id": contract.ID.String(),
				"user_id":     userID.String(),
				"op":          "refresh_metric",
			})
		}
	}
}

func (s *service) loadContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get contract %s: %w", id, err)
	}
	return contract, nil
}

func (s *service) debitWallet(ctx context.Context, repoTx Repository, userID uuid.UUID, amount float64, txType models.TransactionType, contractID uuid.UUID, memo string) error {
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
		Type:       txType,
		Amount:     value.Neg(),
		Balance:    wallet.Balance,
		Memo:       memo,
	})
}

func (s *service) creditWallet(ctx context.Context, repoTx Repository, userID uuid.UUID, amount float64, txType models.TransactionType, contractID uuid.UUID, memo string) error {
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
		Type:       txType,
		Amount:     value,
		Balance:    wallet.Balance,
		Memo:       memo,
	})
}
