package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new trade repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// GetContractByID returns a contract snapshot by ID
func (r *repository) GetContractByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// CommitContractState writes the post-trade pool guarded by the version the
// trade was computed against. A concurrent commit bumps the version first and
// makes this a no-op, which surfaces as ErrConcurrentModification.
func (r *repository) CommitContractState(ctx context.Context, contract *models.Contract, pool, totalShares models.PoolMap, p float64, fees models.Fees, volumeDelta float64) error {
	collected := contract.CollectedFees.Add(fees)
	updates := map[string]interface{}{
		"pool":           pool,
		"p":              p,
		"collected_fees": collected,
		"volume":         gorm.Expr("volume + ?", decimal.NewFromFloat(volumeDelta)),
		"version":        contract.Version + 1,
	}
	if totalShares != nil {
		updates["total_shares"] = totalShares
	}
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND version = ?", contract.ID, contract.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrConcurrentModification
	}
	contract.Pool = pool
	contract.P = p
	if totalShares != nil {
		contract.TotalShares = totalShares
	}
	contract.CollectedFees = collected
	contract.Version++
	return nil
}

// GetBetByID returns a bet by ID
func (r *repository) GetBetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// GetOpenOrders returns the standing limit orders of a contract, oldest first
func (r *repository) GetOpenOrders(ctx context.Context, contractID uuid.UUID) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND limit_prob IS NOT NULL AND is_filled = ? AND is_cancelled = ?",
			contractID, false, false).
		Order("created_at ASC").
		Find(&bets).Error
	return bets, err
}

// GetUserBets returns all bets of a user on a contract, oldest first
func (r *repository) GetUserBets(ctx context.Context, userID, contractID uuid.UUID) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", userID, contractID).
		Order("created_at ASC").
		Find(&bets).Error
	return bets, err
}

// GetBetsByContract returns every bet on a contract
func (r *repository) GetBetsByContract(ctx context.Context, contractID uuid.UUID) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&bets).Error
	return bets, err
}

// CreateBet creates a new bet
func (r *repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

// UpdateBet updates an existing bet
func (r *repository) UpdateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Save(bet).Error
}

// GetWallet returns a user's wallet
func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetBalances returns the spendable balance per user, used to cap maker fills
func (r *repository) GetBalances(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]float64{}, nil
	}
	var wallets []models.Wallet
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	balances := make(map[uuid.UUID]float64, len(wallets))
	for i := range wallets {
		balances[wallets[i].UserID], _ = wallets[i].Balance.Float64()
	}
	return balances, nil
}

// UpdateWallet updates a user's wallet
func (r *repository) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Save(wallet).Error
}

// CreateTransaction creates a new ledger transaction
func (r *repository) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

// SaveContractMetric upserts the derived position summary
func (r *repository) SaveContractMetric(ctx context.Context, metric *models.ContractMetric) error {
	var existing models.ContractMetric
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", metric.UserID, metric.ContractID).
		First(&existing).Error
	if err == nil {
		metric.ID = existing.ID
		metric.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(metric).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(metric).Error
	}
	return err
}
