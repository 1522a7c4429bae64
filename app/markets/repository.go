package markets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new market repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create creates a new contract
func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// GetByID returns a contract by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetAll returns contracts with filters and pagination, newest first
func (r *repository) GetAll(ctx context.Context, filters *MarketFilters) ([]models.Contract, int64, error) {
	var contracts []models.Contract
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Contract{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatorID != nil {
		query = query.Where("creator_id = ?", *filters.CreatorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	perPage := filters.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&contracts).Error
	return contracts, total, err
}

// GetByCreator returns all contracts created by a user
func (r *repository) GetByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&contracts).Error
	return contracts, err
}

// GetExpired returns open contracts whose close time has passed
func (r *repository) GetExpired(ctx context.Context) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("status = ? AND close_time < ?", models.ContractStatusOpen, time.Now()).
		Find(&contracts).Error
	return contracts, err
}

// UpdateStatus writes the contract's status guarded by its version.
func (r *repository) UpdateStatus(ctx context.Context, contract *models.Contract) error {
	return r.guardedUpdate(ctx, contract, map[string]interface{}{
		"status":  contract.Status,
		"version": contract.Version + 1,
	})
}

// MarkResolved writes the terminal resolution state guarded by the version the
// payouts were computed against.
func (r *repository) MarkResolved(ctx context.Context, contract *models.Contract) error {
	return r.guardedUpdate(ctx, contract, map[string]interface{}{
		"status":                 contract.Status,
		"resolution":             contract.Resolution,
		"resolution_probability": contract.ResolutionProbability,
		"resolution_value":       contract.ResolutionValue,
		"resolved_at":            contract.ResolvedAt,
		"version":                contract.Version + 1,
	})
}

// CommitPool writes new reserves after a liquidity injection.
func (r *repository) CommitPool(ctx context.Context, contract *models.Contract, pool models.PoolMap, p float64) error {
	if err := r.guardedUpdate(ctx, contract, map[string]interface{}{
		"pool":    pool,
		"p":       p,
		"version": contract.Version + 1,
	}); err != nil {
		return err
	}
	contract.Pool = pool
	contract.P = p
	return nil
}

func (r *repository) guardedUpdate(ctx context.Context, contract *models.Contract, updates map[string]interface{}) error {
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
	contract.Version++
	return nil
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

// GetWallet returns a user's wallet
func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
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
