package markets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/models"
)

// Repository defines the interface for market data access
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetAll(ctx context.Context, filters *MarketFilters) ([]models.Contract, int64, error)
	GetByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Contract, error)
	GetExpired(ctx context.Context) ([]models.Contract, error)

	// UpdateStatus and MarkResolved are version-guarded; a concurrent commit
	// surfaces as ErrConcurrentModification.
	UpdateStatus(ctx context.Context, contract *models.Contract) error
	MarkResolved(ctx context.Context, contract *models.Contract) error
	CommitPool(ctx context.Context, contract *models.Contract, pool models.PoolMap, p float64) error

	GetBetsByContract(ctx context.Context, contractID uuid.UUID) ([]*models.Bet, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	UpdateWallet(ctx context.Context, wallet *models.Wallet) error
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	SaveContractMetric(ctx context.Context, metric *models.ContractMetric) error
}

// Service defines the interface for market business logic
type Service interface {
	CreateMarket(ctx context.Context, creatorID uuid.UUID, req *CreateMarketRequest) (*MarketResponse, error)
	GetMarkets(ctx context.Context, filters *MarketFilters) (*MarketListResponse, error)
	GetMarketByID(ctx context.Context, id uuid.UUID) (*MarketResponse, error)
	GetMyMarkets(ctx context.Context, userID uuid.UUID) ([]MarketResponse, error)
	AddLiquidity(ctx context.Context, userID, id uuid.UUID, amount float64) (*MarketResponse, error)
	CloseMarket(ctx context.Context, userID, id uuid.UUID) error
	ResolveMarket(ctx context.Context, userID, id uuid.UUID, req *ResolveMarketRequest) (*ResolutionResponse, error)
	CloseExpiredMarkets(ctx context.Context) (int, error)
}
