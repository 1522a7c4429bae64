package trade

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/models"
)

// Repository defines the interface for trade data access
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetContractByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	// CommitContractState persists a new pool snapshot guarded by the version
	// the snapshot was computed from. A nil totalShares leaves the stored
	// share totals untouched. Returns ErrConcurrentModification when another
	// trade committed first.
	CommitContractState(ctx context.Context, contract *models.Contract, pool, totalShares models.PoolMap, p float64, fees models.Fees, volumeDelta float64) error

	GetBetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	GetOpenOrders(ctx context.Context, contractID uuid.UUID) ([]*models.Bet, error)
	GetUserBets(ctx context.Context, userID, contractID uuid.UUID) ([]*models.Bet, error)
	GetBetsByContract(ctx context.Context, contractID uuid.UUID) ([]*models.Bet, error)
	CreateBet(ctx context.Context, bet *models.Bet) error
	UpdateBet(ctx context.Context, bet *models.Bet) error

	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetBalances(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]float64, error)
	UpdateWallet(ctx context.Context, wallet *models.Wallet) error
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error

	SaveContractMetric(ctx context.Context, metric *models.ContractMetric) error
}

// Service defines the interface for trade business logic
type Service interface {
	PlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*BetResponse, error)
	CancelOrder(ctx context.Context, userID, betID uuid.UUID) error
	SellShares(ctx context.Context, userID uuid.UUID, req *SellSharesRequest) (*SaleResponse, error)

	GetOpenOrders(ctx context.Context, contractID uuid.UUID) ([]BetResponse, error)
	GetUserBets(ctx context.Context, userID, contractID uuid.UUID) ([]BetResponse, error)
	GetPosition(ctx context.Context, userID, contractID uuid.UUID) (*PositionResponse, error)
}
