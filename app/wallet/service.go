package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/models"
)

type Service interface {
	// GetWallet returns the caller's wallet, creating an empty one on first
	// access.
	GetWallet(ctx context.Context, userID uuid.UUID) (*Response, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Response, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Response, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]TransactionResponse, error)
}

type service struct {
	db   *gorm.DB
	repo Repository
}

func NewService(db *gorm.DB, repo Repository) Service {
	return &service{db: db, repo: repo}
}

func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*Response, error) {
	wallet, err := s.getOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return ToWalletResponse(wallet), nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Response, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidTransactionAmount
	}

	var wallet *models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		var err error
		wallet, err = s.getOrCreate(ctx, repoTx, userID)
		if err != nil {
			return err
		}
		if err := wallet.Credit(amount); err != nil {
			return err
		}
		if err := repoTx.UpdateWallet(ctx, wallet); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		return repoTx.CreateTransaction(ctx, &models.Transaction{
			UserID:  userID,
			Type:    models.TransactionTypeDeposit,
			Amount:  amount,
			Balance: wallet.Balance,
			Memo:    "deposit",
		})
	})
	if err != nil {
		return nil, err
	}
	return ToWalletResponse(wallet), nil
}

func (s *service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Response, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidTransactionAmount
	}

	var wallet *models.Wallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		var err error
		wallet, err = repoTx.GetWalletByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrRecordNotFound
			}
			return fmt.Errorf("get wallet: %w", err)
		}
		if err := wallet.Debit(amount); err != nil {
			return err
		}
		if err := repoTx.UpdateWallet(ctx, wallet); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		return repoTx.CreateTransaction(ctx, &models.Transaction{
			UserID:  userID,
			Type:    models.TransactionTypeWithdrawal,
			Amount:  amount.Neg(),
			Balance: wallet.Balance,
			Memo:    "withdrawal",
		})
	})
	if err != nil {
		return nil, err
	}
	return ToWalletResponse(wallet), nil
}

func (s *service) GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]TransactionResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	transactions, err := s.repo.GetUserTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	out := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, *ToTransactionResponse(&transactions[i]))
	}
	return out, nil
}

func (s *service) getOrCreate(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := repo.GetWalletByUser(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	wallet = &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := repo.CreateWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}
