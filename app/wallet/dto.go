package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foldmarket/fold/models"
)

// DepositRequest tops up the caller's wallet.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// WithdrawRequest takes funds out of the caller's wallet.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// Response is the API view of a wallet.
type Response struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionResponse is the API view of a ledger row.
type TransactionResponse struct {
	ID         uuid.UUID       `json:"id"`
	ContractID *uuid.UUID      `json:"contract_id,omitempty"`
	BetID      *uuid.UUID      `json:"bet_id,omitempty"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	Memo       string          `json:"memo,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToWalletResponse maps a wallet model to its API representation.
func ToWalletResponse(wallet *models.Wallet) *Response {
	return &Response{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Balance:   wallet.Balance,
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt,
	}
}

// ToTransactionResponse maps a transaction model to its API representation.
func ToTransactionResponse(transaction *models.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:         transaction.ID,
		ContractID: transaction.ContractID,
		BetID:      transaction.BetID,
		Type:       string(transaction.Type),
		Amount:     transaction.Amount,
		Balance:    transaction.Balance,
		Memo:       transaction.Memo,
		CreatedAt:  transaction.CreatedAt,
	}
}
