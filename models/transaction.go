package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeBet        TransactionType = "bet"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypePayout     TransactionType = "payout"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeRedemption TransactionType = "redemption"
	TransactionTypeLiquidity  TransactionType = "liquidity"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// Transaction is an immutable ledger row recording money moving into or out
// of a wallet. Amount is positive for credits and negative for debits.
type Transaction struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user" json:"user_id"`
	ContractID *uuid.UUID      `gorm:"type:uuid;index" json:"contract_id"`
	BetID      *uuid.UUID      `gorm:"type:uuid" json:"bet_id"`
	Type       TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance"`
	Memo       string          `gorm:"type:varchar(255)" json:"memo"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (*Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate sets up the model before creation
func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsCredit reports whether the transaction adds funds to the wallet.
func (t *Transaction) IsCredit() bool {
	return t.Amount.GreaterThan(decimal.Zero)
}

// Validate performs validation on the transaction model
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if t.Type == "" {
		return ErrInvalidTransactionType
	}
	if t.Amount.IsZero() {
		return ErrInvalidTransactionAmount
	}
	return nil
}
