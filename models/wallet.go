package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a user's spendable balance. Amounts are decimal because the
// ledger must be exact; conversion to the float-based AMM math happens at the
// trade service boundary.
type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0.0000" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Wallet model
func (*Wallet) TableName() string {
	return "wallets"
}

// BeforeCreate sets up the model before creation
func (w *Wallet) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// CanDebit checks whether the wallet holds at least the given amount.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// Debit removes funds from the wallet, failing closed on overdraft.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if amount.LessThan(decimal.Zero) {
		return ErrInvalidTransactionAmount
	}
	if !w.CanDebit(amount) {
		return ErrInsufficientBalance
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// Credit adds funds to the wallet.
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if amount.LessThan(decimal.Zero) {
		return ErrInvalidTransactionAmount
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}

// Validate performs validation on the wallet model
func (w *Wallet) Validate() error {
	if w.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if w.Balance.LessThan(decimal.Zero) {
		return ErrNegativeBalance
	}
	return nil
}
