package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bet represents a user's position change on a contract. A bet is immutable
// once created except for its append-only fills list and the is_filled /
// is_cancelled flags of a limit order.
//
// A market order is created fully filled. A limit order carries LimitProb and
// OrderAmount; Amount and Shares track the filled portion and grow as fills
// are appended.
type Bet struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_bets_user" json:"user_id"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;index:idx_bets_contract" json:"contract_id"`

	Outcome    Outcome `gorm:"type:varchar(32);not null" json:"outcome"`
	Amount     float64 `gorm:"type:double precision;not null" json:"amount"`
	Shares     float64 `gorm:"type:double precision;not null" json:"shares"`
	ProbBefore float64 `gorm:"type:double precision;not null" json:"prob_before"`
	ProbAfter  float64 `gorm:"type:double precision;not null" json:"prob_after"`

	LimitProb   *float64 `gorm:"type:double precision" json:"limit_prob"`
	OrderAmount *float64 `gorm:"type:double precision" json:"order_amount"`
	Fills       FillList `gorm:"type:jsonb;not null;default:'[]'" json:"fills"`
	IsFilled    bool     `gorm:"not null;default:true" json:"is_filled"`
	IsCancelled bool     `gorm:"not null;default:false" json:"is_cancelled"`

	IsRedemption bool    `gorm:"not null;default:false" json:"is_redemption"`
	IsSold       bool    `gorm:"not null;default:false" json:"is_sold"`
	LoanAmount   float64 `gorm:"type:double precision;not null;default:0" json:"loan_amount"`
	Fees         Fees    `gorm:"type:jsonb;not null;default:'{}'" json:"fees"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}

// TableName specifies the table name for Bet model
func (*Bet) TableName() string {
	return "bets"
}

// BeforeCreate sets up the model before creation
func (b *Bet) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsLimitOrder reports whether this bet was placed with a price cap.
func (b *Bet) IsLimitOrder() bool {
	return b.LimitProb != nil
}

// IsOpenOrder reports whether this bet is a standing limit order that can
// still receive fills.
func (b *Bet) IsOpenOrder() bool {
	return b.IsLimitOrder() && !b.IsFilled && !b.IsCancelled
}

// RemainingAmount returns the unfilled money of a limit order. Zero for
// market orders and terminal orders.
func (b *Bet) RemainingAmount() float64 {
	if b.OrderAmount == nil {
		return 0
	}
	remaining := *b.OrderAmount - b.Fills.TotalAmount()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyFill appends a fill to an open limit order, updating the filled
// amount, shares and the is_filled flag. The remaining amount never goes
// negative.
func (b *Bet) ApplyFill(fill Fill) error {
	if !b.IsOpenOrder() {
		return ErrOrderAlreadyTerminal
	}
	if fill.Amount > b.RemainingAmount()+fillEpsilon {
		return ErrOrderOverfilled
	}

	b.Fills = append(b.Fills, fill)
	b.Amount += fill.Amount
	b.Shares += fill.Shares
	if b.RemainingAmount() <= fillEpsilon {
		b.IsFilled = true
	}
	return nil
}

// Cancel moves an open order to its terminal cancelled state.
func (b *Bet) Cancel() error {
	if b.IsFilled || b.IsCancelled {
		return ErrOrderAlreadyTerminal
	}
	b.IsCancelled = true
	return nil
}

// SharesOf returns the bet's shares if it is on the given outcome.
func (b *Bet) SharesOf(outcome Outcome) float64 {
	if b.Outcome == outcome {
		return b.Shares
	}
	return 0
}

// Validate performs validation on the bet model
func (b *Bet) Validate() error {
	if b.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if b.ContractID == uuid.Nil {
		return ErrInvalidContractID
	}
	if b.Outcome == "" {
		return ErrInvalidOutcome
	}
	if b.LimitProb != nil && (*b.LimitProb <= 0 || *b.LimitProb >= 1) {
		return ErrInvalidProbability
	}
	if b.OrderAmount != nil && *b.OrderAmount <= 0 {
		return ErrInvalidBetAmount
	}
	return nil
}

// fillEpsilon absorbs float rounding when deciding whether an order is fully
// consumed.
const fillEpsilon = 1e-9
