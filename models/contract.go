package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractStatus represents the lifecycle state of a contract.
type ContractStatus string

const (
	ContractStatusOpen      ContractStatus = "open"
	ContractStatusClosed    ContractStatus = "closed"
	ContractStatusResolved  ContractStatus = "resolved"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// Contract represents a prediction market. Pool reserves, the weighting
// parameter P and the version column together form the snapshot that every
// trade is computed against; the version is bumped on each committed trade so
// stale computations are rejected.
type Contract struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	CreatorID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"creator_id"`
	Question    string      `gorm:"type:varchar(255);not null" json:"question"`
	Description string      `gorm:"type:text" json:"description"`
	OutcomeType OutcomeType `gorm:"type:varchar(20);not null;default:'binary'" json:"outcome_type"`
	Mechanism   Mechanism   `gorm:"type:varchar(10);not null;default:'cpmm-1'" json:"mechanism"`

	Pool        PoolMap `gorm:"type:jsonb;not null;default:'{}'" json:"pool"`
	P           float64 `gorm:"type:double precision;not null;default:0.5" json:"p"`
	TotalShares PoolMap `gorm:"type:jsonb;not null;default:'{}'" json:"total_shares"`

	Status                ContractStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Resolution            string         `gorm:"type:varchar(100)" json:"resolution"`
	ResolutionProbability *float64       `gorm:"type:double precision" json:"resolution_probability"`
	ResolutionValue       *float64       `gorm:"type:double precision" json:"resolution_value"`
	ResolvedAt            *time.Time     `gorm:"type:timestamptz" json:"resolved_at"`

	// Pseudo-numeric value mapping.
	MinValue   float64 `gorm:"type:double precision;default:0" json:"min_value"`
	MaxValue   float64 `gorm:"type:double precision;default:0" json:"max_value"`
	IsLogScale bool    `gorm:"default:false" json:"is_log_scale"`

	Volume        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0.00" json:"volume"`
	CollectedFees Fees            `gorm:"type:jsonb;not null;default:'{}'" json:"collected_fees"`

	Version   int64     `gorm:"not null;default:0" json:"version"`
	CloseTime time.Time `gorm:"type:timestamptz;not null;index" json:"close_time"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Bets []Bet `gorm:"foreignKey:ContractID" json:"-"`
}

// TableName specifies the table name for Contract model
func (*Contract) TableName() string {
	return "contracts"
}

// BeforeCreate sets up the model before creation
func (c *Contract) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsOpen checks if the contract is open for trading.
func (c *Contract) IsOpen() bool {
	return c.Status == ContractStatusOpen && time.Now().Before(c.CloseTime)
}

// IsResolved checks if the contract has been resolved.
func (c *Contract) IsResolved() bool {
	return c.Status == ContractStatusResolved || c.Status == ContractStatusCancelled
}

// CanTrade checks if new bets may be placed against this contract.
func (c *Contract) CanTrade() bool {
	return c.IsOpen() && !c.IsResolved()
}

// CanResolve checks if the contract can be resolved.
func (c *Contract) CanResolve() bool {
	return !c.IsResolved()
}

// Resolve marks the contract resolved. The resolution must already be
// validated against the contract's outcome type.
func (c *Contract) Resolve(resolution string, probability, value *float64) error {
	if !c.CanResolve() {
		return ErrMarketAlreadyClosed
	}

	now := time.Now()
	if resolution == ResolutionCancel {
		c.Status = ContractStatusCancelled
	} else {
		c.Status = ContractStatusResolved
	}
	c.Resolution = resolution
	c.ResolutionProbability = probability
	c.ResolutionValue = value
	c.ResolvedAt = &now

	return nil
}

// Close closes the contract for further trading without resolving it.
func (c *Contract) Close() error {
	if c.IsResolved() {
		return ErrMarketAlreadyClosed
	}
	c.Status = ContractStatusClosed
	return nil
}

// MappedValue converts a probability to the contract's numeric value range.
// Only meaningful for pseudo-numeric contracts.
func (c *Contract) MappedValue(prob float64) float64 {
	if c.OutcomeType != OutcomeTypePseudoNumeric {
		return prob
	}
	if c.IsLogScale {
		return math.Pow(10, prob*math.Log10(c.MaxValue-c.MinValue+1)) + c.MinValue - 1
	}
	return prob*(c.MaxValue-c.MinValue) + c.MinValue
}

// PseudoProbability converts a numeric value to the probability the contract
// trades at. Inverse of MappedValue, clamped to [0, 1].
func (c *Contract) PseudoProbability(value float64) float64 {
	if c.OutcomeType != OutcomeTypePseudoNumeric || c.MaxValue <= c.MinValue {
		return 0
	}
	var p float64
	if c.IsLogScale {
		p = math.Log10(value-c.MinValue+1) / math.Log10(c.MaxValue-c.MinValue+1)
	} else {
		p = (value - c.MinValue) / (c.MaxValue - c.MinValue)
	}
	return math.Max(0, math.Min(1, p))
}

// Validate performs validation on the contract model
func (c *Contract) Validate() error {
	if c.CreatorID == uuid.Nil {
		return ErrInvalidUserID
	}
	if c.Question == "" {
		return ErrInvalidQuestion
	}
	if c.CloseTime.Before(time.Now()) {
		return ErrInvalidCloseTime
	}
	switch c.Mechanism {
	case MechanismCPMM1:
		if c.P <= 0 || c.P >= 1 {
			return ErrInvalidPoolP
		}
		if c.Pool[string(OutcomeYes)] <= 0 || c.Pool[string(OutcomeNo)] <= 0 {
			return ErrInvalidPool
		}
	case MechanismCPMM2:
		if len(c.Pool) < 2 {
			return ErrInvalidPool
		}
		for _, reserve := range c.Pool {
			if reserve <= 0 {
				return ErrInvalidPool
			}
		}
	case MechanismDPM2:
		// frozen mechanism; historical contracts only
	default:
		return ErrUnsupportedMechanism
	}
	if c.OutcomeType == OutcomeTypePseudoNumeric && c.MaxValue <= c.MinValue {
		return ErrInvalidValueRange
	}
	return nil
}
