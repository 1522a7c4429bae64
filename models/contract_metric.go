package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractMetric is a derived per-user-per-contract position summary,
// recomputed from the bet history after every trade. It is a cache, never
// authoritative: the bet history always wins on disagreement.
type ContractMetric struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_metrics_user_contract" json:"user_id"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_metrics_user_contract" json:"contract_id"`

	Invested    float64 `gorm:"type:double precision;not null;default:0" json:"invested"`
	Payout      float64 `gorm:"type:double precision;not null;default:0" json:"payout"`
	Profit      float64 `gorm:"type:double precision;not null;default:0" json:"profit"`
	Loan        float64 `gorm:"type:double precision;not null;default:0" json:"loan"`
	HasShares   bool    `gorm:"not null;default:false" json:"has_shares"`
	TotalShares PoolMap `gorm:"type:jsonb;not null;default:'{}'" json:"total_shares"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ContractMetric model
func (*ContractMetric) TableName() string {
	return "contract_metrics"
}

// BeforeCreate sets up the model before creation
func (m *ContractMetric) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SharesOf returns the user's share count for an outcome.
func (m *ContractMetric) SharesOf(outcome Outcome) float64 {
	return m.TotalShares[string(outcome)]
}
