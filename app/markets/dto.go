package markets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foldmarket/fold/models"
)

// CreateMarketRequest is the payload for creating a market.
type CreateMarketRequest struct {
	Question    string    `json:"question" validate:"required,min=10,max=255"`
	Description string    `json:"description" validate:"max=10000"`
	OutcomeType string    `json:"outcome_type" validate:"required,oneof=binary pseudo-numeric multiple-choice"`
	CloseTime   time.Time `json:"close_time" validate:"required"`
	Ante        float64   `json:"ante" validate:"required,gt=0"`

	// Binary and pseudo-numeric markets open at this probability.
	InitialProbability *float64 `json:"initial_probability" validate:"omitempty,gt=0,lt=1"`

	// Pseudo-numeric value range.
	MinValue   *float64 `json:"min_value"`
	MaxValue   *float64 `json:"max_value"`
	IsLogScale bool     `json:"is_log_scale"`

	// Multiple-choice outcome labels.
	Outcomes []string `json:"outcomes" validate:"omitempty,dive,min=1,max=100"`
}

// ResolveMarketRequest is the payload for resolving a market.
type ResolveMarketRequest struct {
	Resolution string `json:"resolution" validate:"required"`
	// Probability backs a binary MKT resolution.
	Probability *float64 `json:"probability" validate:"omitempty,gte=0,lte=1"`
	// Value backs a pseudo-numeric MKT resolution.
	Value *float64 `json:"value"`
}

// AddLiquidityRequest is the payload for subsidizing a market's pool.
type AddLiquidityRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// MarketFilters narrows market listings.
type MarketFilters struct {
	Status    *models.ContractStatus
	CreatorID *uuid.UUID
	Page      int
	PerPage   int
}

// MarketResponse is the API view of a market.
type MarketResponse struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   uuid.UUID `json:"creator_id"`
	Question    string    `json:"question"`
	Description string    `json:"description,omitempty"`
	OutcomeType string    `json:"outcome_type"`
	Mechanism   string    `json:"mechanism"`
	Status      string    `json:"status"`

	// Probabilities holds the current price per outcome token.
	Probabilities map[string]float64 `json:"probabilities,omitempty"`

	Resolution            string     `json:"resolution,omitempty"`
	ResolutionProbability *float64   `json:"resolution_probability,omitempty"`
	ResolutionValue       *float64   `json:"resolution_value,omitempty"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`

	MinValue   float64 `json:"min_value,omitempty"`
	MaxValue   float64 `json:"max_value,omitempty"`
	IsLogScale bool    `json:"is_log_scale,omitempty"`

	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
	CreatedAt time.Time       `json:"created_at"`
}

// MarketListResponse is a paginated market listing.
type MarketListResponse struct {
	Markets []MarketResponse `json:"markets"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// ResolutionResponse reports the outcome of resolving a market.
type ResolutionResponse struct {
	ContractID uuid.UUID `json:"contract_id"`
	Resolution string    `json:"resolution"`
	UsersPaid  int       `json:"users_paid"`
	TotalPaid  float64   `json:"total_paid"`
}

// ToMarketResponse maps a contract to its API representation.
func ToMarketResponse(contract *models.Contract, probabilities map[string]float64) *MarketResponse {
	return &MarketResponse{
		ID:                    contract.ID,
		CreatorID:             contract.CreatorID,
		Question:              contract.Question,
		Description:           contract.Description,
		OutcomeType:           string(contract.OutcomeType),
		Mechanism:             string(contract.Mechanism),
		Status:                string(contract.Status),
		Probabilities:         probabilities,
		Resolution:            contract.Resolution,
		ResolutionProbability: contract.ResolutionProbability,
		ResolutionValue:       contract.ResolutionValue,
		ResolvedAt:            contract.ResolvedAt,
		MinValue:              contract.MinValue,
		MaxValue:              contract.MaxValue,
		IsLogScale:            contract.IsLogScale,
		Volume:                contract.Volume,
		CloseTime:             contract.CloseTime,
		CreatedAt:             contract.CreatedAt,
	}
}
