package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outcome is an outcome token of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Opposite returns the other side of a binary outcome.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// IsBinary reports whether the outcome is one of YES/NO.
func (o Outcome) IsBinary() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Mechanism identifies the pricing mechanism of a contract. The mechanism is
// chosen at creation and never changes; dpm-2 exists only for historical
// contracts.
type Mechanism string

const (
	MechanismCPMM1 Mechanism = "cpmm-1"
	MechanismCPMM2 Mechanism = "cpmm-2"
	MechanismDPM2  Mechanism = "dpm-2"
)

// OutcomeType identifies how a contract's outcomes map to the world.
type OutcomeType string

const (
	OutcomeTypeBinary         OutcomeType = "binary"
	OutcomeTypePseudoNumeric  OutcomeType = "pseudo-numeric"
	OutcomeTypeMultipleChoice OutcomeType = "multiple-choice"
)

// Special resolution values. A multiple-choice contract resolves to the
// outcome key instead.
const (
	ResolutionYes    = "YES"
	ResolutionNo     = "NO"
	ResolutionMarket = "MKT"
	ResolutionCancel = "CANCEL"
)

// PoolMap holds reserve quantities keyed by outcome token. Stored as JSONB.
type PoolMap map[string]float64

func (p PoolMap) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PoolMap) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return nil
}

// Total returns the sum of all reserves in the pool.
func (p PoolMap) Total() float64 {
	var total float64
	for _, amount := range p {
		total += amount
	}
	return total
}

// Clone returns a copy that can be mutated without affecting the original.
func (p PoolMap) Clone() PoolMap {
	out := make(PoolMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Fees is the per-trade fee breakdown. Stored as JSONB.
type Fees struct {
	CreatorFee   float64 `json:"creator_fee"`
	PlatformFee  float64 `json:"platform_fee"`
	LiquidityFee float64 `json:"liquidity_fee"`
}

func (f Fees) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *Fees) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	}
	return nil
}

// Total returns the sum of all fee components.
func (f Fees) Total() float64 {
	return f.CreatorFee + f.PlatformFee + f.LiquidityFee
}

// Add returns the component-wise sum of two fee breakdowns.
func (f Fees) Add(other Fees) Fees {
	return Fees{
		CreatorFee:   f.CreatorFee + other.CreatorFee,
		PlatformFee:  f.PlatformFee + other.PlatformFee,
		LiquidityFee: f.LiquidityFee + other.LiquidityFee,
	}
}

// Fill records one partial or complete match of an order, either against the
// pool (MatchedBetID nil) or against a standing limit order.
type Fill struct {
	Amount       float64    `json:"amount"`
	Shares       float64    `json:"shares"`
	MatchedBetID *uuid.UUID `json:"matched_bet_id"`
	Timestamp    time.Time  `json:"timestamp"`
}

// FillList is an append-only list of fills. Stored as JSONB.
type FillList []Fill

func (fl FillList) Value() (driver.Value, error) {
	return json.Marshal(fl)
}

func (fl *FillList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, fl)
	case string:
		return json.Unmarshal([]byte(v), fl)
	}
	return nil
}

// TotalAmount returns the money filled so far.
func (fl FillList) TotalAmount() float64 {
	var total float64
	for i := range fl {
		total += fl[i].Amount
	}
	return total
}

// TotalShares returns the shares filled so far.
func (fl FillList) TotalShares() float64 {
	var total float64
	for i := range fl {
		total += fl[i].Shares
	}
	return total
}
