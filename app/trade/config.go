package trade

import (
	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/models"
)

// Config represents the configuration for the trade module
type Config struct {
	MinBetAmount float64 `env:"TRADE_MIN_BET_AMOUNT"`
	MaxBetAmount float64 `env:"TRADE_MAX_BET_AMOUNT"`

	// MaxRetries bounds the compute-and-commit cycles retried after an
	// optimistic concurrency conflict.
	MaxRetries int `env:"TRADE_MAX_RETRIES"`

	Fees cpmm.FeeSchedule
}

func (c *Config) Validate() error {
	if c.MinBetAmount <= 0 || c.MaxBetAmount <= c.MinBetAmount {
		return models.ErrInvalidBetAmount
	}
	if c.MaxRetries < 1 || c.MaxRetries > 20 {
		return models.ErrInvalidRetries
	}
	return c.Fees.Validate()
}

// GetDefaultConfig returns the default trade configuration
func GetDefaultConfig() *Config {
	return &Config{
		MinBetAmount: 1,
		MaxBetAmount: 100_000,
		MaxRetries:   5,
		Fees:         cpmm.GetDefaultFeeSchedule(),
	}
}
