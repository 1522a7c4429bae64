package markets

import (
	"time"

	"github.com/foldmarket/fold/models"
)

// Config represents the configuration for the markets module
type Config struct {
	MinAnte             float64       `env:"MARKET_MIN_ANTE"`
	MaxAnte             float64       `env:"MARKET_MAX_ANTE"`
	MinMarketDuration   time.Duration `env:"MIN_MARKET_DURATION"`
	MaxMarketDuration   time.Duration `env:"MAX_MARKET_DURATION"`
	MaxOutcomes         int           `env:"MARKET_MAX_OUTCOMES"`
	ProbabilityCacheTTL time.Duration `env:"PROBABILITY_CACHE_TTL"`
}

// Validate validates the market configuration
func (c *Config) Validate() error {
	if c.MinAnte <= 0 || c.MaxAnte <= c.MinAnte {
		return models.ErrInvalidLiquidity
	}
	if c.MinMarketDuration <= 0 || c.MaxMarketDuration <= c.MinMarketDuration {
		return models.ErrInvalidCloseTime
	}
	if c.MaxOutcomes < 2 {
		return models.ErrInvalidOutcome
	}
	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MinAnte:             10,
		MaxAnte:             100_000,
		MinMarketDuration:   time.Hour,
		MaxMarketDuration:   2 * 365 * 24 * time.Hour,
		MaxOutcomes:         20,
		ProbabilityCacheTTL: 30 * time.Second,
	}
}
