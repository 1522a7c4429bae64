package models

import "errors"

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidBetAmount   = errors.New("invalid bet amount")
	ErrInvalidProbability = errors.New("limit probability must be between 0 and 1 exclusive")
	ErrInvalidOutcome     = errors.New("invalid outcome")

	ErrMarketClosed        = errors.New("market is closed for trading")
	ErrMarketNotResolved   = errors.New("market is not resolved")
	ErrMarketAlreadyClosed = errors.New("market is already closed")
	ErrInvalidResolution   = errors.New("invalid resolution")
	ErrInvalidCloseTime    = errors.New("invalid close time")
	ErrInvalidQuestion     = errors.New("invalid market question")
	ErrInvalidValueRange   = errors.New("invalid numeric value range")

	ErrNonFiniteResult        = errors.New("calculation produced a non-finite result")
	ErrConcurrentModification = errors.New("contract was modified concurrently")
	ErrUnsupportedMechanism   = errors.New("unsupported market mechanism")

	ErrOrderAlreadyTerminal = errors.New("order is already filled or cancelled")
	ErrOrderOverfilled      = errors.New("order fills exceed order amount")

	ErrForbidden           = errors.New("forbidden")
	ErrInvalidUserID       = errors.New("invalid user ID")
	ErrInvalidContractID   = errors.New("invalid contract ID")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrNegativeBalance     = errors.New("balance cannot be negative")

	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidTransactionAmount = errors.New("invalid transaction amount")

	ErrInvalidPool      = errors.New("pool reserves must be positive")
	ErrInvalidPoolP     = errors.New("pool weighting must be between 0 and 1 exclusive")
	ErrInvalidLiquidity = errors.New("invalid liquidity amount")
	ErrInvalidFeeRate   = errors.New("invalid fee rate")
	ErrInvalidRetries   = errors.New("invalid retry count")

	ErrDatabaseCredentialNotConfigured = errors.New("database credentials not configured")
	ErrRecordNotFound                  = errors.New("record not found")
)
