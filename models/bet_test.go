package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newOpenOrder(orderAmount, limitProb float64) *Bet {
	return &Bet{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ContractID:  uuid.New(),
		Outcome:     OutcomeNo,
		LimitProb:   &limitProb,
		OrderAmount: &orderAmount,
		Fills:       FillList{},
	}
}

func TestBet_RemainingAmount(t *testing.T) {
	t.Run("Market order has no remaining amount", func(t *testing.T) {
		bet := &Bet{Amount: 100, IsFilled: true}
		assert.Zero(t, bet.RemainingAmount())
	})

	t.Run("Open order remaining decreases with fills", func(t *testing.T) {
		order := newOpenOrder(50, 0.4)
		assert.InDelta(t, 50, order.RemainingAmount(), 1e-12)

		err := order.ApplyFill(Fill{Amount: 20, Shares: 50, Timestamp: time.Now()})
		assert.NoError(t, err)
		assert.InDelta(t, 30, order.RemainingAmount(), 1e-12)
		assert.False(t, order.IsFilled)
	})

	t.Run("Remaining never goes negative", func(t *testing.T) {
		order := newOpenOrder(10, 0.4)
		err := order.ApplyFill(Fill{Amount: 10, Shares: 25, Timestamp: time.Now()})
		assert.NoError(t, err)
		assert.Zero(t, order.RemainingAmount())
	})
}

func TestBet_ApplyFill(t *testing.T) {
	t.Run("Full fill flips is_filled", func(t *testing.T) {
		order := newOpenOrder(20, 0.4)
		matched := uuid.New()
		err := order.ApplyFill(Fill{Amount: 20, Shares: 50, MatchedBetID: &matched, Timestamp: time.Now()})
		assert.NoError(t, err)
		assert.True(t, order.IsFilled)
		assert.InDelta(t, 20, order.Amount, 1e-12)
		assert.InDelta(t, 50, order.Shares, 1e-12)
		assert.Len(t, order.Fills, 1)
	})

	t.Run("Multiple partial fills accumulate", func(t *testing.T) {
		order := newOpenOrder(30, 0.5)
		for i := 0; i < 3; i++ {
			err := order.ApplyFill(Fill{Amount: 10, Shares: 20, Timestamp: time.Now()})
			assert.NoError(t, err)
		}
		assert.True(t, order.IsFilled)
		assert.InDelta(t, 30, order.Fills.TotalAmount(), 1e-9)
		assert.InDelta(t, 60, order.Fills.TotalShares(), 1e-9)
	})

	t.Run("Overfill rejected", func(t *testing.T) {
		order := newOpenOrder(10, 0.5)
		err := order.ApplyFill(Fill{Amount: 15, Shares: 30, Timestamp: time.Now()})
		assert.ErrorIs(t, err, ErrOrderOverfilled)
		assert.Empty(t, order.Fills)
	})

	t.Run("Terminal states reject fills", func(t *testing.T) {
		filled := newOpenOrder(10, 0.5)
		assert.NoError(t, filled.ApplyFill(Fill{Amount: 10, Shares: 20, Timestamp: time.Now()}))
		err := filled.ApplyFill(Fill{Amount: 1, Shares: 2, Timestamp: time.Now()})
		assert.ErrorIs(t, err, ErrOrderAlreadyTerminal)

		cancelled := newOpenOrder(10, 0.5)
		assert.NoError(t, cancelled.Cancel())
		err = cancelled.ApplyFill(Fill{Amount: 1, Shares: 2, Timestamp: time.Now()})
		assert.ErrorIs(t, err, ErrOrderAlreadyTerminal)
	})
}

func TestBet_Cancel(t *testing.T) {
	t.Run("Open order can be cancelled", func(t *testing.T) {
		order := newOpenOrder(10, 0.5)
		assert.NoError(t, order.Cancel())
		assert.True(t, order.IsCancelled)
		assert.False(t, order.IsOpenOrder())
	})

	t.Run("Cancel is terminal", func(t *testing.T) {
		order := newOpenOrder(10, 0.5)
		assert.NoError(t, order.Cancel())
		assert.ErrorIs(t, order.Cancel(), ErrOrderAlreadyTerminal)
	})

	t.Run("Filled order cannot be cancelled", func(t *testing.T) {
		order := newOpenOrder(10, 0.5)
		assert.NoError(t, order.ApplyFill(Fill{Amount: 10, Shares: 20, Timestamp: time.Now()}))
		assert.ErrorIs(t, order.Cancel(), ErrOrderAlreadyTerminal)
	})
}

func TestBet_Validate(t *testing.T) {
	valid := func() *Bet {
		return &Bet{
			UserID:     uuid.New(),
			ContractID: uuid.New(),
			Outcome:    OutcomeYes,
			Amount:     10,
		}
	}

	t.Run("Valid bet passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Missing user", func(t *testing.T) {
		bet := valid()
		bet.UserID = uuid.Nil
		assert.ErrorIs(t, bet.Validate(), ErrInvalidUserID)
	})

	t.Run("Limit prob out of range", func(t *testing.T) {
		for _, p := range []float64{0, 1, -0.2, 1.5} {
			bet := valid()
			prob := p
			bet.LimitProb = &prob
			assert.ErrorIs(t, bet.Validate(), ErrInvalidProbability, "limitProb %v", p)
		}
	})
}

func TestOutcome_Opposite(t *testing.T) {
	assert.Equal(t, OutcomeNo, OutcomeYes.Opposite())
	assert.Equal(t, OutcomeYes, OutcomeNo.Opposite())
}
