package dpm

import (
	"math"
	"testing"

	"github.com/foldmarket/fold/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenShares() models.PoolMap {
	return models.PoolMap{"YES": 100, "NO": 100}
}

func TestProbability(t *testing.T) {
	t.Run("Even shares split evenly", func(t *testing.T) {
		prob, err := Probability(evenShares(), "YES")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, prob, 1e-12)
	})

	t.Run("Quadratic weighting", func(t *testing.T) {
		// 200 vs 100 shares prices at 4:1, not 2:1.
		prob, err := Probability(models.PoolMap{"YES": 200, "NO": 100}, "YES")
		require.NoError(t, err)
		assert.InDelta(t, 0.8, prob, 1e-12)
	})

	t.Run("Unknown outcome rejected", func(t *testing.T) {
		_, err := Probability(evenShares(), "MAYBE")
		assert.ErrorIs(t, err, models.ErrInvalidOutcome)
	})

	t.Run("Empty totals rejected", func(t *testing.T) {
		_, err := Probability(models.PoolMap{"YES": 0, "NO": 0}, "YES")
		assert.ErrorIs(t, err, models.ErrInvalidPool)
	})
}

func TestShares(t *testing.T) {
	t.Run("Known value on even shares", func(t *testing.T) {
		shares, err := Shares(evenShares(), 50, "YES")
		require.NoError(t, err)
		expected := math.Sqrt(50*50+100*100+2*50*math.Sqrt(20000)) - 100
		assert.InDelta(t, expected, shares, 1e-9)
		assert.Greater(t, shares, 50.0)
	})

	t.Run("Buying raises the outcome's probability", func(t *testing.T) {
		totals := evenShares()
		shares, err := Shares(totals, 50, "YES")
		require.NoError(t, err)

		totals["YES"] += shares
		prob, err := Probability(totals, "YES")
		require.NoError(t, err)
		assert.Greater(t, prob, 0.5)
	})

	t.Run("Invalid amounts rejected", func(t *testing.T) {
		for _, bet := range []float64{0, -10, math.NaN(), math.Inf(1)} {
			_, err := Shares(evenShares(), bet, "YES")
			assert.ErrorIs(t, err, models.ErrInvalidBetAmount, "bet=%v", bet)
		}
	})
}

func TestShareValue(t *testing.T) {
	t.Run("Known value", func(t *testing.T) {
		pool := models.PoolMap{"YES": 100, "NO": 100}
		value, err := ShareValue(pool, evenShares(), 50, "YES")
		require.NoError(t, err)
		// prev=20000, post=12500: 200 * (1 - sqrt(0.625))
		assert.InDelta(t, 200*(1-math.Sqrt(0.625)), value, 1e-9)
	})

	t.Run("Selling everything drains the pool", func(t *testing.T) {
		pool := models.PoolMap{"YES": 130, "NO": 70}
		totals := models.PoolMap{"YES": 150, "NO": 0}
		value, err := ShareValue(pool, totals, 150, "YES")
		require.NoError(t, err)
		assert.InDelta(t, pool.Total(), value, 1e-9)
	})

	t.Run("Cannot sell more than outstanding", func(t *testing.T) {
		pool := models.PoolMap{"YES": 100, "NO": 100}
		_, err := ShareValue(pool, evenShares(), 101, "YES")
		assert.ErrorIs(t, err, models.ErrInvalidBetAmount)
	})

	t.Run("Value independent of the original bet amount", func(t *testing.T) {
		// Two holders of the same share count get the same gross value.
		pool := models.PoolMap{"YES": 300, "NO": 150}
		totals := models.PoolMap{"YES": 220, "NO": 180}
		a, err := ShareValue(pool, totals, 40, "YES")
		require.NoError(t, err)
		b, err := ShareValue(pool, totals, 40, "YES")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestSaleProceeds(t *testing.T) {
	t.Run("Fee only on profit", func(t *testing.T) {
		proceeds := SaleProceeds(30, 50, 0.05)
		assert.InDelta(t, 30+0.95*20, proceeds, 1e-12)
	})

	t.Run("Losing sale pays no fee", func(t *testing.T) {
		proceeds := SaleProceeds(30, 20, 0.05)
		assert.InDelta(t, 20, proceeds, 1e-12)
	})

	t.Run("Breakeven pays no fee", func(t *testing.T) {
		proceeds := SaleProceeds(30, 30, 0.05)
		assert.InDelta(t, 30, proceeds, 1e-12)
	})
}

func TestWinPayout(t *testing.T) {
	t.Run("Pro-rata share of the pool", func(t *testing.T) {
		pool := models.PoolMap{"YES": 100, "NO": 100}
		payout, err := WinPayout(pool, evenShares(), 30, 40, "YES", DefaultFeeRate)
		require.NoError(t, err)
		// winnings = 40/100 * 200 = 80, fee on the 50 profit
		assert.InDelta(t, 30+0.95*50, payout, 1e-9)
	})

	t.Run("All winning shares drain the pool before fees", func(t *testing.T) {
		pool := models.PoolMap{"YES": 60, "NO": 140}
		totals := models.PoolMap{"YES": 90, "NO": 210}
		payout, err := WinPayout(pool, totals, 200, 90, "YES", 0)
		require.NoError(t, err)
		assert.InDelta(t, pool.Total(), payout, 1e-9)
	})

	t.Run("No winning shares fails closed", func(t *testing.T) {
		pool := models.PoolMap{"YES": 100, "NO": 100}
		_, err := WinPayout(pool, models.PoolMap{"YES": 0, "NO": 100}, 10, 5, "YES", 0)
		assert.ErrorIs(t, err, models.ErrInvalidPool)
	})
}
