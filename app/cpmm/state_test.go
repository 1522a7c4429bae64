package cpmm

import (
	"testing"

	"github.com/foldmarket/fold/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	t.Run("Valid pool", func(t *testing.T) {
		state, err := NewState(models.PoolMap{"YES": 100, "NO": 100}, 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 100, state.PoolYes, 1e-12)
		assert.InDelta(t, 100, state.PoolNo, 1e-12)
	})

	t.Run("Missing reserve rejected", func(t *testing.T) {
		_, err := NewState(models.PoolMap{"YES": 100}, 0.5)
		assert.ErrorIs(t, err, models.ErrInvalidPool)
	})

	t.Run("Invalid p rejected", func(t *testing.T) {
		for _, p := range []float64{0, 1, -0.5, 1.5} {
			_, err := NewState(models.PoolMap{"YES": 100, "NO": 100}, p)
			assert.ErrorIs(t, err, models.ErrInvalidPoolP, "p=%v", p)
		}
	})
}

func TestState_Probability(t *testing.T) {
	t.Run("Balanced pool at p=0.5 is 50%", func(t *testing.T) {
		state := State{PoolYes: 100, PoolNo: 100, P: 0.5}
		prob, err := state.Probability()
		require.NoError(t, err)
		assert.InDelta(t, 0.5, prob, 1e-12)
	})

	t.Run("Scarcer YES reserve prices higher", func(t *testing.T) {
		state := State{PoolYes: 50, PoolNo: 150, P: 0.5}
		prob, err := state.Probability()
		require.NoError(t, err)
		assert.Greater(t, prob, 0.5)
	})

	t.Run("Weighting parameter biases the price", func(t *testing.T) {
		state := State{PoolYes: 100, PoolNo: 100, P: 0.7}
		prob, err := state.Probability()
		require.NoError(t, err)
		assert.InDelta(t, 0.7, prob, 1e-12)
	})

	t.Run("Always strictly inside (0,1)", func(t *testing.T) {
		cases := []State{
			{PoolYes: 1e-6, PoolNo: 1e9, P: 0.5},
			{PoolYes: 1e9, PoolNo: 1e-6, P: 0.5},
			{PoolYes: 1, PoolNo: 1, P: 0.999},
			{PoolYes: 1, PoolNo: 1, P: 0.001},
		}
		for _, state := range cases {
			prob, err := state.Probability()
			require.NoError(t, err)
			assert.Greater(t, prob, 0.0)
			assert.Less(t, prob, 1.0)
		}
	})
}

func TestState_AddLiquidity(t *testing.T) {
	t.Run("Probability unchanged", func(t *testing.T) {
		state := State{PoolYes: 80, PoolNo: 120, P: 0.4}
		before, err := state.Probability()
		require.NoError(t, err)

		next, err := state.AddLiquidity(37)
		require.NoError(t, err)
		after, err := next.Probability()
		require.NoError(t, err)

		assert.InDelta(t, before, after, 1e-12)
		assert.InDelta(t, state.PoolYes+37, next.PoolYes, 1e-12)
		assert.InDelta(t, state.PoolNo+37, next.PoolNo, 1e-12)
	})

	t.Run("Zero amount is a no-op", func(t *testing.T) {
		state := State{PoolYes: 100, PoolNo: 100, P: 0.5}
		next, err := state.AddLiquidity(0)
		require.NoError(t, err)
		assert.Equal(t, state, next)
	})

	t.Run("Negative amount rejected", func(t *testing.T) {
		state := State{PoolYes: 100, PoolNo: 100, P: 0.5}
		_, err := state.AddLiquidity(-5)
		assert.ErrorIs(t, err, models.ErrInvalidLiquidity)
	})
}
