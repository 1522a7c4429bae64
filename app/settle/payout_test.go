package settle

import (
	"testing"
	"time"

	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedContract(resolution string) *models.Contract {
	c := &models.Contract{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Mechanism: models.MechanismCPMM1,
		Pool:      models.PoolMap{"YES": 100, "NO": 100},
		P:         0.5,
		Status:    models.ContractStatusResolved,
		CloseTime: time.Now().Add(-time.Hour),
	}
	c.Resolution = resolution
	if resolution == models.ResolutionCancel {
		c.Status = models.ContractStatusCancelled
	}
	return c
}

func settledBet(outcome models.Outcome, amount, shares float64) *models.Bet {
	return &models.Bet{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Outcome:  outcome,
		Amount:   amount,
		Shares:   shares,
		IsFilled: true,
	}
}

func TestPayout_Binary(t *testing.T) {
	t.Run("Winning shares pay one unit each", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		payout, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		require.NoError(t, err)
		assert.InDelta(t, 40, payout, 1e-9)
	})

	t.Run("Losing shares pay nothing", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		payout, err := Payout(contract, settledBet(models.OutcomeNo, 25, 40))
		require.NoError(t, err)
		assert.Zero(t, payout)
	})

	t.Run("Cancel refunds the amount regardless of shares", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionCancel)
		for _, bet := range []*models.Bet{
			settledBet(models.OutcomeYes, 25, 40),
			settledBet(models.OutcomeNo, 80, 3),
		} {
			payout, err := Payout(contract, bet)
			require.NoError(t, err)
			assert.InDelta(t, bet.Amount, payout, 1e-9)
		}
	})

	t.Run("Market resolution blends by probability", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionMarket)
		prob := 0.7
		contract.ResolutionProbability = &prob

		yes, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		require.NoError(t, err)
		assert.InDelta(t, 28, yes, 1e-9)

		no, err := Payout(contract, settledBet(models.OutcomeNo, 25, 40))
		require.NoError(t, err)
		assert.InDelta(t, 12, no, 1e-9)
	})

	t.Run("Loan deducted before disbursement", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		bet := settledBet(models.OutcomeYes, 25, 40)
		bet.LoanAmount = 15
		payout, err := Payout(contract, bet)
		require.NoError(t, err)
		assert.InDelta(t, 25, payout, 1e-9)
	})

	t.Run("Unresolved market refuses to pay", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		contract.Status = models.ContractStatusOpen
		contract.CloseTime = time.Now().Add(time.Hour)
		_, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		assert.ErrorIs(t, err, models.ErrMarketNotResolved)
	})

	t.Run("Market resolution without a probability fails closed", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionMarket)
		_, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		assert.ErrorIs(t, err, models.ErrInvalidResolution)
	})
}

func TestPayout_PseudoNumeric(t *testing.T) {
	t.Run("Resolution value mapped to probability", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionMarket)
		contract.OutcomeType = models.OutcomeTypePseudoNumeric
		contract.MinValue = 0
		contract.MaxValue = 100
		value := 75.0
		contract.ResolutionValue = &value

		payout, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		require.NoError(t, err)
		assert.InDelta(t, 30, payout, 1e-9)
	})

	t.Run("Log scale mapping", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionMarket)
		contract.OutcomeType = models.OutcomeTypePseudoNumeric
		contract.MinValue = 0
		contract.MaxValue = 999
		contract.IsLogScale = true
		value := 999.0
		contract.ResolutionValue = &value

		payout, err := Payout(contract, settledBet(models.OutcomeYes, 25, 40))
		require.NoError(t, err)
		assert.InDelta(t, 40, payout, 1e-9)
	})
}

func TestPayout_MultiAndDPM(t *testing.T) {
	t.Run("Multi outcome resolves to a key", func(t *testing.T) {
		contract := resolvedContract("B")
		contract.Mechanism = models.MechanismCPMM2
		contract.Pool = models.PoolMap{"A": 100, "B": 100, "C": 100}

		winner, err := Payout(contract, settledBet(models.Outcome("B"), 25, 60))
		require.NoError(t, err)
		assert.InDelta(t, 60, winner, 1e-9)

		loser, err := Payout(contract, settledBet(models.Outcome("A"), 25, 60))
		require.NoError(t, err)
		assert.Zero(t, loser)
	})

	t.Run("DPM winners split the pool with fee on profit", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		contract.Mechanism = models.MechanismDPM2
		contract.Pool = models.PoolMap{"YES": 100, "NO": 100}
		contract.TotalShares = models.PoolMap{"YES": 100, "NO": 100}

		payout, err := Payout(contract, settledBet(models.OutcomeYes, 30, 40))
		require.NoError(t, err)
		// 40/100 of the 200 pool is 80; 5% fee on the 50 profit
		assert.InDelta(t, 30+0.95*50, payout, 1e-9)
	})

	t.Run("Unknown mechanism rejected", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		contract.Mechanism = models.Mechanism("amm-3")
		_, err := Payout(contract, settledBet(models.OutcomeYes, 10, 10))
		assert.ErrorIs(t, err, models.ErrUnsupportedMechanism)
	})
}

func TestResolutionPayouts(t *testing.T) {
	t.Run("Settlement completeness", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionYes)
		bets := []*models.Bet{
			settledBet(models.OutcomeYes, 10, 18),
			settledBet(models.OutcomeYes, 40, 55),
			settledBet(models.OutcomeNo, 30, 66),
			settledBet(models.OutcomeNo, 5, 9),
		}

		payouts, err := ResolutionPayouts(contract, bets)
		require.NoError(t, err)
		require.Len(t, payouts, len(bets))

		var total, winningShares float64
		for _, p := range payouts {
			total += p.Payout
		}
		for _, b := range bets {
			winningShares += b.SharesOf(models.OutcomeYes)
		}
		assert.InDelta(t, winningShares, total, 1e-9,
			"sum of payouts equals sum of winning shares")
	})

	t.Run("One bad bet fails the whole run", func(t *testing.T) {
		contract := resolvedContract(models.ResolutionMarket)
		payouts, err := ResolutionPayouts(contract, []*models.Bet{settledBet(models.OutcomeYes, 10, 18)})
		assert.ErrorIs(t, err, models.ErrInvalidResolution)
		assert.Nil(t, payouts)
	})
}
