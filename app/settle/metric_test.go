package settle

import (
	"testing"
	"time"

	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBinaryContract() *models.Contract {
	return &models.Contract{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Mechanism: models.MechanismCPMM1,
		Pool:      models.PoolMap{"YES": 100, "NO": 100},
		P:         0.5,
		Status:    models.ContractStatusOpen,
		CloseTime: time.Now().Add(time.Hour),
	}
}

func userBet(userID uuid.UUID, outcome models.Outcome, amount, shares float64) *models.Bet {
	return &models.Bet{
		ID:       uuid.New(),
		UserID:   userID,
		Outcome:  outcome,
		Amount:   amount,
		Shares:   shares,
		IsFilled: true,
	}
}

func TestComputeContractMetric(t *testing.T) {
	user := uuid.New()

	t.Run("Unresolved position valued at current prices", func(t *testing.T) {
		contract := openBinaryContract()
		bets := []*models.Bet{
			userBet(user, models.OutcomeYes, 30, 60),
			userBet(user, models.OutcomeNo, 10, 20),
		}

		metric, err := ComputeContractMetric(contract, user, bets)
		require.NoError(t, err)

		assert.InDelta(t, 40, metric.Invested, 1e-9)
		assert.InDelta(t, 60*0.5+20*0.5, metric.Payout, 1e-9)
		assert.InDelta(t, 0, metric.Profit, 1e-9)
		assert.True(t, metric.HasShares)
		assert.InDelta(t, 60, metric.SharesOf(models.OutcomeYes), 1e-9)
		assert.InDelta(t, 20, metric.SharesOf(models.OutcomeNo), 1e-9)
	})

	t.Run("Resolved position uses settlement value", func(t *testing.T) {
		contract := openBinaryContract()
		contract.Status = models.ContractStatusResolved
		contract.Resolution = models.ResolutionYes
		bets := []*models.Bet{
			userBet(user, models.OutcomeYes, 30, 60),
			userBet(user, models.OutcomeNo, 10, 20),
		}

		metric, err := ComputeContractMetric(contract, user, bets)
		require.NoError(t, err)

		assert.InDelta(t, 60, metric.Payout, 1e-9)
		assert.InDelta(t, 20, metric.Profit, 1e-9)
	})

	t.Run("Loans tracked separately from profit", func(t *testing.T) {
		contract := openBinaryContract()
		loaned := userBet(user, models.OutcomeYes, 30, 60)
		loaned.LoanAmount = 12

		metric, err := ComputeContractMetric(contract, user, []*models.Bet{loaned})
		require.NoError(t, err)
		assert.InDelta(t, 12, metric.Loan, 1e-9)
	})

	t.Run("Other users' bets ignored", func(t *testing.T) {
		contract := openBinaryContract()
		bets := []*models.Bet{
			userBet(user, models.OutcomeYes, 30, 60),
			userBet(uuid.New(), models.OutcomeYes, 500, 900),
		}

		metric, err := ComputeContractMetric(contract, user, bets)
		require.NoError(t, err)
		assert.InDelta(t, 30, metric.Invested, 1e-9)
		assert.InDelta(t, 60, metric.SharesOf(models.OutcomeYes), 1e-9)
	})

	t.Run("Fully redeemed position holds nothing", func(t *testing.T) {
		contract := openBinaryContract()
		bets := []*models.Bet{
			userBet(user, models.OutcomeYes, 15, 30),
			userBet(user, models.OutcomeNo, 15, 30),
			userBet(user, models.OutcomeYes, -15, -30),
			userBet(user, models.OutcomeNo, -15, -30),
		}
		bets[2].IsRedemption = true
		bets[3].IsRedemption = true

		metric, err := ComputeContractMetric(contract, user, bets)
		require.NoError(t, err)
		assert.False(t, metric.HasShares)
		assert.InDelta(t, 0, metric.Payout, 1e-9)
		assert.InDelta(t, 0, metric.Profit, 1e-9)
	})

	t.Run("No bets yields an empty metric", func(t *testing.T) {
		contract := openBinaryContract()
		metric, err := ComputeContractMetric(contract, user, nil)
		require.NoError(t, err)
		assert.Zero(t, metric.Invested)
		assert.False(t, metric.HasShares)
	})
}
