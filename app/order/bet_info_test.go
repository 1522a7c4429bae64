package order

import (
	"testing"
	"time"

	"github.com/foldmarket/fold/app/cpmm"
	"github.com/foldmarket/fold/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openContract() *models.Contract {
	return &models.Contract{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Mechanism: models.MechanismCPMM1,
		Pool:      models.PoolMap{"YES": 100, "NO": 100},
		P:         0.5,
		Status:    models.ContractStatusOpen,
		CloseTime: time.Now().Add(24 * time.Hour),
	}
}

func marketOrder(userID uuid.UUID, outcome models.Outcome, amount float64) Request {
	return Request{UserID: userID, Outcome: outcome, Amount: amount}
}

func limitRequest(userID uuid.UUID, outcome models.Outcome, amount, limitProb float64) Request {
	return Request{UserID: userID, Outcome: outcome, Amount: amount, LimitProb: &limitProb}
}

func TestComputeBetInfo_PoolOnly(t *testing.T) {
	now := time.Now()

	t.Run("Market order fills fully against the pool", func(t *testing.T) {
		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 50), nil, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		require.Len(t, info.Bet.Fills, 1)
		assert.Nil(t, info.Bet.Fills[0].MatchedBetID)
		assert.True(t, info.Bet.IsFilled)
		assert.InDelta(t, 50, info.Bet.Amount, 1e-9)
		assert.InDelta(t, 0.5, info.Bet.ProbBefore, 1e-9)
		assert.InDelta(t, 0.69230769, info.Bet.ProbAfter, 1e-8)
		assert.Empty(t, info.MakerFills)
		assert.Empty(t, info.OrdersToCancel)
	})

	t.Run("Limit order clipped at its cap stands for the remainder", func(t *testing.T) {
		contract := openContract()
		info, err := ComputeBetInfo(contract, limitRequest(uuid.New(), models.OutcomeYes, 100, 0.55), nil, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		state, err := cpmm.NewState(contract.Pool, contract.P)
		require.NoError(t, err)
		expected, err := cpmm.AmountToProb(state, 0.55, models.OutcomeYes)
		require.NoError(t, err)

		assert.False(t, info.Bet.IsFilled)
		assert.InDelta(t, expected, info.Bet.Amount, 1e-9)
		assert.InDelta(t, 100-expected, info.Bet.RemainingAmount(), 1e-9)
		assert.InDelta(t, 0.55, info.Bet.ProbAfter, 1e-9)
	})

	t.Run("Limit order behind the market stands untouched", func(t *testing.T) {
		contract := openContract()
		info, err := ComputeBetInfo(contract, limitRequest(uuid.New(), models.OutcomeYes, 40, 0.45), nil, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		assert.Empty(t, info.Bet.Fills)
		assert.False(t, info.Bet.IsFilled)
		assert.Zero(t, info.Bet.Amount)
		assert.InDelta(t, contract.Pool["YES"], info.NewPool["YES"], 1e-12)
		assert.InDelta(t, contract.Pool["NO"], info.NewPool["NO"], 1e-12)
	})

	t.Run("Fees collected with a real schedule", func(t *testing.T) {
		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 50), nil, nil, cpmm.GetDefaultFeeSchedule(), now)
		require.NoError(t, err)
		assert.Greater(t, info.TotalFees.CreatorFee, 0.0)
		assert.InDelta(t, 50, info.Bet.Amount, 1e-9, "fees come out of the amount, not on top")
	})
}

func TestComputeBetInfo_Matching(t *testing.T) {
	now := time.Now()

	t.Run("Crossing limit order matched before the pool", func(t *testing.T) {
		maker := standingOrder(models.OutcomeNo, 0.40, 20, now.Add(-time.Hour))
		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 20), []*models.Bet{maker}, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		// Taker buys 33.33 shares at 0.40 for 13.33, exhausting the maker's
		// 20 at 0.60, then takes the last 6.67 from the pool.
		require.Len(t, info.Bet.Fills, 2)
		require.NotNil(t, info.Bet.Fills[0].MatchedBetID)
		assert.Equal(t, maker.ID, *info.Bet.Fills[0].MatchedBetID)
		assert.InDelta(t, 40.0/3, info.Bet.Fills[0].Amount, 1e-9)
		assert.InDelta(t, 100.0/3, info.Bet.Fills[0].Shares, 1e-9)
		assert.Nil(t, info.Bet.Fills[1].MatchedBetID)
		assert.InDelta(t, 20, info.Bet.Amount, 1e-9)
		assert.True(t, info.Bet.IsFilled)

		require.Len(t, info.MakerFills, 1)
		mf := info.MakerFills[0]
		assert.Equal(t, maker.ID, mf.Order.ID)
		require.NotNil(t, mf.Fill.MatchedBetID)
		assert.Equal(t, info.Bet.ID, *mf.Fill.MatchedBetID)
		assert.InDelta(t, 20, mf.Fill.Amount, 1e-9)
		assert.InDelta(t, 100.0/3, mf.Fill.Shares, 1e-9)

		// Applying the fill consumes the maker entirely.
		require.NoError(t, maker.ApplyFill(mf.Fill))
		assert.True(t, maker.IsFilled)
		assert.Zero(t, maker.RemainingAmount())
	})

	t.Run("Pool tapped up to the maker's price first", func(t *testing.T) {
		// The maker's price is worse than the pool, so the pool fills until
		// the price reaches it, then the maker is matched.
		maker := standingOrder(models.OutcomeNo, 0.60, 10, now.Add(-time.Hour))
		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 50), []*models.Bet{maker}, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		require.Len(t, info.Bet.Fills, 3)
		assert.Nil(t, info.Bet.Fills[0].MatchedBetID)
		require.NotNil(t, info.Bet.Fills[1].MatchedBetID)
		assert.Equal(t, maker.ID, *info.Bet.Fills[1].MatchedBetID)
		assert.Nil(t, info.Bet.Fills[2].MatchedBetID)

		// First leg stops exactly at the maker's price.
		state := cpmm.State{PoolYes: 100, PoolNo: 100, P: 0.5}
		clip, err := cpmm.AmountToProb(state, 0.60, models.OutcomeYes)
		require.NoError(t, err)
		assert.InDelta(t, clip, info.Bet.Fills[0].Amount, 1e-9)

		// Maker leg at 0.60: the 10 at 0.40 per share buys 25 shares.
		assert.InDelta(t, 25, info.Bet.Fills[1].Shares, 1e-9)
		assert.InDelta(t, 15, info.Bet.Fills[1].Amount, 1e-9)

		assert.InDelta(t, 50, info.Bet.Amount, 1e-9)
	})

	t.Run("Price priority then time priority", func(t *testing.T) {
		base := now.Add(-time.Hour)
		early45 := standingOrder(models.OutcomeNo, 0.45, 20, base)
		cheap40 := standingOrder(models.OutcomeNo, 0.40, 20, base.Add(time.Minute))
		late45 := standingOrder(models.OutcomeNo, 0.45, 20, base.Add(2*time.Minute))

		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 31),
			[]*models.Bet{early45, late45, cheap40}, nil, cpmm.NoFees, now)
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(info.MakerFills), 3)
		assert.Equal(t, cheap40.ID, info.MakerFills[0].Order.ID)
		assert.Equal(t, early45.ID, info.MakerFills[1].Order.ID)
		assert.Equal(t, late45.ID, info.MakerFills[2].Order.ID)
	})

	t.Run("Same side orders never match", func(t *testing.T) {
		sameSide := standingOrder(models.OutcomeYes, 0.60, 20, now.Add(-time.Hour))
		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 10), []*models.Bet{sameSide}, nil, cpmm.NoFees, now)
		require.NoError(t, err)
		assert.Empty(t, info.MakerFills)
	})
}

func TestComputeBetInfo_Balances(t *testing.T) {
	now := time.Now()

	t.Run("Underfunded maker filled up to balance then cancelled", func(t *testing.T) {
		maker := standingOrder(models.OutcomeNo, 0.40, 20, now.Add(-time.Hour))
		balances := map[uuid.UUID]float64{maker.UserID: 6}

		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 20), []*models.Bet{maker}, balances, cpmm.NoFees, now)
		require.NoError(t, err)

		// 6 of balance at 0.60 per share funds 10 shares; the taker pays 4.
		require.Len(t, info.MakerFills, 1)
		assert.InDelta(t, 6, info.MakerFills[0].Fill.Amount, 1e-9)
		assert.InDelta(t, 10, info.MakerFills[0].Fill.Shares, 1e-9)

		require.Len(t, info.OrdersToCancel, 1)
		assert.Equal(t, maker.ID, info.OrdersToCancel[0].ID)

		// The rest of the taker's money goes to the pool.
		require.Len(t, info.Bet.Fills, 2)
		assert.InDelta(t, 4, info.Bet.Fills[0].Amount, 1e-9)
		assert.Nil(t, info.Bet.Fills[1].MatchedBetID)
		assert.InDelta(t, 16, info.Bet.Fills[1].Amount, 1e-9)
	})

	t.Run("Broke maker cancelled without a fill", func(t *testing.T) {
		maker := standingOrder(models.OutcomeNo, 0.40, 20, now.Add(-time.Hour))
		balances := map[uuid.UUID]float64{maker.UserID: 0}

		info, err := ComputeBetInfo(openContract(), marketOrder(uuid.New(), models.OutcomeYes, 20), []*models.Bet{maker}, balances, cpmm.NoFees, now)
		require.NoError(t, err)

		assert.Empty(t, info.MakerFills)
		require.Len(t, info.OrdersToCancel, 1)
		assert.Equal(t, maker.ID, info.OrdersToCancel[0].ID)
		require.Len(t, info.Bet.Fills, 1)
		assert.InDelta(t, 20, info.Bet.Fills[0].Amount, 1e-9)
	})
}

func TestComputeBetInfo_Validation(t *testing.T) {
	now := time.Now()
	user := uuid.New()

	t.Run("Closed market", func(t *testing.T) {
		contract := openContract()
		contract.Status = models.ContractStatusClosed
		_, err := ComputeBetInfo(contract, marketOrder(user, models.OutcomeYes, 10), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrMarketClosed)
	})

	t.Run("Past close time", func(t *testing.T) {
		contract := openContract()
		contract.CloseTime = time.Now().Add(-time.Hour)
		_, err := ComputeBetInfo(contract, marketOrder(user, models.OutcomeYes, 10), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrMarketClosed)
	})

	t.Run("Resolved market", func(t *testing.T) {
		contract := openContract()
		contract.Status = models.ContractStatusResolved
		_, err := ComputeBetInfo(contract, marketOrder(user, models.OutcomeYes, 10), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrMarketClosed)
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		_, err := ComputeBetInfo(openContract(), marketOrder(user, models.OutcomeYes, 0), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrInvalidOrder)

		_, err = ComputeBetInfo(openContract(), marketOrder(user, models.OutcomeYes, -5), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrInvalidOrder)
	})

	t.Run("Limit probability out of range", func(t *testing.T) {
		for _, p := range []float64{0, 1, -0.2, 1.5} {
			_, err := ComputeBetInfo(openContract(), limitRequest(user, models.OutcomeYes, 10, p), nil, nil, cpmm.NoFees, now)
			assert.ErrorIs(t, err, models.ErrInvalidOrder, "limitProb=%v", p)
		}
	})

	t.Run("Wrong mechanism", func(t *testing.T) {
		contract := openContract()
		contract.Mechanism = models.MechanismDPM2
		_, err := ComputeBetInfo(contract, marketOrder(user, models.OutcomeYes, 10), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrUnsupportedMechanism)
	})

	t.Run("Unknown outcome", func(t *testing.T) {
		_, err := ComputeBetInfo(openContract(), marketOrder(user, models.Outcome("MAYBE"), 10), nil, nil, cpmm.NoFees, now)
		assert.ErrorIs(t, err, models.ErrInvalidOutcome)
	})
}
