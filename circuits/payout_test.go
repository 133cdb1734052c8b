package circuits

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherbet/engine/types"
)

func TestComputePayoutLoss(t *testing.T) {
	c := qt.New(t)

	// Losing positions pay zero regardless of stake and pools.
	payout := ComputePayout(types.PayoutData{
		Vote:                types.VoteNo,
		Outcome:             types.OutcomeYes,
		StakeAmount:         1000000,
		TotalWinningStake:   1,
		TotalLosingStake:    1000000,
		AccuracyBonusPool:   5000,
		ConvictionBonusPool: 5000,
	})
	c.Assert(payout, qt.Equals, uint64(0))
}

func TestComputePayoutWin(t *testing.T) {
	c := qt.New(t)

	// stake 100, winning 500, losing 300: losing share = 100*300/500 = 60,
	// base = 160; accuracy = 50*80/100 = 40; conviction = 200*500/1000 =
	// 100; total 300.
	payout := ComputePayout(types.PayoutData{
		Vote:                 types.VoteYes,
		Outcome:              types.OutcomeYes,
		StakeAmount:          100,
		PredictedProbability: 80,
		ConvictionScore:      500,
		TotalWinningStake:    500,
		TotalLosingStake:     300,
		AccuracyBonusPool:    50,
		ConvictionBonusPool:  200,
	})
	c.Assert(payout, qt.Equals, uint64(300))
}

func TestComputePayoutNoOutcome(t *testing.T) {
	c := qt.New(t)

	// A correct No prediction earns the accuracy bonus on the inverse
	// probability: factor = 100-30 = 70.
	payout := ComputePayout(types.PayoutData{
		Vote:                 types.VoteNo,
		Outcome:              types.OutcomeNo,
		StakeAmount:          100,
		PredictedProbability: 30,
		ConvictionScore:      1000,
		TotalWinningStake:    400,
		TotalLosingStake:     0,
		AccuracyBonusPool:    100,
		ConvictionBonusPool:  100,
	})
	// base 100+0, accuracy 70, conviction 100
	c.Assert(payout, qt.Equals, uint64(270))
}

func TestComputePayoutZeroWinningStake(t *testing.T) {
	c := qt.New(t)

	// No winning stake recorded: the losing share contributes nothing
	// instead of trapping on the division.
	payout := ComputePayout(types.PayoutData{
		Vote:              types.VoteYes,
		Outcome:           types.OutcomeYes,
		StakeAmount:       100,
		TotalWinningStake: 0,
		TotalLosingStake:  500,
	})
	// factor defaults to the probability (0 here), conviction bonus 0
	c.Assert(payout, qt.Equals, uint64(100))
}

func TestComputePayoutWidening(t *testing.T) {
	c := qt.New(t)

	// stake*losing overflows 64 bits; the widened product must still yield
	// the exact quotient.
	payout := ComputePayout(types.PayoutData{
		Vote:              types.VoteYes,
		Outcome:           types.OutcomeYes,
		StakeAmount:       1 << 40,
		TotalWinningStake: 1 << 20,
		TotalLosingStake:  1 << 30,
	})
	c.Assert(payout, qt.Equals, uint64(1<<40+1<<50))
}

func TestMulDiv(t *testing.T) {
	c := qt.New(t)

	c.Assert(mulDiv(100, 300, 500), qt.Equals, uint64(60))
	c.Assert(mulDiv(7, 3, 2), qt.Equals, uint64(10))
	c.Assert(mulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64), qt.Equals, uint64(math.MaxUint64))
	// Saturation instead of a div trap.
	c.Assert(mulDiv(math.MaxUint64, 2, 1), qt.Equals, uint64(math.MaxUint64))
	c.Assert(mulDiv(1, 1, 0), qt.Equals, uint64(math.MaxUint64))
}
