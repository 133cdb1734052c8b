package circuits

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherbet/engine/types"
)

func TestComputeOddsDegenerate(t *testing.T) {
	c := qt.New(t)

	odds := ComputeOdds(&types.MarketTally{})
	c.Assert(odds.YesProbability, qt.Equals, uint8(50))
	c.Assert(odds.NoProbability, qt.Equals, uint8(50))
	c.Assert(odds.HighConfidence, qt.IsFalse)
	c.Assert(odds.AvgConviction, qt.Equals, uint8(0))

	// Skip-only markets have participants but still no stake signal.
	odds = ComputeOdds(&types.MarketTally{SkipVotes: 4, Participants: 4})
	c.Assert(odds.YesProbability, qt.Equals, uint8(50))
	c.Assert(odds.NoProbability, qt.Equals, uint8(50))
	c.Assert(odds.Participants, qt.Equals, uint32(4))
}

func TestComputeOddsMidLiquidity(t *testing.T) {
	c := qt.New(t)

	// total = 10000 sits in the mid tier (not strictly above it), so the
	// factor is 90: yes = 80*90/100 = 72, no = 20*90/100 = 18.
	tally := &types.MarketTally{
		YesStake:              8000,
		NoStake:               2000,
		Participants:          25,
		ConvictionWeightedYes: 600000,
		ConvictionWeightedNo:  400000,
	}
	odds := ComputeOdds(tally)
	c.Assert(odds.YesProbability, qt.Equals, uint8(72))
	c.Assert(odds.NoProbability, qt.Equals, uint8(18))
	c.Assert(odds.Participants, qt.Equals, uint32(25))
	c.Assert(odds.HighConfidence, qt.IsTrue)
	// (600000+400000)/10000 = 100
	c.Assert(odds.AvgConviction, qt.Equals, uint8(100))
}

func TestComputeOddsLiquidityTiers(t *testing.T) {
	c := qt.New(t)

	// Low liquidity: total = 1000 is not above the mid tier, factor 85 and
	// no high confidence.
	odds := ComputeOdds(&types.MarketTally{YesStake: 600, NoStake: 400})
	c.Assert(odds.YesProbability, qt.Equals, uint8(51)) // 60*85/100
	c.Assert(odds.NoProbability, qt.Equals, uint8(34))  // 40*85/100
	c.Assert(odds.HighConfidence, qt.IsFalse)

	// High liquidity: total = 20000, factor 95.
	odds = ComputeOdds(&types.MarketTally{YesStake: 15000, NoStake: 5000})
	c.Assert(odds.YesProbability, qt.Equals, uint8(71)) // 75*95/100
	c.Assert(odds.NoProbability, qt.Equals, uint8(23))  // 25*95/100
	c.Assert(odds.HighConfidence, qt.IsTrue)
}

func TestComputeOddsTruncation(t *testing.T) {
	c := qt.New(t)

	// 1/3 splits truncate at every division step.
	odds := ComputeOdds(&types.MarketTally{YesStake: 1, NoStake: 2})
	c.Assert(odds.YesProbability, qt.Equals, uint8(28)) // (1*100/3=33)*85/100
	c.Assert(odds.NoProbability, qt.Equals, uint8(56))  // (2*100/3=66)*85/100
}

func TestPackOddsWire(t *testing.T) {
	c := qt.New(t)

	odds := types.OddsInfo{
		YesProbability: 72,
		NoProbability:  18,
		Participants:   0x01020304,
		HighConfidence: true,
		AvgConviction:  100,
	}
	data := PackOdds(odds)
	c.Assert(data, qt.HasLen, SizeOddsPacked)
	c.Assert(data, qt.DeepEquals, []byte{72, 18, 4, 3, 2, 1, 1, 100})

	back, err := UnpackOdds(data)
	c.Assert(err, qt.IsNil)
	c.Assert(back, qt.Equals, odds)

	_, err = UnpackOdds(data[:7])
	c.Assert(err, qt.IsNotNil)
}
