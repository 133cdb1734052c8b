package circuits

import (
	"math"
	"math/bits"

	"github.com/cipherbet/engine/types"
)

// ComputePayout settles one position against the resolved outcome. A losing
// position pays zero, no partial refunds. A winning position receives its
// stake back plus a proportional share of the losing side's stake, an
// accuracy bonus scaled by how confidently the voter predicted the actual
// outcome, and a conviction bonus scaled by the voter's conviction weight.
//
// The function is pure and idempotent; at-most-once execution per claim is
// the coordinator's flag discipline, not enforced here.
func ComputePayout(p types.PayoutData) uint64 {
	if p.Vote != p.Outcome {
		return 0
	}

	var losingShare uint64
	if p.TotalWinningStake > 0 {
		losingShare = mulDiv(p.StakeAmount, p.TotalLosingStake, p.TotalWinningStake)
	}
	payout := p.StakeAmount + losingShare

	var accuracyFactor uint64
	switch p.Outcome {
	case types.OutcomeYes:
		accuracyFactor = uint64(p.PredictedProbability)
	case types.OutcomeNo:
		accuracyFactor = uint64(100 - p.PredictedProbability)
	default:
		accuracyFactor = 50
	}
	payout += mulDiv(p.AccuracyBonusPool, accuracyFactor, 100)
	payout += mulDiv(p.ConvictionBonusPool, uint64(p.ConvictionScore), 1000)
	return payout
}

// mulDiv computes a*b/den with the intermediate product widened to 128
// bits, truncating. A zero divisor or a quotient beyond 64 bits saturates
// to MaxUint64 instead of trapping.
func mulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if den == 0 || hi >= den {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo
}
