package circuits

import "github.com/cipherbet/engine/types"

// Coordination signal parameters. The thresholds and weights define the
// detector's sensitivity profile; downstream review policy depends on the
// exact score bands, so they must not drift.
const (
	// collusionTimeDelta is the timestamp distance below which two votes
	// count as simultaneous.
	collusionTimeDelta = 5
	// pairSignalWeight and windowSignalWeight convert flag counts into the
	// score band.
	pairSignalWeight   = 25
	windowSignalWeight = 33
)

// DetectPair scores two votes for coordination signals: near identical
// timing, identical probability estimate, identical conviction, plus a
// combined flag when choice and stake both match on top of at least two of
// the base signals. Returns a suspicion score in [0,100].
//
// This is a heuristic, not proof of collusion: scores flag a market for
// review, they never void votes.
func DetectPair(a, b types.VoteData) uint8 {
	var flags uint8
	if timestampDelta(a.Timestamp, b.Timestamp) < collusionTimeDelta {
		flags++
	}
	if a.PredictedProbability == b.PredictedProbability {
		flags++
	}
	if a.ConvictionScore == b.ConvictionScore {
		flags++
	}
	if a.Choice == b.Choice && a.StakeAmount == b.StakeAmount && flags >= 2 {
		flags++
	}
	return clampScore(flags * pairSignalWeight)
}

// DetectWindow scores a window of up to 50 votes for coordinated patterns.
// Every unordered pair within votes[0:count] is checked for the three base
// signals; a signal whose pair count crosses its threshold (count/4 for
// timing, count/3 for probability and conviction, truncating) raises one
// flag. Returns min(flags*33, 100).
func DetectWindow(votes *[types.CollusionWindowCapacity]types.VoteData, count uint8) uint8 {
	n := int(count)
	if n > types.CollusionWindowCapacity {
		n = types.CollusionWindowCapacity
	}

	// Pair counters are wide on purpose: a full window produces 1225 pairs,
	// beyond any 8 bit counter.
	var sameTimestamp, sameProbability, sameConviction int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if timestampDelta(votes[i].Timestamp, votes[j].Timestamp) < collusionTimeDelta {
				sameTimestamp++
			}
			if votes[i].PredictedProbability == votes[j].PredictedProbability {
				sameProbability++
			}
			if votes[i].ConvictionScore == votes[j].ConvictionScore {
				sameConviction++
			}
		}
	}

	var flags uint8
	if sameTimestamp > n/4 {
		flags++
	}
	if sameProbability > n/3 {
		flags++
	}
	if sameConviction > n/3 {
		flags++
	}
	return clampScore(flags * windowSignalWeight)
}

func timestampDelta(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func clampScore(score uint8) uint8 {
	if score > 100 {
		return 100
	}
	return score
}
