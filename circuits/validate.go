package circuits

import "github.com/cipherbet/engine/types"

// Validity bounds of a vote payload.
const (
	// MaxPredictedProbability is the upper bound of a probability estimate.
	MaxPredictedProbability = 100
	// MinConvictionScore and MaxConvictionScore bound the conviction weight.
	MinConvictionScore = 1
	MaxConvictionScore = 1000
)

// ValidateVote checks a vote's shape and bounds and returns 1 for a valid
// vote, 0 otherwise. It never errors and has no side effects: the zero
// verdict is the only rejection signal available to the caller, which must
// discard the submission without applying any state change.
func ValidateVote(v types.VoteData) uint8 {
	valid := uint8(1)
	if v.Choice > types.VoteSkip {
		valid = 0
	}
	if v.StakeAmount == 0 {
		valid = 0
	}
	if v.PredictedProbability > MaxPredictedProbability {
		valid = 0
	}
	if v.Timestamp == 0 {
		valid = 0
	}
	if v.ConvictionScore < MinConvictionScore || v.ConvictionScore > MaxConvictionScore {
		valid = 0
	}
	if v.NonceZero() {
		valid = 0
	}
	return valid
}
