package circuits

import (
	"encoding/binary"
	"fmt"

	"github.com/cipherbet/engine/types"
)

// TallySummaryVersion identifies the packed wire layout produced by
// TallySummary.MarshalBinary.
const TallySummaryVersion = 1

// SizeTallySummary is the byte size of the packed tally summary.
const SizeTallySummary = 32

// Byte offsets of the packed tally summary, version 1. All fields are
// little endian at fixed offsets; trailing bytes stay zero.
const (
	tallyOffYesVotes     = 0  // uint32
	tallyOffNoVotes      = 4  // uint32
	tallyOffYesStake     = 8  // uint64
	tallyOffNoStake      = 16 // uint64
	tallyOffParticipants = 24 // uint32
	tallyOffProbability  = 28 // uint8
)

// ApplyVote folds one vote into the tally. The fold is applied only when
// the vote carries a known choice and a positive stake; otherwise the tally
// is untouched and false is returned. Each accepted fold advances the
// tally's logical clock by one.
//
// The rule is commutative and associative across votes, which makes batch
// and incremental aggregation interchangeable.
func ApplyVote(t *types.MarketTally, v types.VoteData) bool {
	if v.Choice > types.VoteSkip || v.StakeAmount == 0 {
		return false
	}
	switch v.Choice {
	case types.VoteYes:
		t.YesVotes++
		t.YesStake += v.StakeAmount
		t.ConvictionWeightedYes += uint64(v.ConvictionScore) * v.StakeAmount
	case types.VoteNo:
		t.NoVotes++
		t.NoStake += v.StakeAmount
		t.ConvictionWeightedNo += uint64(v.ConvictionScore) * v.StakeAmount
	case types.VoteSkip:
		t.SkipVotes++
	}
	// Skip votes never touch the stake weighted probability.
	if v.Choice != types.VoteSkip {
		t.WeightedProbabilitySum += v.StakeAmount * uint64(v.PredictedProbability)
	}
	t.Participants++
	t.LastUpdated++
	return true
}

// VoteDelta expresses one vote as its additive contribution to the state
// vector. When the fold rule rejects the vote the delta is all zero and ok
// is false.
func VoteDelta(v types.VoteData) (delta [types.StateNumFields]uint64, ok bool) {
	var t types.MarketTally
	if !ApplyVote(&t, v) {
		return delta, false
	}
	return t.Vector(), true
}

// FoldBatch folds votes[0:count] into the tally with the incremental rule
// and returns the partially revealed summary of the resulting state. Slots
// at index >= count are ignored; a count beyond the batch capacity is
// clamped.
func FoldBatch(t *types.MarketTally, votes *[types.VoteBatchCapacity]types.VoteData, count uint8) TallySummary {
	n := int(count)
	if n > types.VoteBatchCapacity {
		n = types.VoteBatchCapacity
	}
	for i := 0; i < n; i++ {
		ApplyVote(t, votes[i])
	}
	return Summarize(t)
}

// Summarize derives the revealed aggregate of a tally. The market
// probability is the stake weighted average of the voters' estimates and
// defaults to 50 while no stake has accumulated.
func Summarize(t *types.MarketTally) TallySummary {
	s := TallySummary{
		YesVotes:          t.YesVotes,
		NoVotes:           t.NoVotes,
		YesStake:          t.YesStake,
		NoStake:           t.NoStake,
		Participants:      t.Participants,
		MarketProbability: 50,
	}
	if total := t.YesStake + t.NoStake; total > 0 {
		s.MarketProbability = uint8(t.WeightedProbabilitySum / total)
	}
	return s
}

// TallySummary is the declassified aggregate of a market state: vote
// counts, stake totals, participation and the stake weighted market
// probability. Per-vote detail is never part of it.
type TallySummary struct {
	YesVotes          uint32 `json:"yesVotes"`
	NoVotes           uint32 `json:"noVotes"`
	YesStake          uint64 `json:"yesStake"`
	NoStake           uint64 `json:"noStake"`
	Participants      uint32 `json:"participants"`
	MarketProbability uint8  `json:"marketProbability"`
}

// MarshalBinary packs the summary into the version 1 fixed 32 byte little
// endian layout.
func (s TallySummary) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SizeTallySummary)
	binary.LittleEndian.PutUint32(buf[tallyOffYesVotes:], s.YesVotes)
	binary.LittleEndian.PutUint32(buf[tallyOffNoVotes:], s.NoVotes)
	binary.LittleEndian.PutUint64(buf[tallyOffYesStake:], s.YesStake)
	binary.LittleEndian.PutUint64(buf[tallyOffNoStake:], s.NoStake)
	binary.LittleEndian.PutUint32(buf[tallyOffParticipants:], s.Participants)
	buf[tallyOffProbability] = s.MarketProbability
	return buf, nil
}

// UnmarshalBinary parses the version 1 packed layout.
func (s *TallySummary) UnmarshalBinary(data []byte) error {
	if len(data) != SizeTallySummary {
		return fmt.Errorf("invalid tally summary size %d, expected %d", len(data), SizeTallySummary)
	}
	s.YesVotes = binary.LittleEndian.Uint32(data[tallyOffYesVotes:])
	s.NoVotes = binary.LittleEndian.Uint32(data[tallyOffNoVotes:])
	s.YesStake = binary.LittleEndian.Uint64(data[tallyOffYesStake:])
	s.NoStake = binary.LittleEndian.Uint64(data[tallyOffNoStake:])
	s.Participants = binary.LittleEndian.Uint32(data[tallyOffParticipants:])
	s.MarketProbability = data[tallyOffProbability]
	return nil
}
