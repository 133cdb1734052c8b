package types

import "encoding/json"

// MarketTally is the plaintext counterpart of a market's encrypted state
// vector. The engine materializes it only inside a computation job (or at
// settlement time, when the aggregates become public); the coordinator
// never holds one for an open market.
type MarketTally struct {
	MarketID               uint64 `json:"marketId"               cbor:"0,keyasint,omitempty"`
	YesVotes               uint32 `json:"yesVotes"               cbor:"1,keyasint,omitempty"`
	NoVotes                uint32 `json:"noVotes"                cbor:"2,keyasint,omitempty"`
	SkipVotes              uint32 `json:"skipVotes"              cbor:"3,keyasint,omitempty"`
	YesStake               uint64 `json:"yesStake"               cbor:"4,keyasint,omitempty"`
	NoStake                uint64 `json:"noStake"                cbor:"5,keyasint,omitempty"`
	Participants           uint32 `json:"participants"           cbor:"6,keyasint,omitempty"`
	WeightedProbabilitySum uint64 `json:"weightedProbabilitySum" cbor:"7,keyasint,omitempty"`
	ConvictionWeightedYes  uint64 `json:"convictionWeightedYes"  cbor:"8,keyasint,omitempty"`
	ConvictionWeightedNo   uint64 `json:"convictionWeightedNo"   cbor:"9,keyasint,omitempty"`
	LastUpdated            uint64 `json:"lastUpdated"            cbor:"10,keyasint,omitempty"`
}

func (t *MarketTally) String() string {
	data, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	return string(data)
}

// Vector lays the accumulating fields out on their state vector slots. The
// MarketID is routing metadata and has no slot.
func (t *MarketTally) Vector() [StateNumFields]uint64 {
	var v [StateNumFields]uint64
	v[StateFieldYesVotes] = uint64(t.YesVotes)
	v[StateFieldNoVotes] = uint64(t.NoVotes)
	v[StateFieldSkipVotes] = uint64(t.SkipVotes)
	v[StateFieldYesStake] = t.YesStake
	v[StateFieldNoStake] = t.NoStake
	v[StateFieldParticipants] = uint64(t.Participants)
	v[StateFieldProbabilitySum] = t.WeightedProbabilitySum
	v[StateFieldConvictionYes] = t.ConvictionWeightedYes
	v[StateFieldConvictionNo] = t.ConvictionWeightedNo
	v[StateFieldLastUpdated] = t.LastUpdated
	return v
}

// TallyFromVector rebuilds a plaintext tally from revealed state vector
// slots.
func TallyFromVector(marketID uint64, v [StateNumFields]uint64) *MarketTally {
	return &MarketTally{
		MarketID:               marketID,
		YesVotes:               uint32(v[StateFieldYesVotes]),
		NoVotes:                uint32(v[StateFieldNoVotes]),
		SkipVotes:              uint32(v[StateFieldSkipVotes]),
		YesStake:               v[StateFieldYesStake],
		NoStake:                v[StateFieldNoStake],
		Participants:           uint32(v[StateFieldParticipants]),
		WeightedProbabilitySum: v[StateFieldProbabilitySum],
		ConvictionWeightedYes:  v[StateFieldConvictionYes],
		ConvictionWeightedNo:   v[StateFieldConvictionNo],
		LastUpdated:            v[StateFieldLastUpdated],
	}
}
