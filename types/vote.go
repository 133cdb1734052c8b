package types

import "time"

// Vote choices as they appear inside a sealed VoteData payload.
const (
	VoteNo   uint8 = 0
	VoteYes  uint8 = 1
	VoteSkip uint8 = 2
)

// VoteData is the private payload of one vote. It exists sealed on the wire
// and at rest; only the submitting client and the engine cluster ever hold
// the plaintext. All validity bounds are enforced by the vote validator
// inside the engine, never by the coordinator.
type VoteData struct {
	// Voter is the 32 byte identity commitment of the submitter.
	Voter HexBytes `json:"voter" cbor:"0,keyasint,omitempty"`
	// MarketID routes the vote to its market.
	MarketID uint64 `json:"marketId" cbor:"1,keyasint,omitempty"`
	// Choice is VoteNo, VoteYes or VoteSkip.
	Choice uint8 `json:"choice" cbor:"2,keyasint,omitempty"`
	// StakeAmount must be positive.
	StakeAmount uint64 `json:"stakeAmount" cbor:"3,keyasint,omitempty"`
	// PredictedProbability is the voter's estimate in [0,100].
	PredictedProbability uint8 `json:"predictedProbability" cbor:"4,keyasint,omitempty"`
	// ConvictionScore is the voter's confidence weight in [1,1000].
	ConvictionScore uint16 `json:"convictionScore" cbor:"5,keyasint,omitempty"`
	// Timestamp must be nonzero.
	Timestamp uint64 `json:"timestamp" cbor:"6,keyasint,omitempty"`
	// Nonce is a 128 bit replay protection tag, must be nonzero.
	Nonce HexBytes `json:"nonce" cbor:"7,keyasint,omitempty"`
}

// NonceZero reports whether the replay tag is absent or all zero.
func (v *VoteData) NonceZero() bool {
	for _, b := range v.Nonce {
		if b != 0 {
			return false
		}
	}
	return true
}

// PayoutData combines one user's private vote fields with the plaintext
// settlement figures of a resolved market. Built per claim, consumed once,
// never persisted.
type PayoutData struct {
	Vote                 uint8  `json:"vote"                 cbor:"0,keyasint,omitempty"`
	StakeAmount          uint64 `json:"stakeAmount"          cbor:"1,keyasint,omitempty"`
	PredictedProbability uint8  `json:"predictedProbability" cbor:"2,keyasint,omitempty"`
	ConvictionScore      uint16 `json:"convictionScore"      cbor:"3,keyasint,omitempty"`
	Outcome              uint8  `json:"outcome"              cbor:"4,keyasint,omitempty"`
	TotalWinningStake    uint64 `json:"totalWinningStake"    cbor:"5,keyasint,omitempty"`
	TotalLosingStake     uint64 `json:"totalLosingStake"     cbor:"6,keyasint,omitempty"`
	AccuracyBonusPool    uint64 `json:"accuracyBonusPool"    cbor:"7,keyasint,omitempty"`
	ConvictionBonusPool  uint64 `json:"convictionBonusPool"  cbor:"8,keyasint,omitempty"`
}

// OddsInfo is the publicly revealed odds derivation of a market.
type OddsInfo struct {
	YesProbability uint8  `json:"yesProbability" cbor:"0,keyasint,omitempty"`
	NoProbability  uint8  `json:"noProbability"  cbor:"1,keyasint,omitempty"`
	Participants   uint32 `json:"participants"   cbor:"2,keyasint,omitempty"`
	HighConfidence bool   `json:"highConfidence" cbor:"3,keyasint,omitempty"`
	AvgConviction  uint8  `json:"avgConviction"  cbor:"4,keyasint,omitempty"`
}

// PositionStatus tracks one voter's submission through its lifecycle.
type PositionStatus uint8

const (
	// PositionPending awaits the validation verdict.
	PositionPending PositionStatus = iota
	// PositionAccepted was validated and folded into the market state.
	PositionAccepted
	// PositionRejected failed validation; its stake was never counted.
	PositionRejected
	// PositionClaimRequested has a payout computation in flight.
	PositionClaimRequested
	// PositionClaimed holds a sealed payout, terminal.
	PositionClaimed
	// PositionRefundable belongs to a cancelled market.
	PositionRefundable
)

func (s PositionStatus) String() string {
	switch s {
	case PositionPending:
		return "pending"
	case PositionAccepted:
		return "accepted"
	case PositionRejected:
		return "rejected"
	case PositionClaimRequested:
		return "claimRequested"
	case PositionClaimed:
		return "claimed"
	case PositionRefundable:
		return "refundable"
	default:
		return "unknown"
	}
}

// Position is the coordinator's plaintext record of one submission. The
// vote itself stays sealed; the coordinator only tracks routing metadata
// and lifecycle state.
type Position struct {
	VoteID         HexBytes       `json:"voteId"         cbor:"0,keyasint,omitempty"`
	MarketID       uint64         `json:"marketId"       cbor:"1,keyasint,omitempty"`
	Voter          HexBytes       `json:"voter"          cbor:"2,keyasint,omitempty"`
	Status         PositionStatus `json:"status"         cbor:"3,keyasint,omitempty"`
	SealedVote     HexBytes       `json:"sealedVote"     cbor:"4,keyasint,omitempty"`
	ReplyPublicKey HexBytes       `json:"replyPublicKey" cbor:"5,keyasint,omitempty"`
	SealedVerdict  HexBytes       `json:"sealedVerdict"  cbor:"6,keyasint,omitempty"`
	ClaimID        HexBytes       `json:"claimId"        cbor:"7,keyasint,omitempty"`
	SealedPayout   HexBytes       `json:"sealedPayout"   cbor:"8,keyasint,omitempty"`
	SubmittedAt    time.Time      `json:"submittedAt"    cbor:"9,keyasint,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"      cbor:"10,keyasint,omitempty"`
}
