package types

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MarketStatus is the lifecycle state of a prediction market.
type MarketStatus uint8

const (
	// MarketActive accepts vote submissions.
	MarketActive MarketStatus = iota
	// MarketLocked no longer accepts votes and awaits resolution.
	MarketLocked
	// MarketResolved has a final outcome and accepts payout claims.
	MarketResolved
	// MarketSettled is terminal, all bookkeeping finished.
	MarketSettled
	// MarketCancelled is terminal, positions become refundable.
	MarketCancelled
)

func (s MarketStatus) String() string {
	switch s {
	case MarketActive:
		return "active"
	case MarketLocked:
		return "locked"
	case MarketResolved:
		return "resolved"
	case MarketSettled:
		return "settled"
	case MarketCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Market outcomes, same encoding as the vote choices they settle against.
// A market's Outcome field is only meaningful once its status is resolved
// or later.
const (
	OutcomeNo  uint8 = 0
	OutcomeYes uint8 = 1
)

// MarketRules are the immutable parameters fixed at market creation.
type MarketRules struct {
	MetadataHash        HexBytes  `json:"metadataHash"        cbor:"0,keyasint,omitempty"`
	VotingEndsAt        time.Time `json:"votingEndsAt"        cbor:"1,keyasint,omitempty"`
	MaxStakeAmount      uint64    `json:"maxStakeAmount"      cbor:"2,keyasint,omitempty"`
	MaxVoters           uint32    `json:"maxVoters"           cbor:"3,keyasint,omitempty"`
	AccuracyBonusPool   uint64    `json:"accuracyBonusPool"   cbor:"4,keyasint,omitempty"`
	ConvictionBonusPool uint64    `json:"convictionBonusPool" cbor:"5,keyasint,omitempty"`
	RequireProof        bool      `json:"requireProof"        cbor:"6,keyasint,omitempty"`
}

// Market is the plaintext ledger record of a prediction market. The voting
// aggregates live apart as an encrypted state vector; this record carries
// only routing metadata and lifecycle state.
type Market struct {
	ID            uint64         `json:"id"                 cbor:"0,keyasint,omitempty"`
	Status        MarketStatus   `json:"status"             cbor:"1,keyasint,omitempty"`
	Authority     common.Address `json:"authority"          cbor:"2,keyasint,omitempty"`
	Rules         *MarketRules   `json:"rules"              cbor:"3,keyasint,omitempty"`
	EncryptionKey *EncryptionKey `json:"encryptionKey"      cbor:"4,keyasint,omitempty"`
	StateRoot     HexBytes       `json:"stateRoot"          cbor:"5,keyasint,omitempty"`
	Outcome       uint8          `json:"outcome"            cbor:"6,keyasint,omitempty"`
	UnderReview   bool           `json:"underReview"        cbor:"7,keyasint,omitempty"`
	ReviewScore   uint8          `json:"reviewScore"        cbor:"8,keyasint,omitempty"`
	AcceptedVotes uint32         `json:"acceptedVotes"      cbor:"9,keyasint,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"          cbor:"10,keyasint,omitempty"`
	LockedAt      time.Time      `json:"lockedAt"           cbor:"11,keyasint,omitempty"`
	ResolvedAt    time.Time      `json:"resolvedAt"         cbor:"12,keyasint,omitempty"`
}

func (m *Market) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// Voting reports whether the market still accepts vote submissions.
func (m *Market) Voting(now time.Time) bool {
	return m.Status == MarketActive && m.Rules != nil && now.Before(m.Rules.VotingEndsAt)
}

// EncryptionKey is the public half of a market's homomorphic keypair.
type EncryptionKey struct {
	X *big.Int `json:"x" cbor:"0,keyasint,omitempty"`
	Y *big.Int `json:"y" cbor:"1,keyasint,omitempty"`
}

// Settlement is the record persisted when a market resolves: the revealed
// final tally plus the derived pools every payout computation draws from.
type Settlement struct {
	MarketID            uint64       `json:"marketId"            cbor:"0,keyasint,omitempty"`
	Outcome             uint8        `json:"outcome"             cbor:"1,keyasint,omitempty"`
	Tally               *MarketTally `json:"tally"               cbor:"2,keyasint,omitempty"`
	Summary             HexBytes     `json:"summary"             cbor:"3,keyasint,omitempty"`
	TotalWinningStake   uint64       `json:"totalWinningStake"   cbor:"4,keyasint,omitempty"`
	TotalLosingStake    uint64       `json:"totalLosingStake"    cbor:"5,keyasint,omitempty"`
	AccuracyBonusPool   uint64       `json:"accuracyBonusPool"   cbor:"6,keyasint,omitempty"`
	ConvictionBonusPool uint64       `json:"convictionBonusPool" cbor:"7,keyasint,omitempty"`
	SettledAt           time.Time    `json:"settledAt"           cbor:"8,keyasint,omitempty"`
}

// OddsSnapshot is a published odds computation, bound to the market state
// it was derived from.
type OddsSnapshot struct {
	MarketID  uint64    `json:"marketId"  cbor:"0,keyasint,omitempty"`
	Odds      *OddsInfo `json:"odds"      cbor:"1,keyasint,omitempty"`
	Packed    HexBytes  `json:"packed"    cbor:"2,keyasint,omitempty"`
	StateRoot HexBytes  `json:"stateRoot" cbor:"3,keyasint,omitempty"`
	Version   uint64    `json:"version"   cbor:"4,keyasint,omitempty"`
	CreatedAt time.Time `json:"createdAt" cbor:"5,keyasint,omitempty"`
}
