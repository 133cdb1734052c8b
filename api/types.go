package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherbet/engine/types"
)

// Info is the response to the info endpoint. SealingKey is the engine
// cluster public key vote and risk payloads must be sealed to.
type Info struct {
	SealingKey types.HexBytes `json:"sealingKey"`
}

// NewMarket is the request to open a prediction market. The authority is
// the address allowed to drive the market lifecycle; creation itself is
// open, the authority checks bite on the signed lifecycle actions.
type NewMarket struct {
	Authority common.Address     `json:"authority"`
	Rules     *types.MarketRules `json:"rules"`
}

// MarketInfo is the response to a market info request. It extends the
// ledger record with the current encrypted state version and, once the
// market resolves, the revealed settlement figures.
type MarketInfo struct {
	*types.Market
	Version    uint64            `json:"version"`
	Settlement *types.Settlement `json:"settlement,omitempty"`
}

// VoteReceipt is the response to a vote submission.
type VoteReceipt struct {
	VoteID types.HexBytes `json:"voteId"`
}

// PositionInfo is the response to a position or claim status request. The
// sealed verdict and payout are opaque to everyone but the reply key holder.
type PositionInfo struct {
	VoteID        types.HexBytes `json:"voteId"`
	MarketID      uint64         `json:"marketId"`
	Status        string         `json:"status"`
	SealedVerdict types.HexBytes `json:"sealedVerdict,omitempty"`
	ClaimID       types.HexBytes `json:"claimId,omitempty"`
	SealedPayout  types.HexBytes `json:"sealedPayout,omitempty"`
	SubmittedAt   time.Time      `json:"submittedAt"`
	UpdatedAt     time.Time      `json:"updatedAt,omitempty"`
}

// positionInfo shapes a ledger position into its API form.
func positionInfo(p *types.Position) *PositionInfo {
	return &PositionInfo{
		VoteID:        p.VoteID,
		MarketID:      p.MarketID,
		Status:        p.Status.String(),
		SealedVerdict: p.SealedVerdict,
		ClaimID:       p.ClaimID,
		SealedPayout:  p.SealedPayout,
		SubmittedAt:   p.SubmittedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// OddsHistory is the response to an odds request with ?history=1.
type OddsHistory struct {
	MarketID  uint64                `json:"marketId"`
	Snapshots []*types.OddsSnapshot `json:"snapshots"`
}

// ClaimReceipt is the response to an accepted payout claim.
type ClaimReceipt struct {
	ClaimID types.HexBytes `json:"claimId"`
}

// RiskSubmission is the request to queue a sealed risk metrics computation.
type RiskSubmission struct {
	SealedRequest  types.HexBytes `json:"sealedRequest"`
	ReplyPublicKey types.HexBytes `json:"replyPublicKey"`
}

// RiskReceipt is the response to a risk submission.
type RiskReceipt struct {
	JobID types.HexBytes `json:"jobId"`
}

// RiskReport is the response to a risk job poll. SealedReport opens only
// with the reply key the job was submitted with.
type RiskReport struct {
	JobID        types.HexBytes `json:"jobId"`
	Failed       bool           `json:"failed"`
	Error        string         `json:"error,omitempty"`
	SealedReport types.HexBytes `json:"sealedReport,omitempty"`
	CompletedAt  time.Time      `json:"completedAt"`
}
