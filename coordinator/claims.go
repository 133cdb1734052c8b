package coordinator

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cipherbet/engine/crypto/ethereum"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// ClaimRequest asks for the payout of one position of a resolved market.
// The payout comes back sealed to the reply key; the coordinator never
// learns the amount.
type ClaimRequest struct {
	MarketID       uint64         `json:"marketId"`
	VoteID         types.HexBytes `json:"voteId"`
	ReplyPublicKey types.HexBytes `json:"replyPublicKey,omitempty"`
	Signature      types.HexBytes `json:"signature,omitempty"`
}

// Digest returns the message the claimant signs.
func (r *ClaimRequest) Digest() []byte {
	msg := make([]byte, 0, 96)
	msg = append(msg, []byte("claim/")...)
	msg = binary.BigEndian.AppendUint64(msg, r.MarketID)
	msg = append(msg, r.VoteID...)
	msg = append(msg, ethereum.HashRaw(r.ReplyPublicKey)...)
	return ethereum.HashRaw(msg)
}

// ClaimPayout opens a payout claim. The claim gate is checked and set
// before the job is queued and checked again when the result comes back,
// so at most one payout is ever computed and stored per position.
func (c *Coordinator) ClaimPayout(req *ClaimRequest) (types.HexBytes, error) {
	if req == nil {
		return nil, fmt.Errorf("empty claim request")
	}
	market, err := c.stg.Market(req.MarketID)
	if err != nil {
		return nil, err
	}
	if market.Status != types.MarketResolved {
		return nil, fmt.Errorf("market is %s, payouts are not open", market.Status)
	}
	position, err := c.stg.Position(req.VoteID)
	if err != nil {
		return nil, err
	}
	if position.MarketID != req.MarketID {
		return nil, fmt.Errorf("position belongs to another market")
	}
	signer, err := ethereum.VoterIDFromSignature(req.Digest(), req.Signature)
	if err != nil {
		return nil, fmt.Errorf("cannot recover claim signer: %w", err)
	}
	if !bytes.Equal(signer, position.Voter) {
		return nil, fmt.Errorf("claim signer does not own the position")
	}
	replyKey := req.ReplyPublicKey
	if len(replyKey) == 0 {
		replyKey = position.ReplyPublicKey
	}
	if len(replyKey) == 0 {
		return nil, fmt.Errorf("no reply key to seal the payout to")
	}
	claimID := storage.NewJobID()
	if _, err := c.stg.RequestClaim(req.VoteID, claimID); err != nil {
		return nil, err
	}
	if err := c.queueJob(&storage.Job{
		ID:             claimID,
		Kind:           storage.JobPayout,
		MarketID:       req.MarketID,
		VoteID:         req.VoteID,
		Payload:        position.SealedVote,
		ReplyPublicKey: replyKey,
	}); err != nil {
		// the job never reached the queue, reopen the gate
		if _, rerr := c.stg.UpdatePosition(req.VoteID, func(p *types.Position) error {
			p.Status = types.PositionAccepted
			p.ClaimID = nil
			return nil
		}); rerr != nil {
			log.Errorw(rerr, "cannot reopen claim gate")
		}
		return nil, err
	}
	log.Infow("claim opened",
		"market", req.MarketID,
		"voteId", req.VoteID.String(),
		"claimId", claimID.String(),
	)
	return claimID, nil
}

// PositionByClaim resolves a claim id to its position record.
func (c *Coordinator) PositionByClaim(claimID types.HexBytes) (*types.Position, error) {
	return c.stg.PositionByClaim(claimID)
}
