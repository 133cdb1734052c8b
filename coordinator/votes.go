package coordinator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cipherbet/engine/circuits/voteproof"
	"github.com/cipherbet/engine/crypto/ethereum"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

const (
	voterSize = 32
	nonceSize = 16
)

// VoteEnvelope is the public wrapper of a vote submission. The vote itself
// travels sealed to the engine cluster key; the envelope carries only the
// routing fields the coordinator needs, signed by the voter. The voter and
// nonce fields must repeat the values inside the sealed payload, which the
// engine checks against the nonce ledger during validation.
type VoteEnvelope struct {
	MarketID       uint64         `json:"marketId"`
	Voter          types.HexBytes `json:"voter"`
	Nonce          types.HexBytes `json:"nonce"`
	SealedVote     types.HexBytes `json:"sealedVote"`
	ReplyPublicKey types.HexBytes `json:"replyPublicKey,omitempty"`
	Commitment     types.HexBytes `json:"commitment,omitempty"`
	Proof          types.HexBytes `json:"proof,omitempty"`
	Signature      types.HexBytes `json:"signature,omitempty"`
}

// Digest returns the message the voter signs: every envelope field bound
// together, the variable length payloads hashed first.
func (v *VoteEnvelope) Digest() []byte {
	msg := make([]byte, 0, 192)
	msg = append(msg, []byte("vote/")...)
	msg = binary.BigEndian.AppendUint64(msg, v.MarketID)
	msg = append(msg, v.Voter...)
	msg = append(msg, v.Nonce...)
	msg = append(msg, ethereum.HashRaw(v.SealedVote)...)
	msg = append(msg, ethereum.HashRaw(v.ReplyPublicKey)...)
	msg = append(msg, v.Commitment...)
	msg = append(msg, ethereum.HashRaw(v.Proof)...)
	return ethereum.HashRaw(msg)
}

// VoteID derives the submission identifier from the (market, voter, nonce)
// triple, so a client can compute it offline before submitting.
func (v *VoteEnvelope) VoteID() types.HexBytes {
	msg := make([]byte, 0, 64)
	msg = binary.BigEndian.AppendUint64(msg, v.MarketID)
	msg = append(msg, v.Voter...)
	msg = append(msg, v.Nonce...)
	return ethereum.HashRaw(msg)
}

// SubmitVote checks a vote envelope and opens its position. The sealed vote
// is never opened here: the coordinator verifies envelope metadata only
// (voting window, signature, nonce freshness, optional membership proof).
// The validity of the sealed fields is the validate job's call.
func (c *Coordinator) SubmitVote(envelope *VoteEnvelope) (types.HexBytes, error) {
	if envelope == nil {
		return nil, fmt.Errorf("empty envelope")
	}
	if len(envelope.Voter) != voterSize {
		return nil, fmt.Errorf("voter commitment must be %d bytes", voterSize)
	}
	if len(envelope.Nonce) != nonceSize || isZero(envelope.Nonce) {
		return nil, fmt.Errorf("nonce must be %d nonzero bytes", nonceSize)
	}
	if len(envelope.SealedVote) == 0 {
		return nil, fmt.Errorf("empty sealed vote")
	}
	market, err := c.stg.Market(envelope.MarketID)
	if err != nil {
		return nil, err
	}
	if !market.Voting(time.Now()) {
		return nil, fmt.Errorf("market %d is not accepting votes", envelope.MarketID)
	}
	if market.Rules.MaxVoters > 0 && market.AcceptedVotes >= market.Rules.MaxVoters {
		return nil, fmt.Errorf("market %d is full", envelope.MarketID)
	}
	signer, err := ethereum.VoterIDFromSignature(envelope.Digest(), envelope.Signature)
	if err != nil {
		return nil, fmt.Errorf("cannot recover envelope signer: %w", err)
	}
	if !bytes.Equal(signer, envelope.Voter) {
		return nil, fmt.Errorf("envelope signer does not match the declared voter")
	}
	if market.Rules.RequireProof {
		if err := voteproof.Verify(envelope.Proof, envelope.MarketID, envelope.Voter, envelope.Commitment); err != nil {
			return nil, fmt.Errorf("vote proof rejected: %w", err)
		}
	}
	if err := c.stg.RegisterNonce(envelope.MarketID, envelope.Voter, envelope.Nonce); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			return nil, fmt.Errorf("nonce already used for this market")
		}
		return nil, fmt.Errorf("cannot register nonce: %w", err)
	}
	voteID := envelope.VoteID()
	position := &types.Position{
		VoteID:         voteID,
		MarketID:       envelope.MarketID,
		Voter:          envelope.Voter,
		Status:         types.PositionPending,
		SealedVote:     envelope.SealedVote,
		ReplyPublicKey: envelope.ReplyPublicKey,
		SubmittedAt:    time.Now(),
	}
	if err := c.stg.SetPosition(position); err != nil {
		return nil, fmt.Errorf("cannot store position: %w", err)
	}
	if err := c.queueJob(&storage.Job{
		Kind:           storage.JobValidate,
		MarketID:       envelope.MarketID,
		VoteID:         voteID,
		Payload:        envelope.SealedVote,
		ReplyPublicKey: envelope.ReplyPublicKey,
	}); err != nil {
		return nil, err
	}
	log.Infow("vote submitted",
		"market", envelope.MarketID,
		"voteId", voteID.String(),
	)
	return voteID, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
