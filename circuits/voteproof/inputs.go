package voteproof

import (
	"fmt"
	"math/big"

	"github.com/cipherbet/engine/crypto/hash/poseidon"
	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

// CommitmentInputs returns the ordered field elements hashed into the vote
// commitment. The order must match the in-circuit MultiHash call exactly.
func CommitmentInputs(v *types.VoteData) []*big.Int {
	return []*big.Int{
		new(big.Int).SetUint64(v.MarketID),
		util.BigToFF(new(big.Int).SetBytes(v.Voter)),
		big.NewInt(int64(v.Choice)),
		new(big.Int).SetUint64(v.StakeAmount),
		big.NewInt(int64(v.PredictedProbability)),
		big.NewInt(int64(v.ConvictionScore)),
		new(big.Int).SetUint64(v.Timestamp),
		new(big.Int).SetBytes(v.Nonce),
	}
}

// VoteCommitment computes the Poseidon commitment of a vote off circuit.
func VoteCommitment(v *types.VoteData) (*big.Int, error) {
	return poseidon.MultiPoseidon(CommitmentInputs(v)...)
}

// CommitmentBytes returns the vote commitment left padded to 32 bytes, the
// form it travels in inside vote envelopes.
func CommitmentBytes(v *types.VoteData) (types.HexBytes, error) {
	commitment, err := VoteCommitment(v)
	if err != nil {
		return nil, err
	}
	return commitment.FillBytes(make([]byte, 32)), nil
}

// Assignment builds the full witness assignment for a vote.
func Assignment(v *types.VoteData) (*Circuit, error) {
	if len(v.Nonce) > 16 {
		return nil, fmt.Errorf("nonce too long: %d bytes", len(v.Nonce))
	}
	commitment, err := VoteCommitment(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compute vote commitment: %w", err)
	}
	inputs := CommitmentInputs(v)
	return &Circuit{
		MarketID:             inputs[0],
		Voter:                inputs[1],
		Commitment:           commitment,
		Choice:               inputs[2],
		StakeAmount:          inputs[3],
		PredictedProbability: inputs[4],
		ConvictionScore:      inputs[5],
		Timestamp:            inputs[6],
		Nonce:                inputs[7],
	}, nil
}
