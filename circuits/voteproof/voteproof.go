// Package voteproof contains the gnark circuit a voter runs client side to
// prove that a sealed vote is well formed without revealing it. The circuit
// enforces the same bounds as circuits.ValidateVote and binds every private
// field to a public Poseidon commitment, so the engine can later check that
// the sealed payload it unseals is the one that was proven.
//
// Public inputs: market id, the 32 byte voter identity reduced into the
// scalar field, and the Poseidon commitment. Everything else is witness.
package voteproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/gnark-crypto-primitives/poseidon"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/types"
)

type Circuit struct {
	MarketID   frontend.Variable `gnark:",public"`
	Voter      frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`

	Choice               frontend.Variable
	StakeAmount          frontend.Variable
	PredictedProbability frontend.Variable
	ConvictionScore      frontend.Variable
	Timestamp            frontend.Variable
	Nonce                frontend.Variable
}

// Define declares the circuit's constraints.
func (c *Circuit) Define(api frontend.API) error {
	// field bounds, mirroring circuits.ValidateVote
	api.AssertIsLessOrEqual(c.Choice, types.VoteSkip)
	api.AssertIsDifferent(c.StakeAmount, 0)
	api.ToBinary(c.StakeAmount, 64)
	api.AssertIsLessOrEqual(c.PredictedProbability, circuits.MaxPredictedProbability)
	api.AssertIsDifferent(c.ConvictionScore, 0)
	api.AssertIsLessOrEqual(c.ConvictionScore, circuits.MaxConvictionScore)
	api.AssertIsDifferent(c.Timestamp, 0)
	api.ToBinary(c.Timestamp, 64)
	api.AssertIsDifferent(c.Nonce, 0)

	// the commitment binds the public inputs and the witness together
	commitment, err := poseidon.MultiHash(api,
		c.MarketID, c.Voter,
		c.Choice, c.StakeAmount, c.PredictedProbability,
		c.ConvictionScore, c.Timestamp, c.Nonce)
	if err != nil {
		return err
	}
	api.AssertIsEqual(commitment, c.Commitment)
	return nil
}
