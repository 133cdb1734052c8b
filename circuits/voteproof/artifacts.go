package voteproof

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

// Curve is the curve the circuit is compiled and proven over.
var Curve = ecc.BN254

// artifacts holds the compiled constraint system and the Groth16 key pair,
// generated lazily on first use and shared for the life of the process.
var artifacts struct {
	once sync.Once
	ccs  constraint.ConstraintSystem
	pk   groth16.ProvingKey
	vk   groth16.VerifyingKey
	err  error
}

func setup() error {
	artifacts.once.Do(func() {
		artifacts.ccs, artifacts.err = frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, &Circuit{})
		if artifacts.err != nil {
			artifacts.err = fmt.Errorf("failed to compile voteproof circuit: %w", artifacts.err)
			return
		}
		artifacts.pk, artifacts.vk, artifacts.err = groth16.Setup(artifacts.ccs)
		if artifacts.err != nil {
			artifacts.err = fmt.Errorf("failed to setup voteproof circuit: %w", artifacts.err)
		}
	})
	return artifacts.err
}

// VerifyingKey returns the Groth16 verifying key, running the one time
// compile and setup if needed.
func VerifyingKey() (groth16.VerifyingKey, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	return artifacts.vk, nil
}

// Prove generates a Groth16 proof that the vote satisfies the validator
// bounds and matches its commitment. It returns the serialized proof.
func Prove(v *types.VoteData) (types.HexBytes, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	assignment, err := Assignment(v)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assignment, Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	proof, err := groth16.Prove(artifacts.ccs, artifacts.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof: %w", err)
	}
	buf := bytes.Buffer{}
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against the public inputs carried by the
// vote envelope: the market, the recovered voter identity and the vote
// commitment.
func Verify(proof types.HexBytes, marketID uint64, voter, commitment types.HexBytes) error {
	if err := setup(); err != nil {
		return err
	}
	p := groth16.NewProof(Curve)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("failed to deserialize proof: %w", err)
	}
	assignment := &Circuit{
		MarketID:   new(big.Int).SetUint64(marketID),
		Voter:      util.BigToFF(new(big.Int).SetBytes(voter)),
		Commitment: new(big.Int).SetBytes(commitment),
	}
	publicWitness, err := frontend.NewWitness(assignment, Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("failed to create public witness: %w", err)
	}
	if err := groth16.Verify(p, artifacts.vk, publicWitness); err != nil {
		return fmt.Errorf("invalid vote proof: %w", err)
	}
	return nil
}
