package engine

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/crypto/elgamal"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// Fallback reveal bounds for markets whose rules leave a limit open.
const (
	defaultMaxVoters = 100_000
	defaultMaxStake  = 1_000_000
)

// startRevealBound is the first discrete log bound tried on a reveal.
const startRevealBound = uint64(1) << 16

// RevealTally decrypts the current aggregates of a market into a plaintext
// tally. It is the only read path through the market's private key and is
// meant for settlement and for the partial reveals the job kinds declassify.
// The returned root is the state commitment the tally was derived from.
func (e *Engine) RevealTally(marketID uint64) (*types.MarketTally, types.HexBytes, error) {
	st, err := e.stg.MarketState(marketID)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load market state: %w", err)
	}
	sv := elgamal.NewStateVector(e.curve)
	if err := sv.Deserialize(st.Vector); err != nil {
		return nil, nil, fmt.Errorf("cannot deserialize state vector: %w", err)
	}
	vector, err := e.revealVector(marketID, sv)
	if err != nil {
		return nil, nil, err
	}
	tally := types.TallyFromVector(marketID, vector)
	tally.LastUpdated = st.Version
	return tally, st.Root, nil
}

// revealVector recovers the plaintext slots of an encrypted state vector
// with the market's private key. Each slot's discrete log search is bounded
// by what the market rules allow it to hold.
func (e *Engine) revealVector(marketID uint64, sv *elgamal.StateVector) ([types.StateNumFields]uint64, error) {
	var vector [types.StateNumFields]uint64
	publicKey, privateKey, err := e.stg.EncryptionKeys(marketID)
	if err != nil {
		return vector, fmt.Errorf("cannot load encryption keys: %w", err)
	}
	if privateKey == nil {
		return vector, fmt.Errorf("market %d has no reveal key", marketID)
	}
	market, err := e.stg.Market(marketID)
	if err != nil {
		return vector, err
	}
	bounds := tallyBounds(market.Rules)
	for i, ct := range sv.Ciphertexts {
		value, err := revealScalar(publicKey, privateKey, ct, bounds[i])
		if err != nil {
			return vector, fmt.Errorf("cannot reveal state field %d: %w", i, err)
		}
		vector[i] = value
	}
	return vector, nil
}

// revealScalar runs the bounded discrete log search with escalating bounds,
// so small aggregates stay cheap while large ones remain reachable.
func revealScalar(publicKey ecc.Point, privateKey *big.Int, ct *elgamal.Ciphertext, maxBound uint64) (uint64, error) {
	bound := startRevealBound
	if bound > maxBound {
		bound = maxBound
	}
	for {
		_, message, err := elgamal.Decrypt(publicKey, privateKey, ct.C1, ct.C2, bound)
		if err == nil {
			return message.Uint64(), nil
		}
		if bound == maxBound {
			return 0, err
		}
		if bound > maxBound>>4 {
			bound = maxBound
		} else {
			bound <<= 4
		}
	}
}

// tallyBounds derives the per slot reveal bounds from the market rules.
func tallyBounds(rules *types.MarketRules) [types.StateNumFields]uint64 {
	voters := uint64(defaultMaxVoters)
	stake := uint64(defaultMaxStake)
	if rules != nil && rules.MaxVoters > 0 {
		voters = uint64(rules.MaxVoters)
	}
	if rules != nil && rules.MaxStakeAmount > 0 {
		stake = rules.MaxStakeAmount
	}
	totalStake := satMul(stake, voters)

	var bounds [types.StateNumFields]uint64
	bounds[types.StateFieldYesVotes] = voters
	bounds[types.StateFieldNoVotes] = voters
	bounds[types.StateFieldSkipVotes] = voters
	bounds[types.StateFieldYesStake] = totalStake
	bounds[types.StateFieldNoStake] = totalStake
	bounds[types.StateFieldParticipants] = voters
	bounds[types.StateFieldProbabilitySum] = satMul(totalStake, 100)
	bounds[types.StateFieldConvictionYes] = satMul(totalStake, 1000)
	bounds[types.StateFieldConvictionNo] = satMul(totalStake, 1000)
	bounds[types.StateFieldLastUpdated] = voters
	return bounds
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

// currentVector loads and deserializes the stored aggregate vector of a
// market together with its versioned record.
func (e *Engine) currentVector(marketID uint64) (*storage.MarketVotingState, *elgamal.StateVector, error) {
	st, err := e.stg.MarketState(marketID)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load market state: %w", err)
	}
	sv := elgamal.NewStateVector(e.curve)
	if err := sv.Deserialize(st.Vector); err != nil {
		return nil, nil, fmt.Errorf("cannot deserialize state vector: %w", err)
	}
	return st, sv, nil
}
