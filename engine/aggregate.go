package engine

import (
	"errors"
	"fmt"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/crypto/elgamal"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/marketstate"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executeAggregate folds one accepted vote into the market's encrypted
// aggregates. The vote is re-expressed as an additive delta vector,
// encrypted under the market key and added onto the stored vector, so the
// plaintext tally never materializes. The fold and the vote's nullifier
// land in the state tree under one transition.
func (e *Engine) executeAggregate(job *storage.Job, result *storage.JobResult) error {
	vote, err := e.openVote(job.Payload)
	if err != nil {
		return err
	}
	delta, ok := circuits.VoteDelta(*vote)
	if !ok {
		return fmt.Errorf("vote is not foldable")
	}

	st, err := e.state(job.MarketID)
	if err != nil {
		return err
	}
	nullifier := marketstate.Nullifier(job.MarketID, vote.Voter, vote.Nonce)
	if st.HasNullifier(nullifier) {
		// replayed job, the vote is already part of the aggregates
		current, err := e.stg.MarketState(job.MarketID)
		if err != nil {
			return err
		}
		result.Version = current.Version
		result.StateRoot = current.Root
		log.Debugw("vote already folded", "market", job.MarketID, "voteId", job.VoteID.String())
		return nil
	}

	updated, err := e.fold(job.MarketID, st, [][]byte{nullifier}, delta)
	if err != nil {
		return err
	}
	result.Version = updated.Version
	result.StateRoot = updated.Root
	return nil
}

// executeBatchAggregate folds a batch of accepted votes in one state
// transition and declassifies the packed tally summary of the resulting
// aggregates. Unfoldable or already folded payloads are skipped, matching
// the incremental rule vote by vote; a batch with nothing left to fold is
// a plain reveal of the current aggregates, which makes the lock time
// sweep idempotent.
func (e *Engine) executeBatchAggregate(job *storage.Job, result *storage.JobResult) error {
	if len(job.Payloads) > types.VoteBatchCapacity {
		job.Payloads = job.Payloads[:types.VoteBatchCapacity]
	}
	st, err := e.state(job.MarketID)
	if err != nil {
		return err
	}

	var combined [types.StateNumFields]uint64
	var nullifiers [][]byte
	for _, payload := range job.Payloads {
		vote, err := e.openVote(payload)
		if err != nil {
			log.Warnw("skipping unreadable batch payload", "market", job.MarketID, "error", err.Error())
			continue
		}
		delta, ok := circuits.VoteDelta(*vote)
		if !ok {
			continue
		}
		nullifier := marketstate.Nullifier(job.MarketID, vote.Voter, vote.Nonce)
		if st.HasNullifier(nullifier) {
			continue
		}
		for i := range combined {
			combined[i] += delta[i]
		}
		nullifiers = append(nullifiers, nullifier)
	}

	if len(nullifiers) > 0 {
		updated, err := e.fold(job.MarketID, st, nullifiers, combined)
		if err != nil {
			return err
		}
		result.Version = updated.Version
		result.StateRoot = updated.Root
		log.Infow("batch folded", "market", job.MarketID, "votes", len(nullifiers), "version", updated.Version)
	} else {
		current, err := e.stg.MarketState(job.MarketID)
		if err != nil {
			return err
		}
		result.Version = current.Version
		result.StateRoot = current.Root
	}

	// batch aggregation partially reveals the running aggregates
	tally, _, err := e.RevealTally(job.MarketID)
	if err != nil {
		return err
	}
	summary, err := circuits.Summarize(tally).MarshalBinary()
	if err != nil {
		return err
	}
	result.Revealed = summary
	return nil
}

// fold encrypts a delta vector, adds it onto the stored aggregates and
// commits vector and nullifiers to the state tree. The queue already
// serializes aggregation per market; should the stored version still move
// underneath (an out of band write), the fold is recomputed against the
// fresh vector instead of losing either update.
func (e *Engine) fold(marketID uint64, st *marketstate.State, nullifiers [][]byte, delta [types.StateNumFields]uint64) (*storage.MarketVotingState, error) {
	publicKey, _, err := e.stg.EncryptionKeys(marketID)
	if err != nil {
		return nil, fmt.Errorf("cannot load encryption keys: %w", err)
	}
	encrypted, err := elgamal.NewStateVector(e.curve).EncryptDelta(delta, publicKey)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt delta: %w", err)
	}

	nullifiersPending := true
	for {
		current, sv, err := e.currentVector(marketID)
		if err != nil {
			return nil, err
		}
		serialized := elgamal.NewStateVector(e.curve).Add(sv, encrypted).Serialize()
		if nullifiersPending {
			if err := st.Fold(current.Version+1, serialized, nullifiers...); err != nil {
				return nil, fmt.Errorf("cannot fold state tree: %w", err)
			}
			nullifiersPending = false
		} else {
			if err := st.SetAggregates(serialized); err != nil {
				return nil, fmt.Errorf("cannot update aggregates leaf: %w", err)
			}
		}
		root, err := st.Root()
		if err != nil {
			return nil, err
		}
		updated, err := e.stg.UpdateMarketState(marketID, current.Version, serialized, root)
		if errors.Is(err, storage.ErrVersionMismatch) {
			log.Warnw("stale state version, refolding", "market", marketID, "version", current.Version)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot store folded state: %w", err)
		}
		return updated, nil
	}
}
