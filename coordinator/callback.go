package coordinator

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// reviewThreshold is the detection score above which a market's resolution
// is withheld pending authority review.
const reviewThreshold = 75

// errAlreadySettled marks a result whose record moved on before the result
// arrived. The result is consumed without touching the record.
var errAlreadySettled = errors.New("record already settled")

// HandleResult applies one engine result to the ledger records. Every path
// is idempotent: a result delivered twice finds its record already settled
// and leaves it untouched.
func (c *Coordinator) HandleResult(res *storage.JobResult) error {
	if res == nil {
		return fmt.Errorf("nil job result")
	}
	switch res.Kind {
	case storage.JobValidate:
		return c.applyVerdict(res)
	case storage.JobAggregate, storage.JobBatchAggregate:
		return c.applyAggregate(res)
	case storage.JobOdds:
		return c.applyOdds(res)
	case storage.JobPayout:
		return c.applyPayout(res)
	case storage.JobDetect:
		return c.applyDetection(res)
	case storage.JobRisk:
		return c.stg.SetRiskReceipt(res)
	default:
		return fmt.Errorf("unknown job result kind %d", res.Kind)
	}
}

// applyVerdict settles a pending position with its validation verdict. An
// accepted vote enters the accepted window, bumps the market counter and
// gets its aggregation job; a rejected vote only receives its sealed
// verdict and its stake is never counted. A failed validate job counts as
// rejection.
func (c *Coordinator) applyVerdict(res *storage.JobResult) error {
	accepted := !res.Failed() && len(res.Revealed) == 1 && res.Revealed[0] == 1
	var sealedVote types.HexBytes
	if _, err := c.stg.UpdatePosition(res.VoteID, func(p *types.Position) error {
		if p.Status != types.PositionPending {
			return errAlreadySettled
		}
		p.SealedVerdict = res.Sealed
		if !accepted {
			p.Status = types.PositionRejected
			return nil
		}
		p.Status = types.PositionAccepted
		sealedVote = p.SealedVote
		return nil
	}); err != nil {
		if errors.Is(err, errAlreadySettled) {
			log.Debugw("verdict for a settled position, skipping",
				"voteId", res.VoteID.String(),
			)
			return nil
		}
		return fmt.Errorf("cannot settle position %s: %w", res.VoteID.String(), err)
	}
	if !accepted {
		log.Debugw("vote rejected",
			"market", res.MarketID,
			"voteId", res.VoteID.String(),
			"failed", res.Failed(),
		)
		return nil
	}
	if err := c.stg.PushAcceptedVote(res.MarketID, sealedVote); err != nil {
		return fmt.Errorf("cannot extend accepted vote window: %w", err)
	}
	if _, err := c.stg.UpdateMarket(res.MarketID, func(m *types.Market) error {
		m.AcceptedVotes++
		return nil
	}); err != nil {
		return fmt.Errorf("cannot count accepted vote: %w", err)
	}
	return c.queueJob(&storage.Job{
		Kind:     storage.JobAggregate,
		MarketID: res.MarketID,
		VoteID:   res.VoteID,
		Payload:  sealedVote,
	})
}

// applyAggregate publishes the advanced state root on the market record.
// The encrypted vector itself was already persisted by the engine under the
// version CAS. The lock time batch sweep is always followed by the final
// odds snapshot.
func (c *Coordinator) applyAggregate(res *storage.JobResult) error {
	if res.Failed() {
		log.Warnw("aggregation failed",
			"market", res.MarketID,
			"voteId", res.VoteID.String(),
			"error", res.Error,
		)
	} else {
		if _, err := c.stg.UpdateMarket(res.MarketID, func(m *types.Market) error {
			m.StateRoot = res.StateRoot
			return nil
		}); err != nil {
			return fmt.Errorf("cannot publish state root: %w", err)
		}
	}
	if res.Kind == storage.JobBatchAggregate {
		return c.queueJob(&storage.Job{Kind: storage.JobOdds, MarketID: res.MarketID})
	}
	return nil
}

// applyOdds only logs: the engine persisted the snapshot itself, bound to
// the state version it was derived from.
func (c *Coordinator) applyOdds(res *storage.JobResult) error {
	if res.Failed() {
		log.Warnw("odds computation failed",
			"market", res.MarketID,
			"error", res.Error,
		)
		return nil
	}
	log.Infow("odds snapshot published",
		"market", res.MarketID,
		"version", res.Version,
	)
	return nil
}

// applyPayout stores the sealed payout behind the claim gate. The gate is
// re-checked here: only the position whose pending claim id matches the
// result may settle, so a stale or duplicated result can never produce a
// second payout. A failed computation reopens the gate for a retry.
func (c *Coordinator) applyPayout(res *storage.JobResult) error {
	if res.Failed() {
		if _, err := c.stg.UpdatePosition(res.VoteID, func(p *types.Position) error {
			if p.Status != types.PositionClaimRequested || !bytes.Equal(p.ClaimID, res.JobID) {
				return errAlreadySettled
			}
			p.Status = types.PositionAccepted
			p.ClaimID = nil
			return nil
		}); err != nil && !errors.Is(err, errAlreadySettled) {
			return fmt.Errorf("cannot reopen claim gate: %w", err)
		}
		log.Warnw("payout computation failed, claim gate reopened",
			"voteId", res.VoteID.String(),
			"claimId", res.JobID.String(),
			"error", res.Error,
		)
		return nil
	}
	if _, err := c.stg.UpdatePosition(res.VoteID, func(p *types.Position) error {
		if p.Status != types.PositionClaimRequested {
			return fmt.Errorf("position is %s, not awaiting a payout", p.Status)
		}
		if !bytes.Equal(p.ClaimID, res.JobID) {
			return fmt.Errorf("payout result does not match the pending claim")
		}
		p.Status = types.PositionClaimed
		p.SealedPayout = res.Sealed
		return nil
	}); err != nil {
		return fmt.Errorf("cannot settle claim %s: %w", res.JobID.String(), err)
	}
	log.Infow("claim settled",
		"market", res.MarketID,
		"voteId", res.VoteID.String(),
		"claimId", res.JobID.String(),
	)
	return nil
}

// applyDetection records the suspicion score. A score above the review
// threshold flags the market, which blocks resolution until the authority
// clears it.
func (c *Coordinator) applyDetection(res *storage.JobResult) error {
	if res.Failed() {
		log.Warnw("manipulation detection failed",
			"market", res.MarketID,
			"error", res.Error,
		)
		return nil
	}
	if len(res.Revealed) != 1 {
		return fmt.Errorf("malformed detection score")
	}
	score := res.Revealed[0]
	if _, err := c.stg.UpdateMarket(res.MarketID, func(m *types.Market) error {
		m.ReviewScore = score
		if score > reviewThreshold {
			m.UnderReview = true
		}
		return nil
	}); err != nil {
		return fmt.Errorf("cannot record detection score: %w", err)
	}
	if score > reviewThreshold {
		log.Warnw("market flagged for review",
			"market", res.MarketID,
			"score", score,
		)
	}
	return nil
}
