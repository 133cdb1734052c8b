package coordinator

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// CreateMarket provisions a new market. The engine generates its
// homomorphic keypair and genesis encrypted state; the plaintext record
// then enters the ledger with status Active.
func (c *Coordinator) CreateMarket(authority common.Address, rules *types.MarketRules) (*types.Market, error) {
	if rules == nil {
		return nil, fmt.Errorf("market rules are required")
	}
	if !rules.VotingEndsAt.After(time.Now()) {
		return nil, fmt.Errorf("voting deadline must be in the future")
	}
	marketID, err := c.stg.NewMarketID()
	if err != nil {
		return nil, fmt.Errorf("cannot allocate market id: %w", err)
	}
	market := &types.Market{
		ID:        marketID,
		Status:    types.MarketActive,
		Authority: authority,
		Rules:     rules,
		CreatedAt: time.Now(),
	}
	key, root, err := c.engine.InitializeMarket(market)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize market state: %w", err)
	}
	market.EncryptionKey = key
	market.StateRoot = root
	if err := c.stg.SetMarket(market); err != nil {
		return nil, fmt.Errorf("cannot store market: %w", err)
	}
	log.Infow("market created",
		"market", market.ID,
		"authority", authority.Hex(),
		"votingEndsAt", rules.VotingEndsAt.String(),
	)
	return market, nil
}

// LockMarket closes a market's voting phase. Called by the authority or by
// the deadline monitor once VotingEndsAt passes. Locking queues the closing
// computations: a batch sweep over the accepted sealed votes, so any fold
// lost to a dropped aggregation job lands before settlement, and a
// manipulation scan over the recent vote window. The final odds snapshot is
// queued once the sweep completes.
func (c *Coordinator) LockMarket(marketID uint64) error {
	market, err := c.stg.UpdateMarket(marketID, func(m *types.Market) error {
		if m.Status != types.MarketActive {
			return fmt.Errorf("market is %s, not active", m.Status)
		}
		m.Status = types.MarketLocked
		m.LockedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}
	positions, err := c.stg.PositionsByMarket(marketID)
	if err != nil {
		return fmt.Errorf("cannot list positions: %w", err)
	}
	var sealed []types.HexBytes
	for _, p := range positions {
		if p.Status != types.PositionAccepted {
			continue
		}
		sealed = append(sealed, p.SealedVote)
		if len(sealed) == types.VoteBatchCapacity {
			break
		}
	}
	if len(sealed) > 0 {
		if err := c.queueJob(&storage.Job{
			Kind:     storage.JobBatchAggregate,
			MarketID: marketID,
			Payloads: sealed,
		}); err != nil {
			return err
		}
	} else {
		if err := c.queueJob(&storage.Job{Kind: storage.JobOdds, MarketID: marketID}); err != nil {
			return err
		}
	}
	if market.AcceptedVotes > 0 {
		if err := c.queueJob(&storage.Job{Kind: storage.JobDetect, MarketID: marketID}); err != nil {
			return err
		}
	}
	log.Infow("market locked",
		"market", marketID,
		"acceptedVotes", market.AcceptedVotes,
		"sweptVotes", len(sealed),
	)
	return nil
}

// ResolveMarket settles a locked market with its final outcome. The first
// call reveals the tally and persists the settlement; calling it again with
// the same outcome is a no-op, so a resolution interrupted between the
// settlement write and the status flip completes on retry.
func (c *Coordinator) ResolveMarket(marketID uint64, outcome uint8) error {
	if outcome != types.OutcomeYes && outcome != types.OutcomeNo {
		return fmt.Errorf("outcome must be yes or no")
	}
	market, err := c.stg.Market(marketID)
	if err != nil {
		return err
	}
	if market.UnderReview {
		return fmt.Errorf("market is under review, resolution is withheld")
	}
	switch market.Status {
	case types.MarketLocked:
	case types.MarketResolved:
		if market.Outcome == outcome {
			return nil
		}
		return fmt.Errorf("market already resolved with a different outcome")
	default:
		return fmt.Errorf("market is %s, not locked", market.Status)
	}
	settlement, err := c.stg.Settlement(marketID)
	switch {
	case err == nil:
		if settlement.Outcome != outcome {
			return fmt.Errorf("market already settled with a different outcome")
		}
	case errors.Is(err, storage.ErrNotFound):
		if settlement, err = c.settle(market, outcome); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot load settlement: %w", err)
	}
	if _, err := c.stg.UpdateMarket(marketID, func(m *types.Market) error {
		if m.Status != types.MarketLocked && m.Status != types.MarketResolved {
			return fmt.Errorf("market is %s, not locked", m.Status)
		}
		m.Status = types.MarketResolved
		m.Outcome = outcome
		m.ResolvedAt = time.Now()
		return nil
	}); err != nil {
		return err
	}
	log.Infow("market resolved",
		"market", marketID,
		"outcome", outcome,
		"winningStake", settlement.TotalWinningStake,
		"losingStake", settlement.TotalLosingStake,
	)
	return nil
}

// settle reveals the final tally and derives the payout pools from it.
func (c *Coordinator) settle(market *types.Market, outcome uint8) (*types.Settlement, error) {
	tally, root, err := c.engine.RevealTally(market.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot reveal final tally: %w", err)
	}
	summary, err := circuits.Summarize(tally).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot pack tally summary: %w", err)
	}
	settlement := &types.Settlement{
		MarketID: market.ID,
		Outcome:  outcome,
		Tally:    tally,
		Summary:  summary,
	}
	if outcome == types.OutcomeYes {
		settlement.TotalWinningStake = tally.YesStake
		settlement.TotalLosingStake = tally.NoStake
	} else {
		settlement.TotalWinningStake = tally.NoStake
		settlement.TotalLosingStake = tally.YesStake
	}
	if market.Rules != nil {
		settlement.AccuracyBonusPool = market.Rules.AccuracyBonusPool
		settlement.ConvictionBonusPool = market.Rules.ConvictionBonusPool
	}
	if err := c.stg.SetSettlement(settlement); err != nil {
		return nil, fmt.Errorf("cannot store settlement: %w", err)
	}
	log.Infow("final tally revealed",
		"market", market.ID,
		"participants", tally.Participants,
		"root", root.String(),
	)
	return settlement, nil
}

// CancelMarket aborts a market. Every live position becomes refundable;
// rejected positions stay rejected since their stake was never counted.
func (c *Coordinator) CancelMarket(marketID uint64) error {
	if _, err := c.stg.UpdateMarket(marketID, func(m *types.Market) error {
		if m.Status != types.MarketActive && m.Status != types.MarketLocked {
			return fmt.Errorf("market is %s, cannot cancel", m.Status)
		}
		m.Status = types.MarketCancelled
		return nil
	}); err != nil {
		return err
	}
	positions, err := c.stg.PositionsByMarket(marketID)
	if err != nil {
		return fmt.Errorf("cannot list positions: %w", err)
	}
	refundable := 0
	for _, p := range positions {
		if p.Status == types.PositionRejected {
			continue
		}
		if _, err := c.stg.UpdatePosition(p.VoteID, func(p *types.Position) error {
			p.Status = types.PositionRefundable
			return nil
		}); err != nil {
			return fmt.Errorf("cannot refund position %s: %w", p.VoteID.String(), err)
		}
		refundable++
	}
	log.Infow("market cancelled", "market", marketID, "refundablePositions", refundable)
	return nil
}

// FinalizeMarket closes the books on a resolved market.
func (c *Coordinator) FinalizeMarket(marketID uint64) error {
	if _, err := c.stg.UpdateMarket(marketID, func(m *types.Market) error {
		if m.Status != types.MarketResolved {
			return fmt.Errorf("market is %s, not resolved", m.Status)
		}
		m.Status = types.MarketSettled
		return nil
	}); err != nil {
		return err
	}
	log.Infow("market settled", "market", marketID)
	return nil
}

// ClearReview lifts a manipulation review after authority inspection. The
// recorded score stays on the market for audit.
func (c *Coordinator) ClearReview(marketID uint64) error {
	if _, err := c.stg.UpdateMarket(marketID, func(m *types.Market) error {
		if !m.UnderReview {
			return fmt.Errorf("market is not under review")
		}
		m.UnderReview = false
		return nil
	}); err != nil {
		return err
	}
	log.Infow("market review cleared", "market", marketID)
	return nil
}
