package coordinator

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherbet/engine/crypto/ethereum"
	"github.com/cipherbet/engine/crypto/sealed"
	"github.com/cipherbet/engine/engine"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *engine.Engine, *storage.Storage) {
	database := metadb.NewTest(t)
	stg := storage.New(database)
	eng, err := engine.New(stg, database)
	qt.Assert(t, err, qt.IsNil)
	coord, err := New(stg, eng)
	qt.Assert(t, err, qt.IsNil)
	return coord, eng, stg
}

func newSigner(c *qt.C) *ethereum.SignKeys {
	k := ethereum.NewSignKeys()
	c.Assert(k.Generate(), qt.IsNil)
	return k
}

func sealVote(c *qt.C, eng *engine.Engine, v *types.VoteData) types.HexBytes {
	payload, err := engine.EncodeVotePayload(v)
	c.Assert(err, qt.IsNil)
	sealedVote, err := sealed.Seal(payload, eng.PublicKey())
	c.Assert(err, qt.IsNil)
	return sealedVote
}

// submit wraps the vote in a signed envelope mirroring its own routing
// fields and hands it to the coordinator.
func submit(c *qt.C, coord *Coordinator, eng *engine.Engine, signer *ethereum.SignKeys,
	reply types.HexBytes, vote types.VoteData,
) (types.HexBytes, error) {
	return submitAs(c, coord, eng, signer, reply, vote.MarketID, vote.Nonce, vote)
}

// submitAs lets the envelope routing fields diverge from the sealed ones,
// for tests exercising the binding checks.
func submitAs(c *qt.C, coord *Coordinator, eng *engine.Engine, signer *ethereum.SignKeys,
	reply types.HexBytes, marketID uint64, nonce types.HexBytes, vote types.VoteData,
) (types.HexBytes, error) {
	envelope := &VoteEnvelope{
		MarketID:       marketID,
		Voter:          signer.VoterID(),
		Nonce:          nonce,
		SealedVote:     sealVote(c, eng, &vote),
		ReplyPublicKey: reply,
	}
	sig, err := signer.SignEthereum(envelope.Digest())
	c.Assert(err, qt.IsNil)
	envelope.Signature = sig
	return coord.SubmitVote(envelope)
}

func authorize(c *qt.C, coord *Coordinator, signer *ethereum.SignKeys, op string, marketID uint64, outcome uint8) error {
	action := &AuthorityAction{MarketID: marketID, Op: op, Outcome: outcome}
	sig, err := signer.SignEthereum(action.Digest())
	c.Assert(err, qt.IsNil)
	action.Signature = sig
	return coord.Authorize(action)
}

func claim(c *qt.C, coord *Coordinator, signer *ethereum.SignKeys, marketID uint64, voteID, reply types.HexBytes) (types.HexBytes, error) {
	req := &ClaimRequest{MarketID: marketID, VoteID: voteID, ReplyPublicKey: reply}
	sig, err := signer.SignEthereum(req.Digest())
	c.Assert(err, qt.IsNil)
	req.Signature = sig
	return coord.ClaimPayout(req)
}

// drain runs queued jobs on the engine and applies their results, looping
// until both queues are empty.
func drain(c *qt.C, stg *storage.Storage, eng *engine.Engine, coord *Coordinator) {
	for {
		moved := false
		for {
			job, key, err := stg.NextJob()
			if errors.Is(err, storage.ErrNoMoreElements) {
				break
			}
			c.Assert(err, qt.IsNil)
			res := eng.ExecuteJob(job)
			c.Assert(stg.MarkJobDone(key, res), qt.IsNil)
			moved = true
		}
		for {
			res, key, err := stg.NextJobResult()
			if errors.Is(err, storage.ErrNoMoreElements) {
				break
			}
			c.Assert(err, qt.IsNil)
			c.Assert(coord.HandleResult(res), qt.IsNil)
			c.Assert(stg.MarkJobResultDone(key), qt.IsNil)
			moved = true
		}
		if !moved {
			return
		}
	}
}

func TestMarketLifecycle(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)

	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		MetadataHash:   util.RandomBytes(32),
		VotingEndsAt:   time.Now().Add(time.Hour),
		MaxStakeAmount: 10000,
		MaxVoters:      100,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(market.ID, qt.Equals, uint64(1))
	c.Assert(market.Status, qt.Equals, types.MarketActive)
	c.Assert(market.EncryptionKey, qt.IsNotNil)
	c.Assert(len(market.StateRoot) > 0, qt.IsTrue)

	yesVoter, noVoter := newSigner(c), newSigner(c)
	yesVoteID, err := submit(c, coord, eng, yesVoter, nil, types.VoteData{
		Voter:                yesVoter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteYes,
		StakeAmount:          8000,
		PredictedProbability: 80,
		ConvictionScore:      100,
		Timestamp:            1000,
		Nonce:                util.RandomBytes(16),
	})
	c.Assert(err, qt.IsNil)
	_, err = submit(c, coord, eng, noVoter, nil, types.VoteData{
		Voter:                noVoter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteNo,
		StakeAmount:          2000,
		PredictedProbability: 30,
		ConvictionScore:      50,
		Timestamp:            2000,
		Nonce:                util.RandomBytes(16),
	})
	c.Assert(err, qt.IsNil)
	drain(c, stg, eng, coord)

	position, err := stg.Position(yesVoteID)
	c.Assert(err, qt.IsNil)
	c.Assert(position.Status, qt.Equals, types.PositionAccepted)
	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.AcceptedVotes, qt.Equals, uint32(2))

	state, err := stg.MarketState(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(state.Version, qt.Equals, uint64(2))
	c.Assert(market.StateRoot.String(), qt.Equals, state.Root.String())

	// lock through a signed authority action
	c.Assert(authorize(c, coord, authority, OpLock, market.ID, 0), qt.IsNil)
	drain(c, stg, eng, coord)
	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.Status, qt.Equals, types.MarketLocked)
	c.Assert(market.UnderReview, qt.IsFalse)

	// the lock time sweep found every vote already folded, so the version
	// did not advance and the final snapshot prices the same aggregates
	odds, err := stg.LatestOdds(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(odds.Version, qt.Equals, uint64(2))
	c.Assert(odds.Odds.YesProbability, qt.Equals, uint8(72))
	c.Assert(odds.Odds.NoProbability, qt.Equals, uint8(18))
	c.Assert(odds.Odds.Participants, qt.Equals, uint32(2))
	c.Assert(odds.Odds.HighConfidence, qt.IsTrue)
	c.Assert(odds.Odds.AvgConviction, qt.Equals, uint8(90))

	// no more submissions once locked
	_, err = submit(c, coord, eng, newSigner(c), nil, types.VoteData{
		MarketID:    market.ID,
		Choice:      types.VoteYes,
		StakeAmount: 1,
		Timestamp:   3000,
		Nonce:       util.RandomBytes(16),
	})
	c.Assert(err, qt.ErrorMatches, "market .* is not accepting votes")

	c.Assert(authorize(c, coord, authority, OpResolve, market.ID, types.OutcomeYes), qt.IsNil)
	settlement, err := stg.Settlement(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(settlement.Outcome, qt.Equals, types.OutcomeYes)
	c.Assert(settlement.TotalWinningStake, qt.Equals, uint64(8000))
	c.Assert(settlement.TotalLosingStake, qt.Equals, uint64(2000))
	c.Assert(settlement.Tally.Participants, qt.Equals, uint32(2))
	c.Assert(settlement.Tally.WeightedProbabilitySum, qt.Equals, uint64(700000))
	c.Assert(settlement.Summary, qt.HasLen, 32)

	// resolving again with the same outcome is a no-op, flipping it is not
	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeYes), qt.IsNil)
	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeNo),
		qt.ErrorMatches, "market already resolved with a different outcome")

	c.Assert(authorize(c, coord, authority, OpFinalize, market.ID, 0), qt.IsNil)
	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.Status, qt.Equals, types.MarketSettled)
}

func TestSubmitVoteChecks(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt: time.Now().Add(time.Hour),
		MaxVoters:    1,
	})
	c.Assert(err, qt.IsNil)

	voter := newSigner(c)
	vote := types.VoteData{
		Voter:                voter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteYes,
		StakeAmount:          10,
		PredictedProbability: 60,
		ConvictionScore:      300,
		Timestamp:            1000,
		Nonce:                util.RandomBytes(16),
	}

	// unknown market
	unknown := vote
	unknown.MarketID = 99
	_, err = submit(c, coord, eng, voter, nil, unknown)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	// zero nonce
	_, err = submitAs(c, coord, eng, voter, nil, market.ID, make([]byte, 16), vote)
	c.Assert(err, qt.ErrorMatches, "nonce must be .* nonzero bytes")

	// signature from a key that is not the declared voter
	envelope := &VoteEnvelope{
		MarketID:   market.ID,
		Voter:      voter.VoterID(),
		Nonce:      vote.Nonce,
		SealedVote: sealVote(c, eng, &vote),
	}
	sig, err := newSigner(c).SignEthereum(envelope.Digest())
	c.Assert(err, qt.IsNil)
	envelope.Signature = sig
	_, err = coord.SubmitVote(envelope)
	c.Assert(err, qt.ErrorMatches, "envelope signer does not match the declared voter")

	// a valid submission burns its nonce
	_, err = submit(c, coord, eng, voter, nil, vote)
	c.Assert(err, qt.IsNil)
	_, err = submit(c, coord, eng, voter, nil, vote)
	c.Assert(err, qt.ErrorMatches, "nonce already used for this market")
	drain(c, stg, eng, coord)

	// the accepted voter cap is enforced on later envelopes
	other := newSigner(c)
	otherVote := vote
	otherVote.Voter = other.VoterID()
	otherVote.Nonce = util.RandomBytes(16)
	_, err = submit(c, coord, eng, other, nil, otherVote)
	c.Assert(err, qt.ErrorMatches, "market .* is full")
}

func TestVoteVerdicts(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt: time.Now().Add(time.Hour),
	})
	c.Assert(err, qt.IsNil)

	reply, err := sealed.GenerateIdentity()
	c.Assert(err, qt.IsNil)

	// zero stake fails validation inside the engine
	badVoter := newSigner(c)
	badID, err := submit(c, coord, eng, badVoter, reply.PublicKey(), types.VoteData{
		Voter:                badVoter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteYes,
		StakeAmount:          0,
		PredictedProbability: 50,
		ConvictionScore:      100,
		Timestamp:            1000,
		Nonce:                util.RandomBytes(16),
	})
	c.Assert(err, qt.IsNil)

	// sealed payload routed to a different market than the envelope
	crossVoter := newSigner(c)
	crossVote := types.VoteData{
		Voter:                crossVoter.VoterID(),
		MarketID:             999,
		Choice:               types.VoteYes,
		StakeAmount:          10,
		PredictedProbability: 50,
		ConvictionScore:      100,
		Timestamp:            2000,
		Nonce:                util.RandomBytes(16),
	}
	crossID, err := submitAs(c, coord, eng, crossVoter, nil, market.ID, crossVote.Nonce, crossVote)
	c.Assert(err, qt.IsNil)

	// sealed nonce disagrees with the envelope nonce
	swapVoter := newSigner(c)
	swapVote := types.VoteData{
		Voter:                swapVoter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteYes,
		StakeAmount:          10,
		PredictedProbability: 50,
		ConvictionScore:      100,
		Timestamp:            3000,
		Nonce:                util.RandomBytes(16),
	}
	swapID, err := submitAs(c, coord, eng, swapVoter, nil, market.ID, util.RandomBytes(16), swapVote)
	c.Assert(err, qt.IsNil)

	goodVoter := newSigner(c)
	goodID, err := submit(c, coord, eng, goodVoter, reply.PublicKey(), types.VoteData{
		Voter:                goodVoter.VoterID(),
		MarketID:             market.ID,
		Choice:               types.VoteNo,
		StakeAmount:          10,
		PredictedProbability: 50,
		ConvictionScore:      100,
		Timestamp:            4000,
		Nonce:                util.RandomBytes(16),
	})
	c.Assert(err, qt.IsNil)
	drain(c, stg, eng, coord)

	for _, rejected := range []types.HexBytes{badID, crossID, swapID} {
		p, err := stg.Position(rejected)
		c.Assert(err, qt.IsNil)
		c.Assert(p.Status, qt.Equals, types.PositionRejected)
	}
	good, err := stg.Position(goodID)
	c.Assert(err, qt.IsNil)
	c.Assert(good.Status, qt.Equals, types.PositionAccepted)

	// only the accepted vote was counted or folded
	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.AcceptedVotes, qt.Equals, uint32(1))
	state, err := stg.MarketState(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(state.Version, qt.Equals, uint64(1))

	// both voters can open their sealed verdicts
	var verdict types.VerdictReport
	plain, err := reply.Open(good.SealedVerdict)
	c.Assert(err, qt.IsNil)
	c.Assert(cbor.Unmarshal(plain, &verdict), qt.IsNil)
	c.Assert(verdict.Valid, qt.IsTrue)

	bad, err := stg.Position(badID)
	c.Assert(err, qt.IsNil)
	plain, err = reply.Open(bad.SealedVerdict)
	c.Assert(err, qt.IsNil)
	c.Assert(cbor.Unmarshal(plain, &verdict), qt.IsNil)
	c.Assert(verdict.Valid, qt.IsFalse)
}

func TestClaimPayouts(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt:        time.Now().Add(time.Hour),
		MaxStakeAmount:      1000,
		MaxVoters:           10,
		AccuracyBonusPool:   50,
		ConvictionBonusPool: 200,
	})
	c.Assert(err, qt.IsNil)

	type voterCase struct {
		signer *ethereum.SignKeys
		vote   types.VoteData
		voteID types.HexBytes
		payout uint64
	}
	voters := []*voterCase{
		// stake 100 on yes: losing share 60, accuracy 40, conviction 100
		{signer: newSigner(c), vote: types.VoteData{
			Choice: types.VoteYes, StakeAmount: 100, PredictedProbability: 80,
			ConvictionScore: 500, Timestamp: 1000,
		}, payout: 300},
		// stake 400 on yes: losing share 240, accuracy 30, conviction 200
		{signer: newSigner(c), vote: types.VoteData{
			Choice: types.VoteYes, StakeAmount: 400, PredictedProbability: 60,
			ConvictionScore: 1000, Timestamp: 2000,
		}, payout: 870},
		// lost, no partial refunds
		{signer: newSigner(c), vote: types.VoteData{
			Choice: types.VoteNo, StakeAmount: 300, PredictedProbability: 40,
			ConvictionScore: 200, Timestamp: 3000,
		}, payout: 0},
	}
	for _, v := range voters {
		v.vote.Voter = v.signer.VoterID()
		v.vote.MarketID = market.ID
		v.vote.Nonce = util.RandomBytes(16)
		v.voteID, err = submit(c, coord, eng, v.signer, nil, v.vote)
		c.Assert(err, qt.IsNil)
	}
	drain(c, stg, eng, coord)

	// no payouts before resolution
	reply, err := sealed.GenerateIdentity()
	c.Assert(err, qt.IsNil)
	c.Assert(coord.LockMarket(market.ID), qt.IsNil)
	drain(c, stg, eng, coord)
	_, err = claim(c, coord, voters[0].signer, market.ID, voters[0].voteID, reply.PublicKey())
	c.Assert(err, qt.ErrorMatches, "market is locked, payouts are not open")

	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeYes), qt.IsNil)

	// nobody but the owner can claim a position
	_, err = claim(c, coord, voters[1].signer, market.ID, voters[0].voteID, reply.PublicKey())
	c.Assert(err, qt.ErrorMatches, "claim signer does not own the position")

	for _, v := range voters {
		claimID, err := claim(c, coord, v.signer, market.ID, v.voteID, reply.PublicKey())
		c.Assert(err, qt.IsNil)
		drain(c, stg, eng, coord)

		position, err := coord.PositionByClaim(claimID)
		c.Assert(err, qt.IsNil)
		c.Assert(position.Status, qt.Equals, types.PositionClaimed)
		c.Assert(len(position.SealedPayout) > 0, qt.IsTrue)

		plain, err := reply.Open(position.SealedPayout)
		c.Assert(err, qt.IsNil)
		var report types.PayoutReport
		c.Assert(cbor.Unmarshal(plain, &report), qt.IsNil)
		c.Assert(report.Amount, qt.Equals, v.payout)
		c.Assert(report.Outcome, qt.Equals, types.OutcomeYes)
		c.Assert(report.MarketID, qt.Equals, market.ID)

		// the claim gate never opens twice
		_, err = claim(c, coord, v.signer, market.ID, v.voteID, reply.PublicKey())
		c.Assert(err, qt.ErrorIs, storage.ErrKeyAlreadyExists)
	}
}

func TestDetectionReview(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt: time.Now().Add(time.Hour),
		MaxVoters:    10,
	})
	c.Assert(err, qt.IsNil)

	// four votes sharing timestamp, probability and conviction trip every
	// collusion signal
	for i := 0; i < 4; i++ {
		voter := newSigner(c)
		_, err := submit(c, coord, eng, voter, nil, types.VoteData{
			Voter:                voter.VoterID(),
			MarketID:             market.ID,
			Choice:               types.VoteYes,
			StakeAmount:          10,
			PredictedProbability: 50,
			ConvictionScore:      500,
			Timestamp:            1700000000,
			Nonce:                util.RandomBytes(16),
		})
		c.Assert(err, qt.IsNil)
	}
	drain(c, stg, eng, coord)
	c.Assert(coord.LockMarket(market.ID), qt.IsNil)
	drain(c, stg, eng, coord)

	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.UnderReview, qt.IsTrue)
	c.Assert(market.ReviewScore, qt.Equals, uint8(99))

	// resolution is withheld until the authority clears the review
	err = coord.ResolveMarket(market.ID, types.OutcomeYes)
	c.Assert(err, qt.ErrorMatches, "market is under review, resolution is withheld")
	c.Assert(authorize(c, coord, authority, OpClearReview, market.ID, 0), qt.IsNil)
	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeYes), qt.IsNil)

	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.Status, qt.Equals, types.MarketResolved)
	c.Assert(market.ReviewScore, qt.Equals, uint8(99))
}

func TestCancelRefunds(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt: time.Now().Add(time.Hour),
	})
	c.Assert(err, qt.IsNil)

	var voteIDs []types.HexBytes
	for i := 0; i < 2; i++ {
		voter := newSigner(c)
		voteID, err := submit(c, coord, eng, voter, nil, types.VoteData{
			Voter:                voter.VoterID(),
			MarketID:             market.ID,
			Choice:               types.VoteNo,
			StakeAmount:          10,
			PredictedProbability: 40,
			ConvictionScore:      100,
			Timestamp:            uint64(1000 * (i + 1)),
			Nonce:                util.RandomBytes(16),
		})
		c.Assert(err, qt.IsNil)
		voteIDs = append(voteIDs, voteID)
	}
	drain(c, stg, eng, coord)

	// a stranger cannot cancel
	err = authorize(c, coord, newSigner(c), OpCancel, market.ID, 0)
	c.Assert(err, qt.ErrorMatches, "signer is not the market authority")

	c.Assert(authorize(c, coord, authority, OpCancel, market.ID, 0), qt.IsNil)
	market, err = stg.Market(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(market.Status, qt.Equals, types.MarketCancelled)
	for _, voteID := range voteIDs {
		p, err := stg.Position(voteID)
		c.Assert(err, qt.IsNil)
		c.Assert(p.Status, qt.Equals, types.PositionRefundable)
	}

	// cancelled markets accept nothing
	late := newSigner(c)
	_, err = submit(c, coord, eng, late, nil, types.VoteData{
		Voter:       late.VoterID(),
		MarketID:    market.ID,
		Choice:      types.VoteYes,
		StakeAmount: 1,
		Timestamp:   5000,
		Nonce:       util.RandomBytes(16),
	})
	c.Assert(err, qt.ErrorMatches, "market .* is not accepting votes")
	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeYes),
		qt.ErrorMatches, "market is cancelled, not locked")
}

// TestBatchSweepRecovers drops the incremental aggregation jobs on the
// floor and checks the lock time sweep folds the accepted votes anyway.
func TestBatchSweepRecovers(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)
	authority := newSigner(c)
	market, err := coord.CreateMarket(authority.Address(), &types.MarketRules{
		VotingEndsAt:   time.Now().Add(time.Hour),
		MaxStakeAmount: 10000,
		MaxVoters:      100,
	})
	c.Assert(err, qt.IsNil)

	votes := []types.VoteData{
		{Choice: types.VoteYes, StakeAmount: 8000, PredictedProbability: 80, ConvictionScore: 100, Timestamp: 1000},
		{Choice: types.VoteNo, StakeAmount: 2000, PredictedProbability: 30, ConvictionScore: 50, Timestamp: 2000},
	}
	for i := range votes {
		voter := newSigner(c)
		votes[i].Voter = voter.VoterID()
		votes[i].MarketID = market.ID
		votes[i].Nonce = util.RandomBytes(16)
		_, err := submit(c, coord, eng, voter, nil, votes[i])
		c.Assert(err, qt.IsNil)
	}

	// run the validations, then lose every aggregation job
	for {
		job, key, err := stg.NextJob()
		if errors.Is(err, storage.ErrNoMoreElements) {
			break
		}
		c.Assert(err, qt.IsNil)
		res := eng.ExecuteJob(job)
		c.Assert(stg.MarkJobDone(key, res), qt.IsNil)
	}
	for {
		res, key, err := stg.NextJobResult()
		if errors.Is(err, storage.ErrNoMoreElements) {
			break
		}
		c.Assert(err, qt.IsNil)
		c.Assert(coord.HandleResult(res), qt.IsNil)
		c.Assert(stg.MarkJobResultDone(key), qt.IsNil)
	}
	for {
		job, key, err := stg.NextJob()
		if errors.Is(err, storage.ErrNoMoreElements) {
			break
		}
		c.Assert(err, qt.IsNil)
		c.Assert(job.Kind, qt.Equals, storage.JobAggregate)
		c.Assert(stg.MarkJobDone(key, &storage.JobResult{
			JobID:    job.ID,
			Kind:     job.Kind,
			MarketID: job.MarketID,
			VoteID:   job.VoteID,
			Error:    "computation lost",
		}), qt.IsNil)
	}
	drain(c, stg, eng, coord)

	// nothing was folded yet
	state, err := stg.MarketState(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(state.Version, qt.Equals, uint64(0))

	c.Assert(coord.LockMarket(market.ID), qt.IsNil)
	drain(c, stg, eng, coord)

	// the sweep folded both votes in one pass
	state, err = stg.MarketState(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(state.Version, qt.Equals, uint64(1))
	odds, err := stg.LatestOdds(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(odds.Odds.YesProbability, qt.Equals, uint8(72))
	c.Assert(odds.Odds.Participants, qt.Equals, uint32(2))

	c.Assert(coord.ResolveMarket(market.ID, types.OutcomeYes), qt.IsNil)
	settlement, err := stg.Settlement(market.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(settlement.Tally.Participants, qt.Equals, uint32(2))
	c.Assert(settlement.TotalWinningStake, qt.Equals, uint64(8000))
}

// TestCallbackGuards drives HandleResult directly with stale and mismatched
// results to check the idempotence and claim gate re-checks.
func TestCallbackGuards(t *testing.T) {
	c := qt.New(t)
	coord, _, stg := newTestCoordinator(t)

	voteID := util.RandomBytes(32)
	c.Assert(stg.SetPosition(&types.Position{
		VoteID:   voteID,
		MarketID: 7,
		Voter:    util.RandomBytes(32),
		Status:   types.PositionPending,
	}), qt.IsNil)

	// a failed validation rejects the position
	c.Assert(coord.HandleResult(&storage.JobResult{
		JobID:    storage.NewJobID(),
		Kind:     storage.JobValidate,
		MarketID: 7,
		VoteID:   voteID,
		Error:    "unsealing failed",
	}), qt.IsNil)
	p, err := stg.Position(voteID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PositionRejected)

	// a replayed verdict leaves the settled position untouched
	c.Assert(coord.HandleResult(&storage.JobResult{
		JobID:    storage.NewJobID(),
		Kind:     storage.JobValidate,
		MarketID: 7,
		VoteID:   voteID,
		Revealed: types.HexBytes{1},
	}), qt.IsNil)
	p, err = stg.Position(voteID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PositionRejected)

	// claim gate: only the result carrying the pending claim id settles it
	claimedID := util.RandomBytes(32)
	c.Assert(stg.SetPosition(&types.Position{
		VoteID:   claimedID,
		MarketID: 7,
		Voter:    util.RandomBytes(32),
		Status:   types.PositionAccepted,
	}), qt.IsNil)
	claimID := storage.NewJobID()
	_, err = stg.RequestClaim(claimedID, claimID)
	c.Assert(err, qt.IsNil)

	err = coord.HandleResult(&storage.JobResult{
		JobID:  storage.NewJobID(), // not the pending claim
		Kind:   storage.JobPayout,
		VoteID: claimedID,
		Sealed: util.RandomBytes(64),
	})
	c.Assert(err, qt.ErrorMatches, ".*payout result does not match the pending claim")
	p, err = stg.Position(claimedID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PositionClaimRequested)
	c.Assert(len(p.SealedPayout), qt.Equals, 0)

	// a failed payout reopens the gate for a retry
	c.Assert(coord.HandleResult(&storage.JobResult{
		JobID:  claimID,
		Kind:   storage.JobPayout,
		VoteID: claimedID,
		Error:  "computation lost",
	}), qt.IsNil)
	p, err = stg.Position(claimedID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PositionAccepted)
	c.Assert(len(p.ClaimID), qt.Equals, 0)

	// the retried claim settles with its own result
	retryID := storage.NewJobID()
	_, err = stg.RequestClaim(claimedID, retryID)
	c.Assert(err, qt.IsNil)
	sealedPayout := util.RandomBytes(64)
	c.Assert(coord.HandleResult(&storage.JobResult{
		JobID:  retryID,
		Kind:   storage.JobPayout,
		VoteID: claimedID,
		Sealed: sealedPayout,
	}), qt.IsNil)
	p, err = stg.Position(claimedID)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PositionClaimed)
	c.Assert(p.SealedPayout, qt.DeepEquals, types.HexBytes(sealedPayout))
}

func TestRiskRoundTrip(t *testing.T) {
	c := qt.New(t)
	coord, eng, stg := newTestCoordinator(t)

	reply, err := sealed.GenerateIdentity()
	c.Assert(err, qt.IsNil)
	payload, err := engine.EncodeRiskRequest(&types.RiskRequest{
		Profile: &types.RiskProfile{
			Returns: [types.ReturnHistorySlots]int64{100, -50, 200, 30, -10},
			Count:   5,
		},
	})
	c.Assert(err, qt.IsNil)
	sealedReq, err := sealed.Seal(payload, eng.PublicKey())
	c.Assert(err, qt.IsNil)

	jobID, err := coord.SubmitRisk(sealedReq, reply.PublicKey())
	c.Assert(err, qt.IsNil)
	drain(c, stg, eng, coord)

	receipt, err := coord.RiskReceipt(jobID)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Failed(), qt.IsFalse)

	plain, err := reply.Open(receipt.Sealed)
	c.Assert(err, qt.IsNil)
	var report types.RiskReport
	c.Assert(cbor.Unmarshal(plain, &report), qt.IsNil)
	c.Assert(report.Metrics, qt.IsNotNil)
	c.Assert(report.Metrics.Mean, qt.Equals, int64(54))
	c.Assert(report.Metrics.Volatility, qt.Equals, int64(88))
}
