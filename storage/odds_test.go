package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

func TestOddsSnapshots(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	_, err := st.LatestOdds(2)
	c.Assert(err, qt.Equals, ErrNotFound)

	for version := uint64(0); version < 3; version++ {
		c.Assert(st.PushOddsSnapshot(&types.OddsSnapshot{
			MarketID: 2,
			Version:  version,
			Odds: &types.OddsInfo{
				YesProbability: 50 + uint8(version),
				NoProbability:  50 - uint8(version),
				Participants:   uint32(version + 1),
			},
			Packed:    util.RandomBytes(8),
			StateRoot: util.RandomBytes(32),
		}), qt.IsNil)
	}
	// another market's snapshots stay out of the history
	c.Assert(st.PushOddsSnapshot(&types.OddsSnapshot{MarketID: 3, Version: 9}), qt.IsNil)

	latest, err := st.LatestOdds(2)
	c.Assert(err, qt.IsNil)
	c.Assert(latest.Version, qt.Equals, uint64(2))
	c.Assert(latest.Odds.YesProbability, qt.Equals, uint8(52))
	c.Assert(latest.CreatedAt.IsZero(), qt.IsFalse)

	history, err := st.OddsHistory(2)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 3)
	for i, o := range history {
		c.Assert(o.Version, qt.Equals, uint64(i))
		c.Assert(o.Odds.Participants, qt.Equals, uint32(i+1))
	}
}

func TestSettlementStorage(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	c.Assert(st.HasSettlement(4), qt.IsFalse)
	_, err := st.Settlement(4)
	c.Assert(err, qt.Equals, ErrNotFound)

	c.Assert(st.SetSettlement(&types.Settlement{
		MarketID:          4,
		Outcome:           types.OutcomeYes,
		TotalWinningStake: 8000,
		TotalLosingStake:  2000,
		Tally: &types.MarketTally{
			MarketID: 4,
			YesVotes: 8,
			NoVotes:  2,
			YesStake: 8000,
			NoStake:  2000,
		},
	}), qt.IsNil)

	c.Assert(st.HasSettlement(4), qt.IsTrue)
	got, err := st.Settlement(4)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Outcome, qt.Equals, types.OutcomeYes)
	c.Assert(got.TotalWinningStake, qt.Equals, uint64(8000))
	c.Assert(got.Tally.YesVotes, qt.Equals, uint32(8))
	c.Assert(got.SettledAt.IsZero(), qt.IsFalse)
}

func TestRiskReceiptStorage(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	jobID := NewJobID()
	_, err := st.RiskReceipt(jobID)
	c.Assert(err, qt.Equals, ErrNotFound)

	c.Assert(st.SetRiskReceipt(&JobResult{
		JobID:  jobID,
		Kind:   JobRisk,
		Sealed: util.RandomBytes(96),
	}), qt.IsNil)

	got, err := st.RiskReceipt(jobID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Kind, qt.Equals, JobRisk)
	c.Assert(got.Sealed, qt.HasLen, 96)
}
