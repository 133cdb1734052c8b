package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

func testJob(kind uint8, marketID uint64) *Job {
	return &Job{
		ID:             NewJobID(),
		Kind:           kind,
		MarketID:       marketID,
		Payload:        util.RandomBytes(48),
		ReplyPublicKey: util.RandomBytes(33),
	}
}

func TestJobQueue(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	// empty queue
	_, _, err := st.NextJob()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	j := testJob(JobValidate, 1)
	c.Assert(st.PushJob(j), qt.IsNil)
	c.Assert(st.CountPendingJobs(), qt.Equals, 1)

	got, key, err := st.NextJob()
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.DeepEquals, j.ID)
	c.Assert(got.Kind, qt.Equals, JobValidate)
	c.Assert(got.CreatedAt.IsZero(), qt.IsFalse)

	// reserved, so not handed out twice
	_, _, err = st.NextJob()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	// done: job leaves the queue, result enters the results queue
	res := &JobResult{
		JobID:    j.ID,
		Kind:     j.Kind,
		MarketID: j.MarketID,
		Revealed: []byte{1},
	}
	c.Assert(st.MarkJobDone(key, res), qt.IsNil)
	c.Assert(st.CountPendingJobs(), qt.Equals, 0)

	gotRes, resKey, err := st.NextJobResult()
	c.Assert(err, qt.IsNil)
	c.Assert(gotRes.JobID, qt.DeepEquals, j.ID)
	c.Assert(gotRes.Revealed, qt.DeepEquals, types.HexBytes{1})
	c.Assert(gotRes.Failed(), qt.IsFalse)
	c.Assert(gotRes.CompletedAt.IsZero(), qt.IsFalse)

	// results are reserved the same way
	_, _, err = st.NextJobResult()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	c.Assert(st.MarkJobResultDone(resKey), qt.IsNil)
	_, _, err = st.NextJobResult()
	c.Assert(err, qt.Equals, ErrNoMoreElements)
}

func TestJobQueueAggregationLock(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	c.Assert(st.PushJob(testJob(JobAggregate, 5)), qt.IsNil)
	c.Assert(st.PushJob(testJob(JobAggregate, 5)), qt.IsNil)
	c.Assert(st.PushJob(testJob(JobAggregate, 6)), qt.IsNil)

	// one aggregation per market at a time, so only two of the three jobs
	// can be reserved and they must belong to different markets
	keys := map[uint64][]byte{}
	for i := 0; i < 2; i++ {
		j, key, err := st.NextJob()
		c.Assert(err, qt.IsNil)
		c.Assert(keys[j.MarketID], qt.IsNil, qt.Commentf("market %d handed out twice", j.MarketID))
		keys[j.MarketID] = key
	}
	c.Assert(keys[5], qt.Not(qt.IsNil))
	c.Assert(keys[6], qt.Not(qt.IsNil))
	_, _, err := st.NextJob()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	// finishing the reserved market 5 job releases its lock
	c.Assert(st.MarkJobDone(keys[5], nil), qt.IsNil)
	j, key, err := st.NextJob()
	c.Assert(err, qt.IsNil)
	c.Assert(j.MarketID, qt.Equals, uint64(5))

	c.Assert(st.MarkJobDone(keys[6], nil), qt.IsNil)
	c.Assert(st.MarkJobDone(key, nil), qt.IsNil)
	c.Assert(st.CountPendingJobs(), qt.Equals, 0)
}

func TestJobQueueValidateUnaffectedByLock(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	c.Assert(st.PushJob(testJob(JobAggregate, 5)), qt.IsNil)
	c.Assert(st.PushJob(testJob(JobValidate, 5)), qt.IsNil)

	// the aggregation lock never blocks other job kinds for the market
	first, _, err := st.NextJob()
	c.Assert(err, qt.IsNil)
	second, _, err := st.NextJob()
	c.Assert(err, qt.IsNil)
	kinds := []uint8{first.Kind, second.Kind}
	c.Assert(kinds, qt.Contains, JobAggregate)
	c.Assert(kinds, qt.Contains, JobValidate)
}
