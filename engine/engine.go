// Package engine runs the privacy boundary of the settlement system. It is
// the only component that unseals vote payloads and the only writer of the
// encrypted market aggregates. Work arrives as queued jobs, is executed
// against the sealed data, and leaves as job results carrying at most the
// declassified bytes each job kind is allowed to reveal.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/dvote/db"

	"github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/crypto/ecc/curves"
	"github.com/cipherbet/engine/crypto/sealed"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/marketstate"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// Engine executes sealed computation jobs against the market states.
type Engine struct {
	stg      *storage.Storage
	db       db.Database
	identity *sealed.Identity
	curve    ecc.Point
	ctx      context.Context
	cancel   context.CancelFunc

	states     map[uint64]*marketstate.State
	statesLock sync.Mutex
}

// New creates an engine bound to the given storage and database. The
// cluster sealing identity is loaded from storage, or generated and
// persisted on first boot.
func New(stg *storage.Storage, database db.Database) (*Engine, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	curve, err := curves.New(marketstate.CurveType)
	if err != nil {
		return nil, err
	}
	identity, err := loadIdentity(stg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		stg:      stg,
		db:       database,
		identity: identity,
		curve:    curve,
		states:   map[uint64]*marketstate.State{},
	}, nil
}

func loadIdentity(stg *storage.Storage) (*sealed.Identity, error) {
	priv, err := stg.ClusterIdentity()
	switch {
	case err == nil:
		return sealed.IdentityFromBytes(priv)
	case errors.Is(err, storage.ErrNotFound):
		identity, err := sealed.GenerateIdentity()
		if err != nil {
			return nil, fmt.Errorf("failed to generate cluster identity: %w", err)
		}
		if err := stg.SetClusterIdentity(identity.Bytes()); err != nil {
			return nil, fmt.Errorf("failed to persist cluster identity: %w", err)
		}
		log.Infow("generated new cluster sealing identity")
		return identity, nil
	default:
		return nil, fmt.Errorf("failed to load cluster identity: %w", err)
	}
}

// PublicKey returns the cluster sealing key clients seal vote payloads to.
func (e *Engine) PublicKey() types.HexBytes {
	return e.identity.PublicKey()
}

// Start begins the job processor. It returns an error if the engine was
// already started.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if e.ctx != nil {
		return fmt.Errorf("engine already started")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.startJobProcessor()
	log.Infow("engine started", "clusterKey", e.PublicKey().String())
	return nil
}

// Stop cancels the engine context, terminating the job processor. It is
// safe to call multiple times.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
		log.Infow("engine stopped")
	}
	return nil
}

// startJobProcessor starts the background goroutine that drains the job
// queue. Each job is executed and marked done with its result; a failed
// execution still produces a result so the coordinator can settle the
// originating record instead of waiting forever.
func (e *Engine) startJobProcessor() {
	const tickInterval = time.Second
	ticker := time.NewTicker(tickInterval)

	go func() {
		defer ticker.Stop()
		log.Infow("job processor started")

		for {
			select {
			case <-e.ctx.Done():
				log.Infow("job processor stopped")
				return
			default:
			}

			job, key, err := e.stg.NextJob()
			if err != nil {
				if !errors.Is(err, storage.ErrNoMoreElements) {
					log.Errorw(err, "failed to get next job")
				} else {
					select {
					case <-ticker.C:
					case <-e.ctx.Done():
						log.Infow("job processor stopped")
						return
					}
				}
				continue
			}

			startTime := time.Now()
			result := e.ExecuteJob(job)
			if err := e.stg.MarkJobDone(key, result); err != nil {
				log.Warnw("failed to mark job as done",
					"error", err.Error(),
					"kind", storage.JobKindString(job.Kind),
					"jobId", job.ID.String(),
				)
				continue
			}
			log.Debugw("job executed",
				"kind", storage.JobKindString(job.Kind),
				"jobId", job.ID.String(),
				"market", job.MarketID,
				"failed", result.Failed(),
				"duration", time.Since(startTime).String(),
			)
		}
	}()
}

// ExecuteJob runs one job and always returns a result. Execution errors
// surface in the result's Error field, never as a dropped job.
func (e *Engine) ExecuteJob(job *storage.Job) *storage.JobResult {
	result := &storage.JobResult{
		JobID:    job.ID,
		Kind:     job.Kind,
		MarketID: job.MarketID,
		VoteID:   job.VoteID,
	}
	if err := e.checkInputsDigest(job); err != nil {
		result.Error = err.Error()
		return result
	}
	var err error
	switch job.Kind {
	case storage.JobValidate:
		err = e.executeValidate(job, result)
	case storage.JobAggregate:
		err = e.executeAggregate(job, result)
	case storage.JobBatchAggregate:
		err = e.executeBatchAggregate(job, result)
	case storage.JobOdds:
		err = e.executeOdds(job, result)
	case storage.JobPayout:
		err = e.executePayout(job, result)
	case storage.JobDetect:
		err = e.executeDetect(job, result)
	case storage.JobRisk:
		err = e.executeRisk(job, result)
	default:
		err = fmt.Errorf("unknown job kind %d", job.Kind)
	}
	if err != nil {
		log.Warnw("job execution failed",
			"kind", storage.JobKindString(job.Kind),
			"jobId", job.ID.String(),
			"market", job.MarketID,
			"error", err.Error(),
		)
		result.Error = err.Error()
	}
	return result
}

// checkInputsDigest recomputes the job's inputs digest and compares it with
// the one stamped at enqueue time. Jobs without a digest are accepted.
func (e *Engine) checkInputsDigest(job *storage.Job) error {
	if len(job.InputsHash) == 0 {
		return nil
	}
	digest, err := job.InputsDigest()
	if err != nil {
		return err
	}
	if !bytes.Equal(digest, job.InputsHash) {
		return fmt.Errorf("job inputs digest mismatch")
	}
	return nil
}

// state returns the market's state tree, opening it on first use.
func (e *Engine) state(marketID uint64) (*marketstate.State, error) {
	e.statesLock.Lock()
	defer e.statesLock.Unlock()
	if st, ok := e.states[marketID]; ok {
		return st, nil
	}
	st, err := marketstate.New(e.db, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to open market state %d: %w", marketID, err)
	}
	e.states[marketID] = st
	return st, nil
}
