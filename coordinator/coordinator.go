// Package coordinator drives the settlement protocol around the sealed
// computation engine. It owns the plaintext side of the system: market
// lifecycle, vote envelopes, positions and claims. Every computation over
// sealed data is queued as an engine job; the results come back through the
// callback queue and the coordinator applies them to the ledger records
// without ever reading a sealed payload's contents.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// Engine is the sealed computation cluster the coordinator drives. The
// concrete implementation is engine.Engine.
type Engine interface {
	// InitializeMarket provisions the homomorphic keypair and the genesis
	// encrypted state of a new market.
	InitializeMarket(market *types.Market) (*types.EncryptionKey, types.HexBytes, error)
	// RevealTally decrypts the current aggregates of a market. Only called
	// once the market has left the voting phase.
	RevealTally(marketID uint64) (*types.MarketTally, types.HexBytes, error)
	// PublicKey is the cluster sealing key vote payloads are sealed to.
	PublicKey() types.HexBytes
}

// Coordinator accepts submissions, sequences engine jobs and applies their
// results to the market ledger.
type Coordinator struct {
	stg    *storage.Storage
	engine Engine
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a coordinator over the given storage and engine.
func New(stg *storage.Storage, engine Engine) (*Coordinator, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	return &Coordinator{stg: stg, engine: engine}, nil
}

// EnginePublicKey returns the cluster sealing key clients seal their vote
// payloads to.
func (c *Coordinator) EnginePublicKey() types.HexBytes {
	return c.engine.PublicKey()
}

// Start begins the result processor. It returns an error if the coordinator
// was already started.
func (c *Coordinator) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if c.ctx != nil {
		return fmt.Errorf("coordinator already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.startResultProcessor()
	log.Infow("coordinator started")
	return nil
}

// Stop cancels the coordinator context, terminating the result processor.
// It is safe to call multiple times.
func (c *Coordinator) Stop() error {
	if c.cancel != nil {
		c.cancel()
		log.Infow("coordinator stopped")
	}
	return nil
}

// startResultProcessor starts the background goroutine that drains the job
// result queue. Every result is applied and marked done; results that can
// no longer be applied (their record moved on) are consumed silently since
// each application path is idempotent.
func (c *Coordinator) startResultProcessor() {
	const tickInterval = time.Second
	ticker := time.NewTicker(tickInterval)

	go func() {
		defer ticker.Stop()
		log.Infow("result processor started")

		for {
			select {
			case <-c.ctx.Done():
				log.Infow("result processor stopped")
				return
			default:
			}

			res, key, err := c.stg.NextJobResult()
			if err != nil {
				if !errors.Is(err, storage.ErrNoMoreElements) {
					log.Errorw(err, "failed to get next job result")
				} else {
					select {
					case <-ticker.C:
					case <-c.ctx.Done():
						log.Infow("result processor stopped")
						return
					}
				}
				continue
			}

			startTime := time.Now()
			if err := c.HandleResult(res); err != nil {
				log.Warnw("failed to apply job result",
					"kind", storage.JobKindString(res.Kind),
					"jobId", res.JobID.String(),
					"market", res.MarketID,
					"error", err.Error(),
				)
			}
			if err := c.stg.MarkJobResultDone(key); err != nil {
				log.Warnw("failed to mark job result as done",
					"kind", storage.JobKindString(res.Kind),
					"jobId", res.JobID.String(),
					"error", err.Error(),
				)
				continue
			}
			log.Debugw("job result applied",
				"kind", storage.JobKindString(res.Kind),
				"jobId", res.JobID.String(),
				"market", res.MarketID,
				"failed", res.Failed(),
				"duration", time.Since(startTime).String(),
			)
		}
	}()
}

// queueJob stamps an id and the inputs digest on the job and pushes it to
// the engine queue.
func (c *Coordinator) queueJob(job *storage.Job) error {
	if len(job.ID) == 0 {
		job.ID = storage.NewJobID()
	}
	digest, err := job.InputsDigest()
	if err != nil {
		return fmt.Errorf("cannot digest job inputs: %w", err)
	}
	job.InputsHash = digest
	if err := c.stg.PushJob(job); err != nil {
		return fmt.Errorf("cannot queue %s job: %w", storage.JobKindString(job.Kind), err)
	}
	log.Debugw("job queued",
		"kind", storage.JobKindString(job.Kind),
		"jobId", job.ID.String(),
		"market", job.MarketID,
	)
	return nil
}
