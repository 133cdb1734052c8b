package engine

import (
	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executeOdds reveals the current aggregates, derives the odds and publishes
// a snapshot bound to the state version it was computed from. The packed
// odds form is the job's declassified output.
func (e *Engine) executeOdds(job *storage.Job, result *storage.JobResult) error {
	tally, root, err := e.RevealTally(job.MarketID)
	if err != nil {
		return err
	}
	odds := circuits.ComputeOdds(tally)
	packed := circuits.PackOdds(odds)

	current, err := e.stg.MarketState(job.MarketID)
	if err != nil {
		return err
	}
	if err := e.stg.PushOddsSnapshot(&types.OddsSnapshot{
		MarketID:  job.MarketID,
		Odds:      &odds,
		Packed:    packed,
		StateRoot: root,
		Version:   current.Version,
	}); err != nil {
		return err
	}
	result.Revealed = packed
	result.StateRoot = root
	result.Version = current.Version
	return nil
}
