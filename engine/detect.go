package engine

import (
	"fmt"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executeDetect unseals the market's detection window and scores it for
// coordinated voting patterns. The score byte is the only revealed output;
// the votes that produced it never leave the engine.
func (e *Engine) executeDetect(job *storage.Job, result *storage.JobResult) error {
	window, err := e.stg.AcceptedVoteWindow(job.MarketID)
	if err != nil {
		return fmt.Errorf("cannot load detection window: %w", err)
	}

	var votes [types.CollusionWindowCapacity]types.VoteData
	count := uint8(0)
	for _, payload := range window {
		if int(count) >= types.CollusionWindowCapacity {
			break
		}
		vote, err := e.openVote(payload)
		if err != nil {
			log.Warnw("skipping unreadable window entry", "market", job.MarketID, "error", err.Error())
			continue
		}
		votes[count] = *vote
		count++
	}

	score := circuits.DetectWindow(&votes, count)
	result.Revealed = []byte{score}
	return nil
}
