package engine

import (
	"fmt"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executePayout combines one sealed vote with the plaintext settlement of
// its market and computes the payout. Nothing is revealed: the amount
// travels only inside the report sealed to the claimer's reply key.
func (e *Engine) executePayout(job *storage.Job, result *storage.JobResult) error {
	vote, err := e.openVote(job.Payload)
	if err != nil {
		return err
	}
	settlement, err := e.stg.Settlement(job.MarketID)
	if err != nil {
		return fmt.Errorf("market is not settled: %w", err)
	}

	amount := circuits.ComputePayout(types.PayoutData{
		Vote:                 vote.Choice,
		StakeAmount:          vote.StakeAmount,
		PredictedProbability: vote.PredictedProbability,
		ConvictionScore:      vote.ConvictionScore,
		Outcome:              settlement.Outcome,
		TotalWinningStake:    settlement.TotalWinningStake,
		TotalLosingStake:     settlement.TotalLosingStake,
		AccuracyBonusPool:    settlement.AccuracyBonusPool,
		ConvictionBonusPool:  settlement.ConvictionBonusPool,
	})

	result.Sealed, err = sealReport(&types.PayoutReport{
		VoteID:   job.VoteID,
		MarketID: job.MarketID,
		Outcome:  settlement.Outcome,
		Amount:   amount,
	}, job.ReplyPublicKey)
	return err
}
