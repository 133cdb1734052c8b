package engine

import (
	"fmt"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executeValidate unseals a vote and runs the validity rule against it plus
// the market's own envelope constraints. The revealed result is the single
// verdict byte; everything else the validator saw stays sealed.
func (e *Engine) executeValidate(job *storage.Job, result *storage.JobResult) error {
	vote, err := e.openVote(job.Payload)
	if err != nil {
		return err
	}
	market, err := e.stg.Market(job.MarketID)
	if err != nil {
		return fmt.Errorf("cannot load market: %w", err)
	}

	verdict := circuits.ValidateVote(*vote)
	switch {
	case vote.MarketID != job.MarketID:
		// sealed payload routed to a different market
		verdict = 0
	case market.Rules != nil && market.Rules.MaxStakeAmount > 0 &&
		vote.StakeAmount > market.Rules.MaxStakeAmount:
		verdict = 0
	case !e.stg.HasNonce(job.MarketID, vote.Voter, vote.Nonce):
		// the sealed (voter, nonce) pair must be the registered one, which
		// also pins the sealed voter to the envelope signer
		verdict = 0
	}

	result.Revealed = []byte{verdict}
	result.Sealed, err = sealReport(&types.VerdictReport{
		VoteID: job.VoteID,
		Valid:  verdict == 1,
	}, job.ReplyPublicKey)
	return err
}
