package coordinator

import (
	"fmt"

	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// SubmitRisk queues a sealed risk metrics computation and returns the job
// id the submitter polls for the sealed report. The request payload and the
// report both stay sealed end to end; the coordinator keeps only a receipt.
func (c *Coordinator) SubmitRisk(sealedRequest, replyPublicKey types.HexBytes) (types.HexBytes, error) {
	if len(sealedRequest) == 0 {
		return nil, fmt.Errorf("empty sealed request")
	}
	if len(replyPublicKey) == 0 {
		return nil, fmt.Errorf("reply public key is required")
	}
	jobID := storage.NewJobID()
	if err := c.queueJob(&storage.Job{
		ID:             jobID,
		Kind:           storage.JobRisk,
		Payload:        sealedRequest,
		ReplyPublicKey: replyPublicKey,
	}); err != nil {
		return nil, err
	}
	return jobID, nil
}

// RiskReceipt returns the stored result of a finished risk job.
func (c *Coordinator) RiskReceipt(jobID types.HexBytes) (*storage.JobResult, error) {
	return c.stg.RiskReceipt(jobID)
}
