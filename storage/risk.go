package storage

import (
	"fmt"

	"github.com/cipherbet/engine/types"
)

// SetRiskReceipt stores the outcome of a risk job so the submitter can
// fetch the sealed metrics later.
func (s *Storage) SetRiskReceipt(res *JobResult) error {
	if len(res.JobID) == 0 {
		return fmt.Errorf("risk receipt without job id")
	}
	return s.setArtifact(riskReceiptPrefix, res.JobID, res)
}

// RiskReceipt returns the stored outcome of a risk job.
func (s *Storage) RiskReceipt(jobID types.HexBytes) (*JobResult, error) {
	res := &JobResult{}
	if err := s.getArtifact(riskReceiptPrefix, jobID, res); err != nil {
		return nil, err
	}
	return res, nil
}
