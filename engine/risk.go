package engine

import (
	"fmt"

	"github.com/cipherbet/engine/circuits"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// executeRisk unseals a private return history, computes its risk metrics
// and optionally ranks the portfolio against a peer set. The full report is
// sealed to the requester; nothing is revealed.
func (e *Engine) executeRisk(job *storage.Job, result *storage.JobResult) error {
	req, err := e.openRiskRequest(job.Payload)
	if err != nil {
		return err
	}
	if req.Profile == nil {
		return fmt.Errorf("risk request carries no profile")
	}

	metrics := circuits.ComputeRiskMetrics(*req.Profile)
	report := &types.RiskReport{Metrics: &metrics}
	if req.Peers != nil {
		benchmark := circuits.RankAgainstPeers(req.Value, *req.Peers)
		report.Benchmark = &benchmark
	}

	result.Sealed, err = sealReport(report, job.ReplyPublicKey)
	return err
}
