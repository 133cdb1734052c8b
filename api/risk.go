package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cipherbet/engine/storage"
)

// newRisk queues a sealed risk metrics computation and returns the job id
// to poll.
// POST /risk
func (a *API) newRisk(w http.ResponseWriter, r *http.Request) {
	req := &RiskSubmission{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	jobID, err := a.coordinator.SubmitRisk(req.SealedRequest, req.ReplyPublicKey)
	if err != nil {
		ErrRiskRejected.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &RiskReceipt{JobID: jobID})
}

// riskReport returns the stored result of a finished risk job. Until the
// engine executes the job there is nothing to return and the poll comes
// back not found.
// GET /risk/{jobId}
func (a *API) riskReport(w http.ResponseWriter, r *http.Request) {
	jobID, err := urlHexBytes(r, RiskJobURLParam)
	if err != nil {
		ErrMalformedJobID.WithErr(err).Write(w)
		return
	}
	receipt, err := a.coordinator.RiskReceipt(jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrRiskReportNotReady.Withf("job %x", jobID).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &RiskReport{
		JobID:        receipt.JobID,
		Failed:       receipt.Failed(),
		Error:        receipt.Error,
		SealedReport: receipt.Sealed,
		CompletedAt:  receipt.CompletedAt,
	})
}
