package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/storage"
)

// newClaim opens a payout claim on a resolved market. The payout comes back
// sealed to the reply key; the claim id is what the claimant polls.
// POST /markets/{marketId}/claims
func (a *API) newClaim(w http.ResponseWriter, r *http.Request) {
	marketID, err := urlMarketID(r)
	if err != nil {
		ErrMalformedMarketID.WithErr(err).Write(w)
		return
	}
	req := &coordinator.ClaimRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.MarketID != 0 && req.MarketID != marketID {
		ErrMalformedBody.Withf("claim market %d does not match URL market %d",
			req.MarketID, marketID).Write(w)
		return
	}
	req.MarketID = marketID
	claimID, err := a.coordinator.ClaimPayout(req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrKeyAlreadyExists):
			ErrClaimAlreadyOpen.Write(w)
		case errors.Is(err, storage.ErrNotFound):
			ErrPositionNotFound.Withf("vote %x", req.VoteID).Write(w)
		case strings.Contains(err.Error(), "signer"):
			ErrInvalidSignature.WithErr(err).Write(w)
		default:
			ErrClaimRejected.WithErr(err).Write(w)
		}
		return
	}
	httpWriteJSON(w, &ClaimReceipt{ClaimID: claimID})
}

// claim returns the position behind a claim id, carrying the sealed payout
// once the computation finished.
// GET /claims/{claimId}
func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	claimID, err := urlHexBytes(r, ClaimURLParam)
	if err != nil {
		ErrMalformedClaimID.WithErr(err).Write(w)
		return
	}
	position, err := a.coordinator.PositionByClaim(claimID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrClaimNotFound.Withf("claim %x", claimID).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, positionInfo(position))
}
