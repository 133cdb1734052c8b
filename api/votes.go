package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/storage"
)

// submitVote accepts a signed vote envelope for a market. The vote itself
// arrives sealed to the engine cluster key; the handler never sees the
// plaintext choice or stake.
// POST /markets/{marketId}/votes
func (a *API) submitVote(w http.ResponseWriter, r *http.Request) {
	marketID, err := urlMarketID(r)
	if err != nil {
		ErrMalformedMarketID.WithErr(err).Write(w)
		return
	}
	envelope := &coordinator.VoteEnvelope{}
	if err := json.NewDecoder(r.Body).Decode(envelope); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if envelope.MarketID != 0 && envelope.MarketID != marketID {
		ErrMalformedBody.Withf("envelope market %d does not match URL market %d",
			envelope.MarketID, marketID).Write(w)
		return
	}
	envelope.MarketID = marketID
	voteID, err := a.coordinator.SubmitVote(envelope)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrMarketNotFound.Withf("market %d", marketID).Write(w)
			return
		}
		ErrVoteRejected.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoteReceipt{VoteID: voteID})
}

// vote returns the position record of one submission: its lifecycle status
// and the sealed verdict once validation ran.
// GET /votes/{voteId}
func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	voteID, err := urlHexBytes(r, VoteURLParam)
	if err != nil {
		ErrMalformedVoteID.WithErr(err).Write(w)
		return
	}
	position, err := a.storage.Position(voteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrPositionNotFound.Withf("vote %x", voteID).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, positionInfo(position))
}
