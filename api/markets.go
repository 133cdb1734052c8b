package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
)

// newMarket opens a new prediction market
// POST /markets
func (a *API) newMarket(w http.ResponseWriter, r *http.Request) {
	req := &NewMarket{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	market, err := a.coordinator.CreateMarket(req.Authority, req.Rules)
	if err != nil {
		ErrMarketRulesInvalid.WithErr(err).Write(w)
		return
	}
	log.Infow("new market",
		"market", market.ID,
		"authority", market.Authority.Hex(),
		"votingEndsAt", market.Rules.VotingEndsAt.String(),
	)
	httpWriteJSON(w, a.marketInfo(market.ID))
}

// market returns the market ledger record, the current encrypted state
// version and, after resolution, the revealed settlement
// GET /markets/{marketId}
func (a *API) market(w http.ResponseWriter, r *http.Request) {
	marketID, err := urlMarketID(r)
	if err != nil {
		ErrMalformedMarketID.WithErr(err).Write(w)
		return
	}
	info := a.marketInfo(marketID)
	if info == nil {
		ErrMarketNotFound.Withf("market %d", marketID).Write(w)
		return
	}
	httpWriteJSON(w, info)
}

// marketInfo assembles the market response, nil if the market is unknown.
func (a *API) marketInfo(marketID uint64) *MarketInfo {
	market, err := a.storage.Market(marketID)
	if err != nil {
		return nil
	}
	info := &MarketInfo{Market: market}
	if state, err := a.storage.MarketState(marketID); err == nil {
		info.Version = state.Version
	}
	if settlement, err := a.storage.Settlement(marketID); err == nil {
		info.Settlement = settlement
	}
	return info
}

// marketOdds returns the latest published odds snapshot, or the whole
// history when the request carries ?history=1
// GET /markets/{marketId}/odds
func (a *API) marketOdds(w http.ResponseWriter, r *http.Request) {
	marketID, err := urlMarketID(r)
	if err != nil {
		ErrMalformedMarketID.WithErr(err).Write(w)
		return
	}
	if _, err := a.storage.Market(marketID); err != nil {
		ErrMarketNotFound.Withf("market %d", marketID).Write(w)
		return
	}
	if h := r.URL.Query().Get("history"); h == "1" || strings.EqualFold(h, "true") {
		snapshots, err := a.storage.OddsHistory(marketID)
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		httpWriteJSON(w, &OddsHistory{MarketID: marketID, Snapshots: snapshots})
		return
	}
	snapshot, err := a.storage.LatestOdds(marketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrNoOddsPublished.Withf("market %d", marketID).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, snapshot)
}

// authorityHandler builds the handler of one signed lifecycle operation.
// The operation name is fixed by the route; the body carries the outcome
// (for resolutions) and the authority signature over the action digest.
// POST /markets/{marketId}/lock | resolve | cancel | finalize | review/clear
func (a *API) authorityHandler(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := urlMarketID(r)
		if err != nil {
			ErrMalformedMarketID.WithErr(err).Write(w)
			return
		}
		action := &coordinator.AuthorityAction{}
		if err := json.NewDecoder(r.Body).Decode(action); err != nil {
			ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
			return
		}
		// the route, not the body, decides what is being authorized
		action.MarketID = marketID
		action.Op = op
		if err := a.coordinator.Authorize(action); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				ErrMarketNotFound.Withf("market %d", marketID).Write(w)
				return
			}
			if strings.Contains(err.Error(), "signer") {
				ErrInvalidSignature.WithErr(err).Write(w)
				return
			}
			ErrActionRejected.WithErr(err).Write(w)
			return
		}
		log.Infow("authority action applied", "market", marketID, "op", op)
		httpWriteJSON(w, a.marketInfo(marketID))
	}
}
