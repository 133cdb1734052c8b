package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cipherbet/engine/api"
	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/types"
)

// get performs a GET request and decodes the JSON response into out.
func (c *HTTPclient) get(out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(HTTPGET, nil, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return json.Unmarshal(data, out)
}

// post performs a POST request with a JSON body and decodes the JSON
// response into out.
func (c *HTTPclient) post(body, out any, urlPath ...string) error {
	data, status, err := c.Request(HTTPPOST, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return json.Unmarshal(data, out)
}

// Info fetches the engine cluster sealing key. Clients need it before they
// can seal a vote or risk payload.
func (c *HTTPclient) Info() (*api.Info, error) {
	info := &api.Info{}
	if err := c.get(info, nil, api.InfoEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// NewMarket opens a prediction market and returns its ledger record.
func (c *HTTPclient) NewMarket(req *api.NewMarket) (*api.MarketInfo, error) {
	info := &api.MarketInfo{}
	if err := c.post(req, info, api.MarketsEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// Market fetches one market's info: status, rules, encrypted state version
// and, once resolved, the settlement figures.
func (c *HTTPclient) Market(marketID uint64) (*api.MarketInfo, error) {
	info := &api.MarketInfo{}
	if err := c.get(info, nil, "markets", strconv.FormatUint(marketID, 10)); err != nil {
		return nil, err
	}
	return info, nil
}

// SubmitVote posts a signed vote envelope to its market and returns the
// vote id to poll.
func (c *HTTPclient) SubmitVote(envelope *coordinator.VoteEnvelope) (*api.VoteReceipt, error) {
	receipt := &api.VoteReceipt{}
	if err := c.post(envelope, receipt,
		"markets", strconv.FormatUint(envelope.MarketID, 10), "votes"); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Position polls a submission for its lifecycle status and sealed verdict.
func (c *HTTPclient) Position(voteID types.HexBytes) (*api.PositionInfo, error) {
	position := &api.PositionInfo{}
	if err := c.get(position, nil, "votes", voteID.String()); err != nil {
		return nil, err
	}
	return position, nil
}

// LatestOdds fetches the most recent odds snapshot of a market.
func (c *HTTPclient) LatestOdds(marketID uint64) (*types.OddsSnapshot, error) {
	snapshot := &types.OddsSnapshot{}
	if err := c.get(snapshot, nil,
		"markets", strconv.FormatUint(marketID, 10), "odds"); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// OddsHistory fetches every odds snapshot a market ever published.
func (c *HTTPclient) OddsHistory(marketID uint64) (*api.OddsHistory, error) {
	history := &api.OddsHistory{}
	if err := c.get(history, []string{"history", "1"},
		"markets", strconv.FormatUint(marketID, 10), "odds"); err != nil {
		return nil, err
	}
	return history, nil
}

// Authorize posts a signed lifecycle action to the endpoint of its
// operation and returns the market info after the transition.
func (c *HTTPclient) Authorize(action *coordinator.AuthorityAction) (*api.MarketInfo, error) {
	segments := []string{"markets", strconv.FormatUint(action.MarketID, 10)}
	if action.Op == coordinator.OpClearReview {
		segments = append(segments, "review", "clear")
	} else {
		segments = append(segments, action.Op)
	}
	info := &api.MarketInfo{}
	if err := c.post(action, info, segments...); err != nil {
		return nil, err
	}
	return info, nil
}

// NewClaim opens a payout claim on a resolved market and returns the claim
// id to poll.
func (c *HTTPclient) NewClaim(req *coordinator.ClaimRequest) (*api.ClaimReceipt, error) {
	receipt := &api.ClaimReceipt{}
	if err := c.post(req, receipt,
		"markets", strconv.FormatUint(req.MarketID, 10), "claims"); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Claim polls a claim for its sealed payout.
func (c *HTTPclient) Claim(claimID types.HexBytes) (*api.PositionInfo, error) {
	position := &api.PositionInfo{}
	if err := c.get(position, nil, "claims", claimID.String()); err != nil {
		return nil, err
	}
	return position, nil
}

// SubmitRisk queues a sealed risk metrics computation.
func (c *HTTPclient) SubmitRisk(sub *api.RiskSubmission) (*api.RiskReceipt, error) {
	receipt := &api.RiskReceipt{}
	if err := c.post(sub, receipt, api.RiskEndpoint); err != nil {
		return nil, err
	}
	return receipt, nil
}

// RiskReport polls a risk job for its sealed report.
func (c *HTTPclient) RiskReport(jobID types.HexBytes) (*api.RiskReport, error) {
	report := &api.RiskReport{}
	if err := c.get(report, nil, "risk", jobID.String()); err != nil {
		return nil, err
	}
	return report, nil
}
