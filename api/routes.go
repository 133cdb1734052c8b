package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint is the endpoint exposing the engine cluster sealing key,
	// which clients need before they can seal a vote or risk payload
	InfoEndpoint = "/info"
	// MarketsEndpoint is the endpoint for opening a new prediction market
	MarketsEndpoint = "/markets"
	// MarketEndpoint is the endpoint to get the market info
	MarketURLParam = "marketId"
	MarketEndpoint = "/markets/{" + MarketURLParam + "}"
	// MarketVotesEndpoint is the endpoint for submitting a vote envelope
	MarketVotesEndpoint = "/markets/{" + MarketURLParam + "}/votes"
	// VoteEndpoint is the endpoint to get a submission's position record
	VoteURLParam = "voteId"
	VoteEndpoint = "/votes/{" + VoteURLParam + "}"
	// MarketOddsEndpoint is the endpoint for the published odds snapshots;
	// the latest one by default, the whole history with ?history=1
	MarketOddsEndpoint = "/markets/{" + MarketURLParam + "}/odds"
	// Authority lifecycle endpoints. Each takes a signed authority action;
	// the operation name is fixed by the route, never by the body.
	MarketLockEndpoint        = "/markets/{" + MarketURLParam + "}/lock"
	MarketResolveEndpoint     = "/markets/{" + MarketURLParam + "}/resolve"
	MarketCancelEndpoint      = "/markets/{" + MarketURLParam + "}/cancel"
	MarketFinalizeEndpoint    = "/markets/{" + MarketURLParam + "}/finalize"
	MarketClearReviewEndpoint = "/markets/{" + MarketURLParam + "}/review/clear"
	// MarketClaimsEndpoint is the endpoint for opening a payout claim
	MarketClaimsEndpoint = "/markets/{" + MarketURLParam + "}/claims"
	// ClaimEndpoint is the endpoint to poll a claim for its sealed payout
	ClaimURLParam = "claimId"
	ClaimEndpoint = "/claims/{" + ClaimURLParam + "}"
	// RiskEndpoint is the endpoint for submitting a sealed risk metrics job
	RiskEndpoint = "/risk"
	// RiskJobEndpoint is the endpoint to poll a risk job for its report
	RiskJobURLParam = "jobId"
	RiskJobEndpoint = "/risk/{" + RiskJobURLParam + "}"
)
