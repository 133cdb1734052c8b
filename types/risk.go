package types

// RiskProfile is a sealed portfolio return history submitted for private
// risk analysis. Returns beyond Count are ignored; Count is clamped to the
// slot capacity.
type RiskProfile struct {
	Returns      [ReturnHistorySlots]int64 `json:"returns"      cbor:"0,keyasint,omitempty"`
	Count        uint8                     `json:"count"        cbor:"1,keyasint,omitempty"`
	RiskFreeRate int64                     `json:"riskFreeRate" cbor:"2,keyasint,omitempty"`
}

// PeerSet is a fixed-capacity set of peer portfolio values used for
// percentile ranking.
type PeerSet struct {
	Values [PeerSetSlots]uint64 `json:"values" cbor:"0,keyasint,omitempty"`
	Count  uint8                `json:"count"  cbor:"1,keyasint,omitempty"`
}

// RiskRequest is the sealed payload of a risk analysis job: the private
// return history plus an optional peer comparison.
type RiskRequest struct {
	Profile *RiskProfile `json:"profile" cbor:"0,keyasint,omitempty"`
	Peers   *PeerSet     `json:"peers"   cbor:"1,keyasint,omitempty"`
	Value   uint64       `json:"value"   cbor:"2,keyasint,omitempty"`
}

// RiskReport is what the engine seals back to the requester.
type RiskReport struct {
	Metrics   *RiskMetrics     `json:"metrics"   cbor:"0,keyasint,omitempty"`
	Benchmark *BenchmarkResult `json:"benchmark" cbor:"1,keyasint,omitempty"`
}

// RiskMetrics is the computed risk summary of a return history.
type RiskMetrics struct {
	Mean        int64 `json:"mean"        cbor:"0,keyasint,omitempty"`
	Volatility  int64 `json:"volatility"  cbor:"1,keyasint,omitempty"`
	Sharpe      int64 `json:"sharpe"      cbor:"2,keyasint,omitempty"`
	ValueAtRisk int64 `json:"valueAtRisk" cbor:"3,keyasint,omitempty"`
}

// BenchmarkResult ranks a portfolio value against a peer set.
type BenchmarkResult struct {
	Percentile  uint8  `json:"percentile"  cbor:"0,keyasint,omitempty"`
	PeersBeaten uint32 `json:"peersBeaten" cbor:"1,keyasint,omitempty"`
}
