package circuits

import "github.com/cipherbet/engine/types"

// ISqrt approximates the integer square root with a fixed number of Newton
// iterations. The iteration count is part of the output contract shared
// with downstream verifiers; do not replace this with an exact square root
// even though one is available.
func ISqrt(n uint64) uint64 {
	if n <= 1 {
		return n
	}
	x := n/2 + 1
	for i := 0; i < types.SqrtIterations; i++ {
		x = (x + n/x) / 2
	}
	return x
}

// ComputeRiskMetrics derives the risk summary of a return history: the
// truncating mean and variance over Returns[0:count], volatility as the
// fixed iteration square root of the variance, a Sharpe ratio scaled by 100
// (zero when volatility is zero) and a 95% value at risk floored at zero.
// An empty history yields all zeros.
func ComputeRiskMetrics(p types.RiskProfile) types.RiskMetrics {
	n := int(p.Count)
	if n > types.ReturnHistorySlots {
		n = types.ReturnHistorySlots
	}
	if n == 0 {
		return types.RiskMetrics{}
	}

	var sum int64
	for i := 0; i < n; i++ {
		sum += p.Returns[i]
	}
	mean := sum / int64(n)

	var squares int64
	for i := 0; i < n; i++ {
		d := p.Returns[i] - mean
		squares += d * d
	}
	variance := squares / int64(n)

	metrics := types.RiskMetrics{
		Mean:       mean,
		Volatility: int64(ISqrt(uint64(variance))),
	}
	if metrics.Volatility != 0 {
		metrics.Sharpe = (mean - p.RiskFreeRate) * 100 / metrics.Volatility
	}
	// 1.65 sigma one tailed VaR, scaled to integer arithmetic.
	if risk := 165*metrics.Volatility/100 - mean; risk > 0 {
		metrics.ValueAtRisk = risk
	}
	return metrics
}

// RankAgainstPeers places a portfolio value within a peer set: how many
// peers it beats and the resulting percentile (truncating). An empty peer
// set ranks at zero.
func RankAgainstPeers(value uint64, peers types.PeerSet) types.BenchmarkResult {
	n := int(peers.Count)
	if n > types.PeerSetSlots {
		n = types.PeerSetSlots
	}
	var result types.BenchmarkResult
	if n == 0 {
		return result
	}
	for i := 0; i < n; i++ {
		if peers.Values[i] < value {
			result.PeersBeaten++
		}
	}
	result.Percentile = uint8(uint64(result.PeersBeaten) * 100 / uint64(n))
	return result
}
