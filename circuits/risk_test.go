package circuits

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherbet/engine/types"
)

func TestISqrt(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		n    uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{4, 2},
		{10, 3},
		{99, 9},
		{100, 10},
		{125, 11},
		{2500, 50},
		{10000, 100},
	}
	for _, tc := range cases {
		c.Assert(ISqrt(tc.n), qt.Equals, tc.want, qt.Commentf("n=%d", tc.n))
	}
}

// TestISqrtFixedIterations pins the approximation itself: for large inputs
// eight Newton rounds have not converged yet, and downstream consumers
// expect that exact intermediate value, not the true square root.
func TestISqrtFixedIterations(t *testing.T) {
	c := qt.New(t)

	c.Assert(ISqrt(1<<40), qt.Equals, uint64(2147483817))
}

func TestComputeRiskMetrics(t *testing.T) {
	c := qt.New(t)

	profile := types.RiskProfile{Count: 4, RiskFreeRate: 5}
	copy(profile.Returns[:], []int64{10, 20, 30, 40})

	m := ComputeRiskMetrics(profile)
	// mean 25, variance (225+25+25+225)/4 = 125, volatility isqrt(125)=11,
	// sharpe (25-5)*100/11 = 181, VaR 165*11/100-25 < 0 floors at 0.
	c.Assert(m, qt.Equals, types.RiskMetrics{Mean: 25, Volatility: 11, Sharpe: 181, ValueAtRisk: 0})
}

func TestComputeRiskMetricsVolatile(t *testing.T) {
	c := qt.New(t)

	profile := types.RiskProfile{Count: 4, RiskFreeRate: 10}
	copy(profile.Returns[:], []int64{-50, 50, -50, 50})

	m := ComputeRiskMetrics(profile)
	// mean 0, variance 2500, volatility 50, sharpe (0-10)*100/50 = -20,
	// VaR 165*50/100-0 = 82.
	c.Assert(m, qt.Equals, types.RiskMetrics{Mean: 0, Volatility: 50, Sharpe: -20, ValueAtRisk: 82})
}

func TestComputeRiskMetricsEmpty(t *testing.T) {
	c := qt.New(t)

	c.Assert(ComputeRiskMetrics(types.RiskProfile{}), qt.Equals, types.RiskMetrics{})
}

func TestComputeRiskMetricsCountClamp(t *testing.T) {
	c := qt.New(t)

	flat := types.RiskProfile{Count: 200}
	for i := range flat.Returns {
		flat.Returns[i] = 7
	}
	m := ComputeRiskMetrics(flat)
	c.Assert(m.Mean, qt.Equals, int64(7))
	c.Assert(m.Volatility, qt.Equals, int64(0))
	c.Assert(m.Sharpe, qt.Equals, int64(0))
}

func TestRankAgainstPeers(t *testing.T) {
	c := qt.New(t)

	peers := types.PeerSet{Count: 10}
	copy(peers.Values[:], []uint64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000})

	r := RankAgainstPeers(750, peers)
	c.Assert(r.PeersBeaten, qt.Equals, uint32(7))
	c.Assert(r.Percentile, qt.Equals, uint8(70))

	// Ties are not beaten.
	r = RankAgainstPeers(500, peers)
	c.Assert(r.PeersBeaten, qt.Equals, uint32(4))
	c.Assert(r.Percentile, qt.Equals, uint8(40))

	// Beats everything.
	r = RankAgainstPeers(5000, peers)
	c.Assert(r.PeersBeaten, qt.Equals, uint32(10))
	c.Assert(r.Percentile, qt.Equals, uint8(100))

	// Empty set ranks at zero.
	c.Assert(RankAgainstPeers(5000, types.PeerSet{}), qt.Equals, types.BenchmarkResult{})
}
