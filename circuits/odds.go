package circuits

import (
	"encoding/binary"
	"fmt"

	"github.com/cipherbet/engine/types"
)

// Liquidity tiers of the market maker spread. Thinner markets get a wider
// spread to compensate adverse selection.
const (
	highLiquidityStake = 10000
	midLiquidityStake  = 1000

	highLiquidityFactor = 95 // 5% spread
	midLiquidityFactor  = 90 // 10% spread
	lowLiquidityFactor  = 85 // 15% spread
)

// OddsPackedVersion identifies the packed wire layout produced by PackOdds.
const OddsPackedVersion = 1

// SizeOddsPacked is the byte size of the packed odds form.
const SizeOddsPacked = 8

// Byte offsets of the packed odds, version 1.
const (
	oddsOffYes            = 0 // uint8
	oddsOffNo             = 1 // uint8
	oddsOffParticipants   = 2 // uint32, little endian
	oddsOffHighConfidence = 6 // uint8 flag
	oddsOffAvgConviction  = 7 // uint8
)

// ComputeOdds derives the implied probabilities of a market from its
// cumulative stake distribution, with a liquidity tiered spread. A market
// with no stake yet prices at 50/50 with low confidence. All divisions
// truncate.
func ComputeOdds(t *types.MarketTally) types.OddsInfo {
	odds := types.OddsInfo{Participants: t.Participants}
	total := t.YesStake + t.NoStake
	if total == 0 {
		odds.YesProbability = 50
		odds.NoProbability = 50
		return odds
	}

	yes := t.YesStake * 100 / total
	no := t.NoStake * 100 / total

	factor := uint64(lowLiquidityFactor)
	switch {
	case total > highLiquidityStake:
		factor = highLiquidityFactor
	case total > midLiquidityStake:
		factor = midLiquidityFactor
	}

	odds.YesProbability = uint8(yes * factor / 100)
	odds.NoProbability = uint8(no * factor / 100)
	odds.HighConfidence = total > midLiquidityStake
	odds.AvgConviction = uint8((t.ConvictionWeightedYes + t.ConvictionWeightedNo) / total)
	return odds
}

// PackOdds packs the odds into the version 1 fixed 8 byte layout.
func PackOdds(o types.OddsInfo) []byte {
	buf := make([]byte, SizeOddsPacked)
	buf[oddsOffYes] = o.YesProbability
	buf[oddsOffNo] = o.NoProbability
	binary.LittleEndian.PutUint32(buf[oddsOffParticipants:], o.Participants)
	if o.HighConfidence {
		buf[oddsOffHighConfidence] = 1
	}
	buf[oddsOffAvgConviction] = o.AvgConviction
	return buf
}

// UnpackOdds parses the version 1 packed layout.
func UnpackOdds(data []byte) (types.OddsInfo, error) {
	if len(data) != SizeOddsPacked {
		return types.OddsInfo{}, fmt.Errorf("invalid packed odds size %d, expected %d", len(data), SizeOddsPacked)
	}
	return types.OddsInfo{
		YesProbability: data[oddsOffYes],
		NoProbability:  data[oddsOffNo],
		Participants:   binary.LittleEndian.Uint32(data[oddsOffParticipants:]),
		HighConfidence: data[oddsOffHighConfidence] == 1,
		AvgConviction:  data[oddsOffAvgConviction],
	}, nil
}
