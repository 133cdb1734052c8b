package types

const (
	// VoteBatchCapacity is the fixed slot count of a bulk aggregation batch.
	// The computation shape is static, so batches always carry this many
	// slots plus an explicit active count.
	VoteBatchCapacity = 100
	// CollusionWindowCapacity is the fixed slot count of the manipulation
	// detector's vote window.
	CollusionWindowCapacity = 50
	// ReturnHistorySlots is the fixed slot count of a portfolio return history.
	ReturnHistorySlots = 30
	// PeerSetSlots is the fixed slot count of a peer comparison set.
	PeerSetSlots = 100
	// SqrtIterations is the number of Newton rounds used by the integer
	// square root. Downstream verifiers expect exactly this approximation.
	SqrtIterations = 8
	// MarketStateMaxLevels is the maximum number of levels in a market
	// commitment merkle tree.
	MarketStateMaxLevels = 160
)

// Indices of the accumulating fields inside an encrypted market state
// vector. The order is part of the state serialization and must not change.
const (
	StateFieldYesVotes = iota
	StateFieldNoVotes
	StateFieldSkipVotes
	StateFieldYesStake
	StateFieldNoStake
	StateFieldParticipants
	StateFieldProbabilitySum
	StateFieldConvictionYes
	StateFieldConvictionNo
	StateFieldLastUpdated

	// StateNumFields is the length of the state vector.
	StateNumFields = iota
)
