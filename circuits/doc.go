package circuits

// The circuits package contains the fixed computation graphs of the
// settlement engine. Each family is a pure integer function with a static
// shape: fixed capacity arrays with explicit active counts, truncating
// integer division, and explicit default branches instead of traps. The
// engine runs them over unsealed payloads inside computation jobs; nothing
// here performs I/O or touches storage.
//
// The families are:
//  1. ValidateVote    - shape and bound checks, one verdict byte.
//  2. ApplyVote       - fold one vote into a market tally (the incremental
//                       aggregation rule; FoldBatch is the bulk form).
//  3. ComputeOdds     - liquidity adjusted implied probabilities.
//  4. ComputePayout   - settle one position against a resolved outcome.
//  5. DetectPair and
//     DetectWindow    - coordination heuristics over vote batches.
//  6. Risk metrics    - volatility, Sharpe, VaR and peer percentile over
//                       fixed return histories.
//
// The fold rule is a monoid accumulator: folding is commutative and
// associative per vote, so batch and incremental aggregation agree for any
// ordering. Revealed outputs use the versioned layouts in this package
// (TallySummary, PackOdds) and nothing else.
