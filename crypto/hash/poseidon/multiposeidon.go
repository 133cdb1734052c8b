// Package poseidon hashes arbitrary-width inputs with the Poseidon
// permutation, which natively accepts at most 16 field elements.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// maxChunkSize is the widest input the underlying permutation accepts.
const maxChunkSize = 16

// maxInputs bounds the total width so the result stays a two level tree.
const maxInputs = maxChunkSize * maxChunkSize

// MultiPoseidon hashes up to 256 field elements by splitting them into
// 16-wide chunks, hashing each chunk and, when more than one chunk exists,
// hashing the chunk digests together. A single chunk hashes directly to its
// own digest. The in-circuit gadget mirrors this construction, so the
// chunking must not change.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	if len(inputs) > maxInputs {
		return nil, fmt.Errorf("too many inputs: %d > %d", len(inputs), maxInputs)
	}
	var digests []*big.Int
	for start := 0; start < len(inputs); start += maxChunkSize {
		end := start + maxChunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		digest, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, err
		}
		digests = append(digests, digest)
	}
	if len(digests) == 1 {
		return digests[0], nil
	}
	return poseidon.Hash(digests)
}
