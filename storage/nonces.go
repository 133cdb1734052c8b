package storage

import (
	"time"

	"github.com/cipherbet/engine/types"
)

// nonceKey derives the ledger key for one (market, voter, nonce) triple.
func nonceKey(marketID uint64, voter, nonce types.HexBytes) []byte {
	data := marketKey(marketID)
	data = append(data, voter...)
	data = append(data, nonce...)
	return hashKey(data)
}

// RegisterNonce records a nonce for a voter in a market. A repeated nonce
// returns ErrKeyAlreadyExists, which is how vote replays are rejected while
// resubmission after a lost job stays safe.
func (s *Storage) RegisterNonce(marketID uint64, voter, nonce types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	key := nonceKey(marketID, voter, nonce)
	if s.hasArtifact(noncePrefix, key) {
		return ErrKeyAlreadyExists
	}
	return s.setArtifact(noncePrefix, key, time.Now().Unix())
}

// HasNonce reports whether the nonce was already registered.
func (s *Storage) HasNonce(marketID uint64, voter, nonce types.HexBytes) bool {
	return s.hasArtifact(noncePrefix, nonceKey(marketID, voter, nonce))
}
