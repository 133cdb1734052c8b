package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cipherbet/engine/types"
)

// NewMarketID allocates the next market identifier under the global lock.
// Identifiers start at 1 and never repeat, even across restarts.
func (s *Storage) NewMarketID() (uint64, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	var last uint64
	if err := s.getArtifact(marketSeqPrefix, []byte("last"), &last); err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	next := last + 1
	if err := s.setArtifact(marketSeqPrefix, []byte("last"), &next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetMarket stores a market record, overwriting any previous version.
func (s *Storage) SetMarket(m *types.Market) error {
	if m == nil {
		return fmt.Errorf("nil market")
	}
	return s.setArtifact(marketPrefix, marketKey(m.ID), m)
}

// Market retrieves a market record. Returns ErrNotFound if it does not
// exist.
func (s *Storage) Market(marketID uint64) (*types.Market, error) {
	m := &types.Market{}
	if err := s.getArtifact(marketPrefix, marketKey(marketID), m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMarket loads a market, applies fn under the global lock and stores
// the result. Lifecycle transitions go through here so concurrent authority
// calls cannot interleave.
func (s *Storage) UpdateMarket(marketID uint64, fn func(*types.Market) error) (*types.Market, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	m := &types.Market{}
	if err := s.getArtifact(marketPrefix, marketKey(marketID), m); err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.setArtifact(marketPrefix, marketKey(marketID), m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMarkets returns the ids of every stored market in ascending order.
func (s *Storage) ListMarkets() ([]uint64, error) {
	keys, err := s.listArtifacts(marketPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(keys))
	for _, k := range keys {
		if len(k) != 8 {
			continue
		}
		ids = append(ids, binary.BigEndian.Uint64(k))
	}
	return ids, nil
}

// InitMarketState stores the freshly encrypted zero state of a new market
// at version zero. It fails with ErrKeyAlreadyExists if the market already
// has a state vector.
func (s *Storage) InitMarketState(marketID uint64, vector, root types.HexBytes) (*MarketVotingState, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	key := marketKey(marketID)
	if s.hasArtifact(statePrefix, key) {
		return nil, ErrKeyAlreadyExists
	}
	st := &MarketVotingState{
		MarketID:  marketID,
		Version:   0,
		Vector:    vector,
		Root:      root,
		UpdatedAt: time.Now(),
	}
	if err := s.setArtifact(statePrefix, key, st); err != nil {
		return nil, err
	}
	return st, nil
}

// MarketState loads the encrypted aggregate of a market.
func (s *Storage) MarketState(marketID uint64) (*MarketVotingState, error) {
	st := &MarketVotingState{}
	if err := s.getArtifact(statePrefix, marketKey(marketID), st); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateMarketState replaces the state vector of a market if and only if
// the stored version still equals expectedVersion. On success the version
// is bumped by one and the stored state returned; if another writer got
// there first it returns ErrVersionMismatch and the caller re-reads and
// re-folds its delta.
func (s *Storage) UpdateMarketState(marketID, expectedVersion uint64, vector, root types.HexBytes) (*MarketVotingState, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	key := marketKey(marketID)
	cur := &MarketVotingState{}
	if err := s.getArtifact(statePrefix, key, cur); err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		return nil, ErrVersionMismatch
	}
	st := &MarketVotingState{
		MarketID:  marketID,
		Version:   expectedVersion + 1,
		Vector:    vector,
		Root:      root,
		UpdatedAt: time.Now(),
	}
	if err := s.setArtifact(statePrefix, key, st); err != nil {
		return nil, err
	}
	return st, nil
}
