package storage

import (
	"encoding/binary"
	"time"

	"github.com/cipherbet/engine/types"
)

// PushOddsSnapshot stores a snapshot as the market's latest odds and
// appends it to the history, keyed by the state version it was derived
// from.
func (s *Storage) PushOddsSnapshot(o *types.OddsSnapshot) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if err := s.setArtifact(oddsPrefix, marketKey(o.MarketID), o); err != nil {
		return err
	}
	histKey := make([]byte, 16)
	binary.BigEndian.PutUint64(histKey[:8], o.MarketID)
	binary.BigEndian.PutUint64(histKey[8:], o.Version)
	return s.setArtifact(oddsHistoryPrefix, histKey, o)
}

// LatestOdds returns the most recent odds snapshot of a market.
func (s *Storage) LatestOdds(marketID uint64) (*types.OddsSnapshot, error) {
	o := &types.OddsSnapshot{}
	if err := s.getArtifact(oddsPrefix, marketKey(marketID), o); err != nil {
		return nil, err
	}
	return o, nil
}

// OddsHistory returns every odds snapshot of a market in state version
// order.
func (s *Storage) OddsHistory(marketID uint64) ([]*types.OddsSnapshot, error) {
	var history []*types.OddsSnapshot
	var iterErr error
	if err := s.iterateArtifacts(oddsHistoryPrefix, func(k, v []byte) bool {
		if len(k) != 16 || binary.BigEndian.Uint64(k[:8]) != marketID {
			return true
		}
		o := &types.OddsSnapshot{}
		if err := decodeArtifact(v, o); err != nil {
			iterErr = err
			return false
		}
		history = append(history, o)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return history, nil
}
