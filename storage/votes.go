package storage

import (
	"errors"

	"github.com/cipherbet/engine/types"
)

// PushAcceptedVote appends a sealed accepted vote to the market's detection
// window, keeping only the most recent CollusionWindowCapacity entries.
func (s *Storage) PushAcceptedVote(marketID uint64, sealed types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	key := marketKey(marketID)
	w := &voteWindow{}
	if err := s.getArtifact(windowPrefix, key, w); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	w.Sealed = append(w.Sealed, sealed)
	if len(w.Sealed) > types.CollusionWindowCapacity {
		w.Sealed = w.Sealed[len(w.Sealed)-types.CollusionWindowCapacity:]
	}
	return s.setArtifact(windowPrefix, key, w)
}

// AcceptedVoteWindow returns the sealed votes currently in the market's
// detection window, oldest first. An empty window is not an error.
func (s *Storage) AcceptedVoteWindow(marketID uint64) ([]types.HexBytes, error) {
	w := &voteWindow{}
	if err := s.getArtifact(windowPrefix, marketKey(marketID), w); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return w.Sealed, nil
}
