package storage

import (
	"fmt"
	"time"

	"github.com/cipherbet/engine/types"
)

// SetPosition stores a position record keyed by its vote id.
func (s *Storage) SetPosition(p *types.Position) error {
	if p == nil || len(p.VoteID) == 0 {
		return fmt.Errorf("position without vote id")
	}
	return s.setArtifact(positionPrefix, p.VoteID, p)
}

// Position retrieves a position by vote id.
func (s *Storage) Position(voteID types.HexBytes) (*types.Position, error) {
	p := &types.Position{}
	if err := s.getArtifact(positionPrefix, voteID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePosition loads a position, applies fn under the global lock and
// stores the result.
func (s *Storage) UpdatePosition(voteID types.HexBytes, fn func(*types.Position) error) (*types.Position, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	p := &types.Position{}
	if err := s.getArtifact(positionPrefix, voteID, p); err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	if err := s.setArtifact(positionPrefix, voteID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PositionsByMarket returns every position of a market. Used when a
// cancelled market flips its positions to refundable.
func (s *Storage) PositionsByMarket(marketID uint64) ([]*types.Position, error) {
	var positions []*types.Position
	if err := s.iterateArtifacts(positionPrefix, func(_, v []byte) bool {
		var p types.Position
		if err := decodeArtifact(v, &p); err != nil {
			return true
		}
		if p.MarketID == marketID {
			positions = append(positions, &p)
		}
		return true
	}); err != nil {
		return nil, err
	}
	return positions, nil
}

// RequestClaim flips a position into the claim requested state. The gate is
// checked and set atomically: only an accepted position with no claim id
// passes, so a claim can be opened at most once per position.
func (s *Storage) RequestClaim(voteID, claimID types.HexBytes) (*types.Position, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	p := &types.Position{}
	if err := s.getArtifact(positionPrefix, voteID, p); err != nil {
		return nil, err
	}
	if len(p.ClaimID) != 0 {
		return nil, ErrKeyAlreadyExists
	}
	if p.Status != types.PositionAccepted {
		return nil, fmt.Errorf("position is %s, not claimable", p.Status)
	}
	p.Status = types.PositionClaimRequested
	p.ClaimID = claimID
	p.UpdatedAt = time.Now()
	if err := s.setArtifact(positionPrefix, voteID, p); err != nil {
		return nil, err
	}
	if err := s.setArtifact(claimIndexPrefix, claimID, &p.VoteID); err != nil {
		return nil, err
	}
	return p, nil
}

// PositionByClaim resolves a claim id to its position.
func (s *Storage) PositionByClaim(claimID types.HexBytes) (*types.Position, error) {
	var voteID types.HexBytes
	if err := s.getArtifact(claimIndexPrefix, claimID, &voteID); err != nil {
		return nil, err
	}
	return s.Position(voteID)
}
