package storage

import (
	"time"

	"github.com/cipherbet/engine/types"
)

// SetSettlement persists the settlement record of a resolved market.
func (s *Storage) SetSettlement(st *types.Settlement) error {
	if st.SettledAt.IsZero() {
		st.SettledAt = time.Now()
	}
	return s.setArtifact(settlementPrefix, marketKey(st.MarketID), st)
}

// Settlement returns the settlement record of a market, or ErrNotFound if
// the market has not been resolved.
func (s *Storage) Settlement(marketID uint64) (*types.Settlement, error) {
	st := &types.Settlement{}
	if err := s.getArtifact(settlementPrefix, marketKey(marketID), st); err != nil {
		return nil, err
	}
	return st, nil
}

// HasSettlement reports whether the market already carries a settlement,
// making resolution idempotent.
func (s *Storage) HasSettlement(marketID uint64) bool {
	return s.hasArtifact(settlementPrefix, marketKey(marketID))
}
