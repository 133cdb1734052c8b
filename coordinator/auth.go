package coordinator

import (
	"encoding/binary"
	"fmt"

	"github.com/cipherbet/engine/crypto/ethereum"
	"github.com/cipherbet/engine/types"
)

// Authority operation names, bound into the signed digest.
const (
	OpLock        = "lock"
	OpResolve     = "resolve"
	OpCancel      = "cancel"
	OpFinalize    = "finalize"
	OpClearReview = "clearReview"
)

// AuthorityAction is a signed lifecycle operation on a market. The digest
// binds the operation name, the market and, for resolutions, the outcome,
// so a signature cannot be replayed against another market or another
// operation.
type AuthorityAction struct {
	MarketID  uint64         `json:"marketId"`
	Op        string         `json:"op"`
	Outcome   uint8          `json:"outcome,omitempty"`
	Signature types.HexBytes `json:"signature,omitempty"`
}

// Digest returns the message the authority signs.
func (a *AuthorityAction) Digest() []byte {
	msg := make([]byte, 0, 32)
	msg = append(msg, []byte("authority/")...)
	msg = append(msg, []byte(a.Op)...)
	msg = append(msg, '/')
	msg = binary.BigEndian.AppendUint64(msg, a.MarketID)
	if a.Op == OpResolve {
		msg = append(msg, a.Outcome)
	}
	return ethereum.HashRaw(msg)
}

// Authorize verifies the action signature against the market's authority
// and dispatches the operation. Lifecycle transitions are one way, so a
// replayed action lands on a status check and is rejected there.
func (c *Coordinator) Authorize(a *AuthorityAction) error {
	if a == nil {
		return fmt.Errorf("empty authority action")
	}
	market, err := c.stg.Market(a.MarketID)
	if err != nil {
		return err
	}
	signer, err := ethereum.AddrFromSignature(a.Digest(), a.Signature)
	if err != nil {
		return fmt.Errorf("cannot recover action signer: %w", err)
	}
	if signer != market.Authority {
		return fmt.Errorf("signer is not the market authority")
	}
	switch a.Op {
	case OpLock:
		return c.LockMarket(a.MarketID)
	case OpResolve:
		return c.ResolveMarket(a.MarketID, a.Outcome)
	case OpCancel:
		return c.CancelMarket(a.MarketID)
	case OpFinalize:
		return c.FinalizeMarket(a.MarketID)
	case OpClearReview:
		return c.ClearReview(a.MarketID)
	default:
		return fmt.Errorf("unknown authority operation %q", a.Op)
	}
}
