package engine

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cipherbet/engine/crypto/sealed"
	"github.com/cipherbet/engine/types"
)

// EncodeVotePayload serializes a vote for sealing. Clients call this before
// encrypting to the cluster key; the engine reverses it inside job
// executors.
func EncodeVotePayload(v *types.VoteData) ([]byte, error) {
	return cbor.Marshal(v)
}

// EncodeRiskRequest serializes a risk analysis request for sealing.
func EncodeRiskRequest(r *types.RiskRequest) ([]byte, error) {
	return cbor.Marshal(r)
}

// openVote unseals and decodes one vote payload.
func (e *Engine) openVote(payload []byte) (*types.VoteData, error) {
	plaintext, err := e.identity.Open(payload)
	if err != nil {
		return nil, err
	}
	vote := &types.VoteData{}
	if err := cbor.Unmarshal(plaintext, vote); err != nil {
		return nil, fmt.Errorf("cannot decode vote payload: %w", err)
	}
	return vote, nil
}

// openRiskRequest unseals and decodes one risk request payload.
func (e *Engine) openRiskRequest(payload []byte) (*types.RiskRequest, error) {
	plaintext, err := e.identity.Open(payload)
	if err != nil {
		return nil, err
	}
	req := &types.RiskRequest{}
	if err := cbor.Unmarshal(plaintext, req); err != nil {
		return nil, fmt.Errorf("cannot decode risk request: %w", err)
	}
	return req, nil
}

// sealReport encodes an artifact and seals it to the reply key. With no
// reply key there is nothing to seal and nil is returned.
func sealReport(artifact any, replyPublicKey types.HexBytes) (types.HexBytes, error) {
	if len(replyPublicKey) == 0 {
		return nil, nil
	}
	data, err := cbor.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("cannot encode report: %w", err)
	}
	return sealed.Seal(data, replyPublicKey)
}
