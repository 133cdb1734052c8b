package engine

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/arbo"

	"github.com/cipherbet/engine/crypto/elgamal"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/types"
)

// InitializeMarket provisions the cryptographic material of a new market:
// an ElGamal keypair, the zero encrypted aggregates and the commitment
// tree. It returns the public encryption key and the genesis root; the
// private key goes to storage and never leaves the engine's reveal paths.
func (e *Engine) InitializeMarket(market *types.Market) (*types.EncryptionKey, types.HexBytes, error) {
	publicKey, privateKey, err := elgamal.GenerateKey(e.curve)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot generate market keypair: %w", err)
	}
	if err := e.stg.SetEncryptionKeys(market.ID, publicKey, privateKey); err != nil {
		return nil, nil, fmt.Errorf("cannot store market keypair: %w", err)
	}

	// zero aggregates: every slot encrypts zero so the first fold starts
	// from a well formed vector
	vector, err := elgamal.NewStateVector(e.curve).EncryptDelta([types.StateNumFields]uint64{}, publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot encrypt zero aggregates: %w", err)
	}
	serialized := vector.Serialize()

	st, err := e.state(market.ID)
	if err != nil {
		return nil, nil, err
	}
	rulesHash, err := hashRules(market.Rules)
	if err != nil {
		return nil, nil, err
	}
	x, y := publicKey.Point()
	keyBytes := append(arbo.BigIntToBytes(32, x), arbo.BigIntToBytes(32, y)...)
	if err := st.Initialize(market.Authority.Bytes(), rulesHash, keyBytes, serialized); err != nil {
		return nil, nil, err
	}
	root, err := st.Root()
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.stg.InitMarketState(market.ID, serialized, root); err != nil {
		return nil, nil, fmt.Errorf("cannot store genesis state: %w", err)
	}

	log.Infow("market state initialized",
		"market", market.ID,
		"root", types.HexBytes(root).String(),
	)
	return &types.EncryptionKey{X: x, Y: y}, root, nil
}

func hashRules(rules *types.MarketRules) ([]byte, error) {
	data, err := cbor.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("cannot hash market rules: %w", err)
	}
	return ethcrypto.Keccak256(data), nil
}
