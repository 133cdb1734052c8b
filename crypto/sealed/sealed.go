// Package sealed implements the asymmetric sealing used by access contexts.
// Clients seal vote payloads to the engine cluster key and the engine seals
// verdicts, payouts and reports back to per-request reply keys. The
// construction is ECIES over secp256k1 (ECDH + AES-CTR + HMAC-SHA-256) as
// implemented by go-ethereum.
package sealed

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"

	"github.com/cipherbet/engine/types"
)

// Identity is an ECIES key pair. The engine cluster holds one long lived
// identity, while clients mint ephemeral reply identities per request.
type Identity struct {
	priv *ecies.PrivateKey
}

// GenerateIdentity creates a new random sealing identity.
func GenerateIdentity() (*Identity, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Identity{priv: ecies.ImportECDSA(key)}, nil
}

// IdentityFromBytes restores an identity from its serialized private scalar.
func IdentityFromBytes(data []byte) (*Identity, error) {
	key, err := ethcrypto.ToECDSA(data)
	if err != nil {
		return nil, fmt.Errorf("cannot restore sealing identity: %w", err)
	}
	return &Identity{priv: ecies.ImportECDSA(key)}, nil
}

// Bytes returns the serialized private scalar of the identity.
func (i *Identity) Bytes() types.HexBytes {
	return ethcrypto.FromECDSA(i.priv.ExportECDSA())
}

// PublicKey returns the uncompressed public key recipients seal to.
func (i *Identity) PublicKey() types.HexBytes {
	return ethcrypto.FromECDSAPub(i.priv.PublicKey.ExportECDSA())
}

// Open decrypts a ciphertext sealed to this identity.
func (i *Identity) Open(ciphertext []byte) ([]byte, error) {
	message, err := i.priv.Decrypt(ciphertext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open sealed payload: %w", err)
	}
	return message, nil
}

// Seal encrypts a message to the given recipient public key, either
// compressed (33 bytes) or uncompressed (65 bytes).
func Seal(message, recipientPub []byte) (types.HexBytes, error) {
	pub, err := parsePublicKey(recipientPub)
	if err != nil {
		return nil, err
	}
	ciphertext, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pub), message, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot seal payload: %w", err)
	}
	return ciphertext, nil
}

func parsePublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	switch len(pub) {
	case 33:
		return ethcrypto.DecompressPubkey(pub)
	case 65:
		return ethcrypto.UnmarshalPubkey(pub)
	default:
		return nil, fmt.Errorf("invalid recipient public key length %d", len(pub))
	}
}
