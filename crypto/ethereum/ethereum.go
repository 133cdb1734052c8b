// Package ethereum provides secp256k1 signing keys and helpers for the
// envelope signatures used by the settlement ledger. Signatures follow the
// Ethereum personal-message convention so any standard wallet can produce
// them.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

// SignatureLength is the expected size of an ECDSA signature in bytes.
const SignatureLength = ethcrypto.SignatureLength

// SigningPrefix is prepended to every message before hashing, following the
// Ethereum personal-message convention.
const SigningPrefix = "\u0019Ethereum Signed Message:\n"

// SignKeys holds an ECDSA key pair used to sign vote envelopes and
// authority operations.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys. Call Generate or AddHexKey to
// populate it.
func NewSignKeys() *SignKeys {
	return new(SignKeys)
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return fmt.Errorf("cannot import key: %w", err)
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings without the 0x prefix.
func (k *SignKeys) HexString() (string, string) {
	return hex.EncodeToString(k.PublicKey()), hex.EncodeToString(k.PrivateKey())
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() types.HexBytes {
	return ethcrypto.CompressPubkey(&k.Public)
}

// PrivateKey returns the raw private key bytes.
func (k *SignKeys) PrivateKey() types.HexBytes {
	return ethcrypto.FromECDSA(&k.Private)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the hex string representation of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// VoterID returns the 32 byte identity commitment of the key holder: the
// keccak256 hash of the uncompressed public key point.
func (k *SignKeys) VoterID() types.HexBytes {
	return HashRaw(ethcrypto.FromECDSAPub(&k.Public)[1:])
}

// SignEthereum signs the message with the Ethereum personal-message prefix
// and returns the 65 byte [R || S || V] signature.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(HashEthereum(message), &k.Private)
}

// HashRaw computes the keccak256 hash of data without any prefix.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// HashEthereum computes the keccak256 hash of data prefixed following the
// Ethereum personal-message convention.
func HashEthereum(data []byte) []byte {
	return HashRaw([]byte(fmt.Sprintf("%s%d%s", SigningPrefix, len(data), data)))
}

// PubKeyFromSignature recovers the compressed public key that signed the
// prefixed message.
func PubKeyFromSignature(message, signature []byte) (types.HexBytes, error) {
	pub, err := sigToPub(message, signature)
	if err != nil {
		return nil, err
	}
	return ethcrypto.CompressPubkey(pub), nil
}

// AddrFromSignature recovers the address that signed the prefixed message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	pub, err := sigToPub(message, signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VoterIDFromSignature recovers the 32 byte identity commitment of the
// signer of the prefixed message.
func VoterIDFromSignature(message, signature []byte) (types.HexBytes, error) {
	pub, err := sigToPub(message, signature)
	if err != nil {
		return nil, err
	}
	return HashRaw(ethcrypto.FromECDSAPub(pub)[1:]), nil
}

// AddrFromPublicKey computes the Ethereum address from a compressed or
// uncompressed public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	pubKey, err := parsePublicKey(pub)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

func parsePublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	switch len(pub) {
	case 33:
		return ethcrypto.DecompressPubkey(pub)
	case 65:
		return ethcrypto.UnmarshalPubkey(pub)
	default:
		return nil, fmt.Errorf("invalid public key length %d", len(pub))
	}
}

func sigToPub(message, signature []byte) (*ecdsa.PublicKey, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("signature length not valid: %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	// accept signatures with the legacy 27/28 recovery id
	if sig[64] > 1 {
		sig[64] -= 27
	}
	return ethcrypto.SigToPub(HashEthereum(message), sig)
}
