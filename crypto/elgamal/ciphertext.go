package elgamal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/arbo"
	"github.com/cipherbet/engine/crypto/ecc"
)

// Serialization sizes in bytes.
const (
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext is one ElGamal ciphertext, the pair of curve points produced by
// encrypting a single scalar. Adding two Ciphertexts of the same key yields
// a Ciphertext of the sum of their messages.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a zero Ciphertext on the same curve as the given
// point, which can be obtained from the curves registry.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts message under publicKey and stores the result in z.
// The randomness k may be nil, in which case a fresh scalar is drawn.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		if k, err = RandK(publicKey); err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add sets z to x+y and returns z.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.SafeAdd(x.C1, y.C1)
	z.C2.SafeAdd(x.C2, y.C2)
	return z
}

// Serialize returns a fixed slice of 4*32 bytes holding C1.X, C1.Y, C2.X,
// C2.Y as little-endian affine coordinates.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	for _, coord := range []*big.Int{c1x, c1y, c2x, c2y} {
		buf.Write(arbo.BigIntToBytes(sizeCoord, coord))
	}
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from the output of Serialize. The
// receiver's points must already be allocated on the right curve.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), SizeCiphertext)
	}
	coord := func(i int) *big.Int {
		return arbo.BytesToBigInt(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	z.C1 = z.C1.SetPoint(coord(0), coord(1))
	z.C2 = z.C2.SetPoint(coord(2), coord(3))
	return nil
}

// BigInts returns the four affine coordinates C1.X, C1.Y, C2.X, C2.Y.
func (z *Ciphertext) BigInts() []*big.Int {
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	return []*big.Int{c1x, c1y, c2x, c2y}
}

// String returns a JSON representation of the Ciphertext, for logging.
func (z *Ciphertext) String() string {
	b, err := json.Marshal(z)
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON serializes the Ciphertext to JSON.
func (z *Ciphertext) MarshalJSON() ([]byte, error) {
	c1Bytes, err := json.Marshal(z.C1)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal c1: %w", err)
	}
	c2Bytes, err := json.Marshal(z.C2)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal c2: %w", err)
	}
	tmp := struct {
		C1 json.RawMessage `json:"c1"`
		C2 json.RawMessage `json:"c2"`
	}{c1Bytes, c2Bytes}
	return json.Marshal(tmp)
}

// UnmarshalJSON deserializes the Ciphertext from JSON. The receiver's points
// must already be allocated on the right curve; the enclosing vector's codec
// takes care of that.
func (z *Ciphertext) UnmarshalJSON(data []byte) error {
	var tmp struct {
		C1 json.RawMessage `json:"c1"`
		C2 json.RawMessage `json:"c2"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext container: %w", err)
	}
	if err := json.Unmarshal(tmp.C1, z.C1); err != nil {
		return fmt.Errorf("failed to unmarshal c1: %w", err)
	}
	if err := json.Unmarshal(tmp.C2, z.C2); err != nil {
		return fmt.Errorf("failed to unmarshal c2: %w", err)
	}
	return nil
}

// MarshalCBOR serializes the Ciphertext to CBOR.
func (z *Ciphertext) MarshalCBOR() ([]byte, error) {
	c1Bytes, err := z.C1.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal c1: %w", err)
	}
	c2Bytes, err := z.C2.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal c2: %w", err)
	}
	tmp := struct {
		C1 cbor.RawMessage `cbor:"c1"`
		C2 cbor.RawMessage `cbor:"c2"`
	}{c1Bytes, c2Bytes}
	return cbor.Marshal(tmp)
}

// UnmarshalCBOR deserializes the Ciphertext from CBOR, with the same
// pre-allocation contract as UnmarshalJSON.
func (z *Ciphertext) UnmarshalCBOR(buf []byte) error {
	var tmp struct {
		C1 cbor.RawMessage `cbor:"c1"`
		C2 cbor.RawMessage `cbor:"c2"`
	}
	if err := cbor.Unmarshal(buf, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext container: %w", err)
	}
	if err := z.C1.UnmarshalCBOR(tmp.C1); err != nil {
		return fmt.Errorf("failed to unmarshal c1: %w", err)
	}
	if err := z.C2.UnmarshalCBOR(tmp.C2); err != nil {
		return fmt.Errorf("failed to unmarshal c2: %w", err)
	}
	return nil
}
