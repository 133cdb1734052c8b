package elgamal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/crypto/ecc/curves"
	"github.com/cipherbet/engine/types"
)

// SizeStateVector is the byte length of a serialized StateVector.
const SizeStateVector = types.StateNumFields * SizeCiphertext

// StateVector is the encrypted form of a market's accumulating tally: one
// Ciphertext per state field, all under the market's encryption key. Votes
// are folded in by adding an encrypted per-vote delta vector, so the running
// state never needs to be decrypted. Field order follows the
// types.StateField indices.
type StateVector struct {
	CurveType   string                              `json:"curveType"`
	Ciphertexts [types.StateNumFields]*Ciphertext `json:"ciphertexts"`
}

// NewStateVector creates a zero StateVector on the given curve.
func NewStateVector(curve ecc.Point) *StateVector {
	sv := &StateVector{
		CurveType:   curve.Type(),
		Ciphertexts: [types.StateNumFields]*Ciphertext{},
	}
	for i := range sv.Ciphertexts {
		sv.Ciphertexts[i] = NewCiphertext(curve)
	}
	return sv
}

// Valid reports whether all ciphertexts are allocated and the curve type is
// supported.
func (sv *StateVector) Valid() bool {
	for _, ct := range sv.Ciphertexts {
		if ct == nil {
			return false
		}
	}
	for _, curve := range curves.Curves() {
		if sv.CurveType == curve {
			return true
		}
	}
	return false
}

// Encrypt encrypts one scalar per state field under publicKey and stores the
// results in sv. The randomness k may be nil to draw a fresh scalar per
// field.
func (sv *StateVector) Encrypt(messages [types.StateNumFields]*big.Int, publicKey ecc.Point, k *big.Int) (*StateVector, error) {
	for i := range sv.Ciphertexts {
		if _, err := sv.Ciphertexts[i].Encrypt(messages[i], publicKey, k); err != nil {
			return nil, err
		}
	}
	return sv, nil
}

// EncryptDelta encrypts an unsigned per-vote delta vector under publicKey.
// Zero fields are encrypted too: they contribute nothing to the sum but
// re-randomize the accumulator on every fold.
func (sv *StateVector) EncryptDelta(delta [types.StateNumFields]uint64, publicKey ecc.Point) (*StateVector, error) {
	var messages [types.StateNumFields]*big.Int
	for i, d := range delta {
		messages[i] = new(big.Int).SetUint64(d)
	}
	return sv.Encrypt(messages, publicKey, nil)
}

// Add sets sv to x+y field by field and returns sv.
func (sv *StateVector) Add(x, y *StateVector) *StateVector {
	for i := range sv.Ciphertexts {
		sv.Ciphertexts[i].Add(x.Ciphertexts[i], y.Ciphertexts[i])
	}
	return sv
}

// Serialize returns a fixed slice of StateNumFields*4*32 bytes holding each
// ciphertext's affine coordinates in field order.
func (sv *StateVector) Serialize() []byte {
	var buf bytes.Buffer
	for _, ct := range sv.Ciphertexts {
		buf.Write(ct.Serialize())
	}
	return buf.Bytes()
}

// Deserialize reconstructs a StateVector from the output of Serialize. The
// receiver's ciphertexts must already be allocated on the right curve.
func (sv *StateVector) Deserialize(data []byte) error {
	if len(data) != SizeStateVector {
		return fmt.Errorf("invalid input length for StateVector: got %d bytes, expected %d bytes", len(data), SizeStateVector)
	}
	for i := range sv.Ciphertexts {
		if err := sv.Ciphertexts[i].Deserialize(data[i*SizeCiphertext : (i+1)*SizeCiphertext]); err != nil {
			return err
		}
	}
	return nil
}

// BigInts returns the StateNumFields*4 affine coordinates of the vector in
// field order, suitable for hashing into a commitment tree leaf.
func (sv *StateVector) BigInts() []*big.Int {
	list := make([]*big.Int, 0, types.StateNumFields*4)
	for _, ct := range sv.Ciphertexts {
		list = append(list, ct.BigInts()...)
	}
	return list
}

// String returns a JSON representation of the StateVector, for logging.
func (sv *StateVector) String() string {
	b, err := json.Marshal(sv)
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON serializes the StateVector to JSON.
func (sv *StateVector) MarshalJSON() ([]byte, error) {
	rawCts := make([]json.RawMessage, len(sv.Ciphertexts))
	for i, ct := range sv.Ciphertexts {
		ctBytes, err := json.Marshal(ct)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ciphertext[%d]: %w", i, err)
		}
		rawCts[i] = ctBytes
	}
	tmp := struct {
		CurveType   string            `json:"curveType"`
		Ciphertexts []json.RawMessage `json:"ciphertexts"`
	}{sv.CurveType, rawCts}
	return json.Marshal(tmp)
}

// UnmarshalJSON deserializes the StateVector from JSON, allocating the
// ciphertext points on the curve named by the payload.
func (sv *StateVector) UnmarshalJSON(data []byte) error {
	var tmp struct {
		CurveType   string            `json:"curveType"`
		Ciphertexts []json.RawMessage `json:"ciphertexts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal state vector container: %w", err)
	}
	if len(tmp.Ciphertexts) != types.StateNumFields {
		return fmt.Errorf("expected %d ciphertexts, got %d", types.StateNumFields, len(tmp.Ciphertexts))
	}
	curve, err := curves.New(tmp.CurveType)
	if err != nil {
		return err
	}
	sv.CurveType = tmp.CurveType
	for i, raw := range tmp.Ciphertexts {
		ct := NewCiphertext(curve)
		if err := ct.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("failed to unmarshal ciphertext[%d]: %w", i, err)
		}
		sv.Ciphertexts[i] = ct
	}
	return nil
}

// MarshalCBOR serializes the StateVector to CBOR.
func (sv *StateVector) MarshalCBOR() ([]byte, error) {
	rawCts := make([]cbor.RawMessage, len(sv.Ciphertexts))
	for i, ct := range sv.Ciphertexts {
		raw, err := ct.MarshalCBOR()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ciphertext[%d]: %w", i, err)
		}
		rawCts[i] = raw
	}
	tmp := struct {
		CurveType   string            `cbor:"curveType"`
		Ciphertexts []cbor.RawMessage `cbor:"ciphertexts"`
	}{sv.CurveType, rawCts}
	return cbor.Marshal(tmp)
}

// UnmarshalCBOR deserializes the StateVector from CBOR, allocating the
// ciphertext points on the curve named by the payload.
func (sv *StateVector) UnmarshalCBOR(buf []byte) error {
	var tmp struct {
		CurveType   string            `cbor:"curveType"`
		Ciphertexts []cbor.RawMessage `cbor:"ciphertexts"`
	}
	if err := cbor.Unmarshal(buf, &tmp); err != nil {
		return err
	}
	if len(tmp.Ciphertexts) != types.StateNumFields {
		return fmt.Errorf("expected %d ciphertexts, got %d", types.StateNumFields, len(tmp.Ciphertexts))
	}
	curve, err := curves.New(tmp.CurveType)
	if err != nil {
		return err
	}
	sv.CurveType = tmp.CurveType
	for i, raw := range tmp.Ciphertexts {
		ct := NewCiphertext(curve)
		if err := ct.UnmarshalCBOR(raw); err != nil {
			return fmt.Errorf("failed to unmarshal ciphertext[%d]: %w", i, err)
		}
		sv.Ciphertexts[i] = ct
	}
	return nil
}
