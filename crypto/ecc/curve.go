package ecc

import (
	"math/big"

	"github.com/cipherbet/engine/types"
)

// Point is the interface implemented by the elliptic curve groups usable as
// an ElGamal message space. Implementations wrap a concrete affine point and
// expose the group operations the settlement engine needs: addition for the
// homomorphic fold, scalar multiplication for key and message encoding, and
// a stable serialization for storage and hashing.
type Point interface {
	// New returns a new point on the same curve, set to the identity.
	New() Point

	// Order returns the order of the curve subgroup.
	Order() *big.Int

	// Add sets the receiver to a+b.
	Add(a, b Point)

	// SafeAdd sets the receiver to a+b holding the receiver's lock, so
	// concurrent folds into the same accumulator do not race.
	SafeAdd(a, b Point)

	// ScalarMult sets the receiver to scalar*a.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to scalar*G, where G is the curve
	// generator.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point using the curve's native encoding.
	Marshal() []byte

	// Unmarshal deserializes a point produced by Marshal.
	Unmarshal(buf []byte) error

	// MarshalCBOR serializes the point as a CBOR coordinate pair.
	MarshalCBOR() ([]byte, error)

	// UnmarshalCBOR deserializes a point produced by MarshalCBOR.
	UnmarshalCBOR(buf []byte) error

	// Equal reports whether the receiver and a are the same point.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set copies a into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the curve generator.
	SetGenerator()

	// String returns a short human readable representation of the point.
	String() string

	// Point returns the affine X and Y coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint builds a new point from affine X and Y coordinates.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve type identifier used by the curves registry.
	Type() string
}

// PointEC is the JSON shape of an affine point.
type PointEC struct {
	X types.BigInt `json:"x"`
	Y types.BigInt `json:"y"`
}
