package bn254

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"
	curve "github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/types"
)

const CurveType = "bn254"

var generator bn254.G1Affine

func init() {
	_, _, generator, _ = bn254.Generators()
}

// G1 wraps a BN254 G1 affine point. It is the default group used for the
// homomorphic market state.
type G1 struct {
	inner *bn254.G1Affine
	lock  sync.Mutex
}

func New() curve.Point {
	return &G1{inner: new(bn254.G1Affine)}
}

func (g *G1) New() curve.Point {
	return &G1{inner: new(bn254.G1Affine)}
}

func (g *G1) Order() *big.Int {
	return fr.Modulus()
}

func (g *G1) Add(a, b curve.Point) {
	res := new(bn254.G1Affine)
	res.Add(a.(*G1).inner, b.(*G1).inner)
	g.inner.Set(res)
}

func (g *G1) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.inner.Add(a.(*G1).inner, b.(*G1).inner)
}

func (g *G1) ScalarMult(a curve.Point, scalar *big.Int) {
	res := new(bn254.G1Affine)
	res.ScalarMultiplication(a.(*G1).inner, scalar)
	g.inner.Set(res)
}

func (g *G1) ScalarBaseMult(scalar *big.Int) {
	g.inner.ScalarMultiplicationBase(scalar)
}

func (g *G1) Marshal() []byte {
	return g.inner.Marshal()
}

func (g *G1) Unmarshal(buf []byte) error {
	_, err := g.inner.SetBytes(buf)
	return err
}

func (g *G1) MarshalJSON() ([]byte, error) {
	p := &curve.PointEC{}
	p.X = types.BigInt(*g.inner.X.BigInt(new(big.Int)))
	p.Y = types.BigInt(*g.inner.Y.BigInt(new(big.Int)))
	return json.Marshal(p)
}

func (g *G1) UnmarshalJSON(buf []byte) error {
	if g.inner == nil {
		g.inner = new(bn254.G1Affine)
	}
	p := &curve.PointEC{}
	if err := json.Unmarshal(buf, p); err != nil {
		return err
	}
	g.inner.X.SetBigInt(p.X.MathBigInt())
	g.inner.Y.SetBigInt(p.Y.MathBigInt())
	return nil
}

func (g *G1) MarshalCBOR() ([]byte, error) {
	x, y := g.Point()
	return cbor.Marshal([]*big.Int{x, y})
}

func (g *G1) UnmarshalCBOR(buf []byte) error {
	if g.inner == nil {
		g.inner = new(bn254.G1Affine)
	}
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner.X.SetBigInt(coords[0])
	g.inner.Y.SetBigInt(coords[1])
	return nil
}

func (g *G1) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*G1).inner)
}

func (g *G1) Neg(a curve.Point) {
	g.inner.Neg(a.(*G1).inner)
}

// SetZero sets g to the point at infinity, which gnark-crypto represents in
// affine coordinates as (0, 0).
func (g *G1) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetZero()
}

func (g *G1) Set(a curve.Point) {
	g.inner.Set(a.(*G1).inner)
}

func (g *G1) SetGenerator() {
	g.inner.Set(&generator)
}

func (g *G1) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}

func (g *G1) Point() (*big.Int, *big.Int) {
	return g.inner.X.BigInt(new(big.Int)), g.inner.Y.BigInt(new(big.Int))
}

func (g *G1) SetPoint(x, y *big.Int) curve.Point {
	p := &G1{inner: new(bn254.G1Affine)}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	return p
}

func (g *G1) Type() string {
	return CurveType
}
