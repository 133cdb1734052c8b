package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/fxamacker/cbor/v2"
	curve "github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/types"
)

const CurveType = "bjj_gnark"

var params babyjubjub.CurveParams

func init() {
	params = babyjubjub.GetEdwardsCurve()
}

// BJJ wraps a BabyJubJub affine point in the reduced twisted Edwards form
// used by gnark-crypto. Coordinates exposed through Point/SetPoint stay in
// that form; the wrapper is self-consistent and never mixes representations.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

func New() curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

func (g *BJJ) New() curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.SetGenerator()
	g.ScalarMult(g, scalar)
}

func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

func (g *BJJ) Unmarshal(buf []byte) error {
	return g.inner.Unmarshal(buf)
}

func (g *BJJ) MarshalJSON() ([]byte, error) {
	p := &curve.PointEC{}
	p.X = types.BigInt(*g.inner.X.BigInt(new(big.Int)))
	p.Y = types.BigInt(*g.inner.Y.BigInt(new(big.Int)))
	return json.Marshal(p)
}

func (g *BJJ) UnmarshalJSON(buf []byte) error {
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
	}
	p := &curve.PointEC{}
	if err := json.Unmarshal(buf, p); err != nil {
		return err
	}
	g.inner.X.SetBigInt(p.X.MathBigInt())
	g.inner.Y.SetBigInt(p.Y.MathBigInt())
	return nil
}

func (g *BJJ) MarshalCBOR() ([]byte, error) {
	x, y := g.Point()
	return cbor.Marshal([]*big.Int{x, y})
}

func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
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

func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

func (g *BJJ) Neg(a curve.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

// SetZero sets g to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

func (g *BJJ) Set(a curve.Point) {
	g.inner.Set(a.(*BJJ).inner)
}

func (g *BJJ) SetGenerator() {
	g.inner.Set(&params.Base)
}

func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return x, y
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	return p
}

func (g *BJJ) Type() string {
	return CurveType
}
