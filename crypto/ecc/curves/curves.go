package curves

import (
	"fmt"

	"github.com/cipherbet/engine/crypto/ecc"
	bjj "github.com/cipherbet/engine/crypto/ecc/bjj_gnark"
	"github.com/cipherbet/engine/crypto/ecc/bn254"
)

const (
	// CurveTypeBN254 is the default group for market encryption keys.
	CurveTypeBN254 = "bn254"
	// CurveTypeBabyJubJub selects the BabyJubJub embedded curve.
	CurveTypeBabyJubJub = "bjj_gnark"
)

// New returns a fresh point on the curve identified by curveType.
func New(curveType string) (ecc.Point, error) {
	switch curveType {
	case CurveTypeBN254:
		return bn254.New(), nil
	case CurveTypeBabyJubJub:
		return bjj.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type: %s", curveType)
	}
}

// Curves returns the list of supported curve type identifiers.
func Curves() []string {
	return []string{CurveTypeBN254, CurveTypeBabyJubJub}
}
