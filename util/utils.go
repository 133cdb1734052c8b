package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RandomBytes returns n cryptographically random bytes. It panics on
// entropy failure since no caller can recover from that.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomInt returns a random integer in [min, max).
func RandomInt(min, max int) int {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return int(num.Int64()) + min
}

// TrimHex strips a leading '0x' or '0X' from a hex string.
func TrimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// bn254ScalarField is the scalar field order of BN254, which is also the
// base field of the embedded twisted Edwards curve.
var bn254ScalarField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// BigToFF reduces v into the BN254 scalar field. Values already inside the
// field pass through untouched.
func BigToFF(v *big.Int) *big.Int {
	z := big.NewInt(0)
	switch c := v.Cmp(bn254ScalarField); {
	case c == 0:
		return z
	case c < 0 && v.Sign() >= 0:
		return v
	default:
		return z.Mod(v, bn254ScalarField)
	}
}
