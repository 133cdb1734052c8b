// Package elgamal implements additively homomorphic EC-ElGamal over the
// curves exposed by crypto/ecc. Messages are encoded as scalar multiples of
// the generator, so ciphertexts of two messages add up to a ciphertext of
// their sum without touching the private key. Decryption recovers the scalar
// with a bounded baby-step giant-step discrete log search.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/cipherbet/engine/crypto/ecc"
)

// RandK generates a random encryption scalar in the subgroup order of the
// given curve point.
func RandK(curve ecc.Point) (*big.Int, error) {
	k, err := rand.Int(rand.Reader, curve.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	if k.Sign() == 0 {
		k.SetUint64(1)
	}
	return k, nil
}

// GenerateKey generates a new ElGamal key pair on the given curve.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	d, err := rand.Int(rand.Reader, curve.Order())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d.SetUint64(1)
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// Encrypt encrypts msg under publicKey with a fresh random scalar. It
// returns the two ciphertext points and the scalar used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK encrypts msg under publicKey using the caller-provided
// scalar k. The message is reduced into the subgroup order first.
func EncryptWithK(publicKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	m := new(big.Int).Mod(msg, publicKey.Order())
	// C1 = k*G
	c1 := publicKey.New()
	c1.ScalarBaseMult(k)
	// s = k*pub, the shared secret
	s := publicKey.New()
	s.ScalarMult(publicKey, k)
	// C2 = m*G + s
	c2 := publicKey.New()
	c2.ScalarBaseMult(m)
	c2.Add(c2, s)
	return c1, c2, nil
}

// Decrypt recovers the message scalar from the ciphertext (c1, c2) using
// privateKey. maxMessage bounds the discrete log search; messages above it
// are unrecoverable and yield an error. It returns the message point
// M = c2 - d*c1 along with the scalar.
func Decrypt(publicKey ecc.Point, privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (ecc.Point, *big.Int, error) {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)

	m := c2.New()
	m.Set(c2)
	m.Add(m, dC1) // M = c2 - d*c1

	g := publicKey.New()
	g.SetGenerator()
	message, err := BabyStepGiantStep(m, g, maxMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return m, message, nil
}

// BabyStepGiantStep solves M = x*G for x in [0, maxMessage].
func BabyStepGiantStep(m, g ecc.Point, maxMessage uint64) (*big.Int, error) {
	steps := uint64(math.Sqrt(float64(maxMessage))) + 1

	// baby steps: j -> j*G for j in [0, steps)
	table := make(map[string]uint64, steps)
	baby := m.New()
	baby.SetZero()
	for j := uint64(0); j < steps; j++ {
		table[baby.String()] = j
		baby.Add(baby, g)
	}

	// giant stride: -steps*G
	stride := m.New()
	stride.ScalarBaseMult(new(big.Int).SetUint64(steps))
	stride.Neg(stride)

	giant := m.New()
	giant.Set(m)
	for i := uint64(0); i <= steps; i++ {
		if j, ok := table[giant.String()]; ok {
			return new(big.Int).SetUint64(i*steps + j), nil
		}
		giant.Add(giant, stride)
	}
	return nil, fmt.Errorf("no discrete log found within bound %d", maxMessage)
}

// CheckK reports whether the scalar k produced the ciphertext component c1,
// without decrypting anything.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	check := c1.New()
	check.ScalarBaseMult(k)
	return check.Equal(c1)
}
