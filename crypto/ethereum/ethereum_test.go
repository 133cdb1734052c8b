package ethereum

import (
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestKeyRoundTrip(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	k := NewSignKeys()
	c.Assert(k.Generate(), qt.IsNil)
	pub, priv := k.HexString()

	restored := NewSignKeys()
	c.Assert(restored.AddHexKey(priv), qt.IsNil)
	restoredPub, _ := restored.HexString()
	c.Assert(restoredPub, qt.Equals, pub)
	c.Assert(restored.Address(), qt.Equals, k.Address())
	c.Assert(restored.VoterID(), qt.DeepEquals, k.VoterID())
}

func TestSignEthereumVector(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	// known key and signature over the prefixed message hash
	k := NewSignKeys()
	c.Assert(k.AddHexKey("fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"), qt.IsNil)

	signature, err := k.SignEthereum([]byte("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(hex.EncodeToString(signature), qt.Equals,
		"a0d0ebc374d2a4d6357eaca3da2f5f3ff547c3560008206bc234f9032a866ace6279ffb4093fb39c8bbc39021f6a5c36ef0e813c8c94f325a53f4f395a5c82de01")
}

func TestRecoveryFromSignature(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	k := NewSignKeys()
	c.Assert(k.Generate(), qt.IsNil)

	for _, msg := range [][]byte{
		[]byte("lock market 42"),
		[]byte("resolve market 42 outcome 1"),
	} {
		signature, err := k.SignEthereum(msg)
		c.Assert(err, qt.IsNil)

		addr, err := AddrFromSignature(msg, signature)
		c.Assert(err, qt.IsNil)
		c.Assert(addr, qt.Equals, k.Address())

		// the voter identity commitment recovers the same way
		voterID, err := VoterIDFromSignature(msg, signature)
		c.Assert(err, qt.IsNil)
		c.Assert(voterID, qt.DeepEquals, k.VoterID())
	}

	// a tampered message must not recover the signer
	signature, err := k.SignEthereum([]byte("cancel market 7"))
	c.Assert(err, qt.IsNil)
	addr, err := AddrFromSignature([]byte("cancel market 8"), signature)
	if err == nil {
		c.Assert(addr, qt.Not(qt.Equals), k.Address())
	}
}
