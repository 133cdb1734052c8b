package sealed

import (
	"crypto/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestIdentityRoundTrip(t *testing.T) {
	c := qt.New(t)

	identity, err := GenerateIdentity()
	c.Assert(err, qt.IsNil)
	c.Assert(identity.PublicKey(), qt.HasLen, 65)

	restored, err := IdentityFromBytes(identity.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(restored.PublicKey(), qt.DeepEquals, identity.PublicKey())
}

func TestSealOpen(t *testing.T) {
	c := qt.New(t)

	recipient, err := GenerateIdentity()
	c.Assert(err, qt.IsNil)

	messages := [][]byte{
		[]byte{},
		[]byte("x"),
		[]byte("a sealed vote payload"),
		make([]byte, 4096),
	}
	if _, err := rand.Read(messages[3]); err != nil {
		t.Fatal(err)
	}

	for _, message := range messages {
		ciphertext, err := Seal(message, recipient.PublicKey())
		c.Assert(err, qt.IsNil)
		c.Assert(len(ciphertext) > len(message), qt.IsTrue)

		plaintext, err := recipient.Open(ciphertext)
		c.Assert(err, qt.IsNil)
		c.Assert(plaintext, qt.DeepEquals, message)
	}
}

func TestOpenWithWrongIdentity(t *testing.T) {
	c := qt.New(t)

	recipient, err := GenerateIdentity()
	c.Assert(err, qt.IsNil)
	eavesdropper, err := GenerateIdentity()
	c.Assert(err, qt.IsNil)

	ciphertext, err := Seal([]byte("for the recipient only"), recipient.PublicKey())
	c.Assert(err, qt.IsNil)

	_, err = eavesdropper.Open(ciphertext)
	c.Assert(err, qt.IsNotNil)
}

func TestOpenMalformedCiphertext(t *testing.T) {
	c := qt.New(t)

	recipient, err := GenerateIdentity()
	c.Assert(err, qt.IsNil)

	ciphertext, err := Seal([]byte("payload"), recipient.PublicKey())
	c.Assert(err, qt.IsNil)

	// Truncated
	_, err = recipient.Open(ciphertext[:len(ciphertext)/2])
	c.Assert(err, qt.IsNotNil)

	// Tampered
	tampered := append([]byte{}, ciphertext...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = recipient.Open(tampered)
	c.Assert(err, qt.IsNotNil)

	// Empty
	_, err = recipient.Open(nil)
	c.Assert(err, qt.IsNotNil)
}

func TestSealInvalidRecipient(t *testing.T) {
	c := qt.New(t)

	_, err := Seal([]byte("payload"), []byte{0x04, 0x01, 0x02})
	c.Assert(err, qt.IsNotNil)

	_, err = Seal([]byte("payload"), nil)
	c.Assert(err, qt.IsNotNil)
}
