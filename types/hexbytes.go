package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice that marshals to and from JSON as a hex string.
// The "0x" prefix is accepted on input and always emitted on output.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// SetString decodes a hex string, with or without the "0x" prefix, into b.
func (b *HexBytes) SetString(s string) error {
	s = strings.TrimPrefix(s, "0x")
	dst, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = dst
	return nil
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %s", data)
	}
	return b.SetString(string(data[1 : len(data)-1]))
}

// HexStringToHexBytes converts a hex string to HexBytes.
// It panics on malformed input, so it is for testing and constants only.
func HexStringToHexBytes(s string) HexBytes {
	var b HexBytes
	if err := b.SetString(s); err != nil {
		panic(err)
	}
	return b
}
