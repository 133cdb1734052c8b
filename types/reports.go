package types

// VerdictReport is sealed back to the voter's reply key after validation.
// The coordinator only ever sees the one byte verdict, never this record.
type VerdictReport struct {
	VoteID HexBytes `json:"voteId" cbor:"0,keyasint,omitempty"`
	Valid  bool     `json:"valid"  cbor:"1,keyasint,omitempty"`
}

// PayoutReport is sealed back to the claimer's reply key. The amount never
// exists in plaintext outside the engine and the claimer.
type PayoutReport struct {
	VoteID   HexBytes `json:"voteId"   cbor:"0,keyasint,omitempty"`
	MarketID uint64   `json:"marketId" cbor:"1,keyasint,omitempty"`
	Outcome  uint8    `json:"outcome"  cbor:"2,keyasint,omitempty"`
	Amount   uint64   `json:"amount"   cbor:"3,keyasint,omitempty"`
}
