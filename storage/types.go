package storage

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"

	"github.com/cipherbet/engine/crypto/hash/poseidon"
	"github.com/cipherbet/engine/types"
	"github.com/cipherbet/engine/util"
)

// Engine job kinds. Every computation over sealed data runs as a job.
const (
	JobValidate uint8 = iota + 1
	JobAggregate
	JobBatchAggregate
	JobOdds
	JobPayout
	JobDetect
	JobRisk
)

// JobKindString returns a human readable name for a job kind.
func JobKindString(kind uint8) string {
	switch kind {
	case JobValidate:
		return "validate"
	case JobAggregate:
		return "aggregate"
	case JobBatchAggregate:
		return "batchAggregate"
	case JobOdds:
		return "odds"
	case JobPayout:
		return "payout"
	case JobDetect:
		return "detect"
	case JobRisk:
		return "risk"
	default:
		return "unknown"
	}
}

// Job is one unit of sealed computation queued for the engine. The
// coordinator only ever handles the sealed payloads; the engine unseals
// them inside the job executor.
type Job struct {
	ID             types.HexBytes   `json:"id"             cbor:"0,keyasint,omitempty"`
	Kind           uint8            `json:"kind"           cbor:"1,keyasint,omitempty"`
	MarketID       uint64           `json:"marketId"       cbor:"2,keyasint,omitempty"`
	VoteID         types.HexBytes   `json:"voteId"         cbor:"3,keyasint,omitempty"`
	Payload        types.HexBytes   `json:"payload"        cbor:"4,keyasint,omitempty"`
	Payloads       []types.HexBytes `json:"payloads"       cbor:"5,keyasint,omitempty"`
	ReplyPublicKey types.HexBytes   `json:"replyPublicKey" cbor:"6,keyasint,omitempty"`
	InputsHash     types.HexBytes   `json:"inputsHash"     cbor:"7,keyasint,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"      cbor:"8,keyasint,omitempty"`
}

// NewJobID returns a fresh random job identifier.
func NewJobID() types.HexBytes {
	id := uuid.New()
	return id[:]
}

// InputsDigest binds a job's routing fields and payloads into a single field
// element. The coordinator stamps it on the job and the engine recomputes it
// before executing, so a payload swapped underneath the queue is caught.
func (j *Job) InputsDigest() (types.HexBytes, error) {
	routing := make([]byte, 0, 32)
	routing = append(routing, j.Kind)
	routing = binary.BigEndian.AppendUint64(routing, j.MarketID)
	routing = append(routing, j.VoteID...)
	inputs := []*big.Int{
		util.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256(routing))),
		util.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256(j.Payload))),
	}
	for _, p := range j.Payloads {
		inputs = append(inputs, util.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256(p))))
	}
	inputs = append(inputs, util.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256(j.ReplyPublicKey))))
	digest, err := poseidon.MultiPoseidon(inputs...)
	if err != nil {
		return nil, fmt.Errorf("cannot hash job inputs: %w", err)
	}
	return arbo.BigIntToBytes(32, digest), nil
}

// JobResult is what an engine worker hands back after executing a job.
// Revealed carries the bytes that are public by design (a verdict byte, a
// packed odds form, a tally summary, a detection score); Sealed carries the
// payload encrypted to the submitter's reply key.
type JobResult struct {
	JobID       types.HexBytes `json:"jobId"       cbor:"0,keyasint,omitempty"`
	Kind        uint8          `json:"kind"        cbor:"1,keyasint,omitempty"`
	MarketID    uint64         `json:"marketId"    cbor:"2,keyasint,omitempty"`
	VoteID      types.HexBytes `json:"voteId"      cbor:"3,keyasint,omitempty"`
	Revealed    types.HexBytes `json:"revealed"    cbor:"4,keyasint,omitempty"`
	Sealed      types.HexBytes `json:"sealed"      cbor:"5,keyasint,omitempty"`
	StateRoot   types.HexBytes `json:"stateRoot"   cbor:"6,keyasint,omitempty"`
	Version     uint64         `json:"version"     cbor:"7,keyasint,omitempty"`
	Error       string         `json:"error"       cbor:"8,keyasint,omitempty"`
	CompletedAt time.Time      `json:"completedAt" cbor:"9,keyasint,omitempty"`
}

// Failed reports whether the job ended with a non retryable error.
func (r *JobResult) Failed() bool {
	return r.Error != ""
}

// MarketVotingState is the encrypted aggregate of a market: the serialized
// ElGamal state vector plus the optimistic concurrency version and the
// commitment tree root it was folded under.
type MarketVotingState struct {
	MarketID  uint64         `json:"marketId"  cbor:"0,keyasint,omitempty"`
	Version   uint64         `json:"version"   cbor:"1,keyasint,omitempty"`
	Vector    types.HexBytes `json:"vector"    cbor:"2,keyasint,omitempty"`
	Root      types.HexBytes `json:"root"      cbor:"3,keyasint,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt" cbor:"4,keyasint,omitempty"`
}

// EncryptionKeys holds a market's ElGamal key pair. The private key never
// leaves storage; only reveal paths inside the engine load it.
type EncryptionKeys struct {
	X          *big.Int `json:"publicKeyX" cbor:"0,keyasint,omitempty"`
	Y          *big.Int `json:"publicKeyY" cbor:"1,keyasint,omitempty"`
	PrivateKey *big.Int `json:"-"          cbor:"2,keyasint,omitempty"`
}

// voteWindow is the per market ring of sealed accepted votes fed to the
// manipulation detector, most recent last.
type voteWindow struct {
	Sealed []types.HexBytes `json:"sealed" cbor:"0,keyasint,omitempty"`
}
