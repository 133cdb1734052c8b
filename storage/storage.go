// Package storage persists every artifact of the settlement engine and
// doubles as the queue fabric between the coordinator and the engine
// workers. It is a prefixed key-value store; the following prefixes are
// used:
//   - 'm/' for markets, 'mq/' for the market id sequence
//   - 'st/' for encrypted market state vectors (versioned)
//   - 'ek/' for market encryption keys
//   - 'ck/' for the cluster sealing identity
//   - 'pos/' for positions, 'ci/' for the claim id index
//   - 'n/' for the per market nonce ledger
//   - 'j/' for engine jobs (queued), 'jr/' for their reservations and
//     'al/' for the per market aggregation locks
//   - 'res/' for job results (queued), 'rr/' for their reservations
//   - 'w/' for the sealed accepted vote windows
//   - 'o/' and 'oh/' for odds snapshots (latest and history)
//   - 's/' for settlements
//   - 'rk/' for risk job receipts
//
// Queue prefixes support reservation semantics: an element handed to a
// worker stays in the queue but is skipped by other workers until it is
// marked done or its reservation is released.
package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
)

var (
	marketPrefix            = []byte("m/")
	marketSeqPrefix         = []byte("mq/")
	statePrefix             = []byte("st/")
	encryptionKeyPrefix     = []byte("ek/")
	clusterKeyPrefix        = []byte("ck/")
	positionPrefix          = []byte("pos/")
	claimIndexPrefix        = []byte("ci/")
	noncePrefix             = []byte("n/")
	jobPrefix               = []byte("j/")
	jobReservationPrefix    = []byte("jr/")
	aggregateLockPrefix     = []byte("al/")
	resultPrefix            = []byte("res/")
	resultReservationPrefix = []byte("rr/")
	windowPrefix            = []byte("w/")
	oddsPrefix              = []byte("o/")
	oddsHistoryPrefix       = []byte("oh/")
	settlementPrefix        = []byte("s/")
	riskReceiptPrefix       = []byte("rk/")
)

const (
	// maxKeySize is the maximum size of content-addressed keys. Artifact
	// keys are the truncated sha256 hash of the artifact itself.
	maxKeySize = 12
)

// Sentinel errors returned by the storage layer.
var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = fmt.Errorf("artifact not found")
	// ErrNoMoreElements is returned by queue getters when every element is
	// either consumed or reserved.
	ErrNoMoreElements = fmt.Errorf("no more elements")
	// ErrKeyAlreadyExists is returned by writers that enforce uniqueness,
	// such as the nonce ledger and the claim gate.
	ErrKeyAlreadyExists = fmt.Errorf("key already exists")
	// ErrVersionMismatch is returned by UpdateMarketState when the stored
	// version moved under the caller.
	ErrVersionMismatch = fmt.Errorf("state version mismatch")
)

// Storage wraps the database with typed accessors for every artifact kind.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance over the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

// marketKey returns the fixed 8 byte big endian key of a market, so keys
// iterate in market id order.
func marketKey(marketID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, marketID)
	return key
}
