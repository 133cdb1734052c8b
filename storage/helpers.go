package storage

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

// setArtifact encodes and stores an artifact under prefix/key. A nil key
// falls back to the content hash of the encoded artifact.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	if key == nil {
		key = hashKey(data)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact loads and decodes the artifact at prefix/key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	return decodeArtifact(data, out)
}

// hasArtifact reports whether prefix/key exists.
func (s *Storage) hasArtifact(prefix, key []byte) bool {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	_, err := rTx.Get(key)
	return err == nil
}

// deleteArtifact removes the artifact at prefix/key. Missing keys return
// ErrNotFound.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	if !s.hasArtifact(prefix, key) {
		return ErrNotFound
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// iterateArtifacts walks the raw key/value pairs under prefix until fn
// returns false.
func (s *Storage) iterateArtifacts(prefix []byte, fn func(k, v []byte) bool) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	return rTx.Iterate(nil, fn)
}

// listArtifacts returns the keys stored under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	var keys [][]byte
	if err := rTx.Iterate(nil, func(k, _ []byte) bool {
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return keys, nil
}

// Reservations mark queue elements as being processed. The value is the
// reservation timestamp so stale reservations can be identified.

func (s *Storage) setReservation(prefix, key []byte) error {
	if s.isReserved(prefix, key) {
		return ErrKeyAlreadyExists
	}
	ts := make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, uint64(time.Now().Unix()))
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, ts); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

func (s *Storage) isReserved(prefix, key []byte) bool {
	return s.hasArtifact(prefix, key)
}

func (s *Storage) releaseReservation(prefix, key []byte) error {
	err := s.deleteArtifact(prefix, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
