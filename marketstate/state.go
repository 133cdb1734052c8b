// Package marketstate maintains one merkle tree per market binding the
// encrypted aggregates, the market parameters and the accepted vote
// nullifiers. The tree root is the public commitment to everything the
// engine has folded: it changes with every accepted vote, while the
// aggregates themselves stay encrypted inside their leaf.
package marketstate

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/cipherbet/engine/crypto/ecc/curves"
	"github.com/cipherbet/engine/types"
)

const (
	// MaxLevels is the depth of every market tree.
	MaxLevels = types.MarketStateMaxLevels
	// MaxKeyLen is ceil(MaxLevels/8).
	MaxKeyLen = (MaxLevels + 7) / 8
	// CurveType is the curve the encrypted aggregates live on.
	CurveType = curves.CurveTypeBN254
)

// HashFunc is the hash function of the state trees.
var HashFunc = arbo.HashFunctionPoseidon

// Fixed leaf keys. Nullifier leaves carry their own first byte so they can
// never pad onto a fixed key path.
var (
	KeyMarketID      = []byte{0x00}
	KeyAuthority     = []byte{0x01}
	KeyRulesHash     = []byte{0x02}
	KeyEncryptionKey = []byte{0x03}
	KeyAggregates    = []byte{0x04}
)

const nullifierKeyByte = 0x10

// State is the merkle tree of one market.
type State struct {
	tree     *arbo.Tree
	marketID uint64
	db       db.Database
}

// New opens (or creates) the state tree of a market inside the passed
// database. Every market lives under its own key prefix.
func New(database db.Database, marketID uint64) (*State, error) {
	prefix := append([]byte("ms"), marketIDBytes(marketID)...)
	pdb := prefixeddb.NewPrefixedDatabase(database, prefix)
	tree, err := arbo.NewTree(arbo.Config{
		Database: pdb, MaxLevels: MaxLevels,
		HashFunction: HashFunc,
	})
	if err != nil {
		return nil, err
	}
	return &State{
		tree:     tree,
		marketID: marketID,
		db:       pdb,
	}, nil
}

// Initialize writes the fixed leaves of a fresh market tree: identity,
// authority, the hash of the immutable rules, the encryption key and the
// zero encrypted aggregates. It fails on a tree that was already
// initialized.
func (o *State) Initialize(authority, rulesHash, encryptionKey, aggregates []byte) error {
	if err := o.tree.Add(KeyMarketID, marketIDBytes(o.marketID)); err != nil {
		return fmt.Errorf("initialize market leaf: %w", err)
	}
	if err := o.tree.Add(KeyAuthority, authority); err != nil {
		return fmt.Errorf("initialize authority leaf: %w", err)
	}
	if err := o.tree.Add(KeyRulesHash, rulesHash); err != nil {
		return fmt.Errorf("initialize rules leaf: %w", err)
	}
	if err := o.tree.Add(KeyEncryptionKey, encryptionKey); err != nil {
		return fmt.Errorf("initialize encryption key leaf: %w", err)
	}
	if err := o.tree.Add(KeyAggregates, aggregates); err != nil {
		return fmt.Errorf("initialize aggregates leaf: %w", err)
	}
	return nil
}

// Fold atomically replaces the aggregates leaf and inserts the nullifiers
// of the votes folded into it, binding both to the same new root. A
// nullifier that is already in the tree fails the whole fold with
// arbo.ErrKeyAlreadyExists; callers filter replays with HasNullifier first.
func (o *State) Fold(version uint64, aggregates []byte, nullifiers ...[]byte) error {
	wTx := o.db.WriteTx()
	defer wTx.Discard()
	versionValue := make([]byte, 8)
	binary.LittleEndian.PutUint64(versionValue, version)
	for _, n := range nullifiers {
		if err := o.tree.AddWithTx(wTx, NullifierKey(n), versionValue); err != nil {
			return fmt.Errorf("add nullifier: %w", err)
		}
	}
	if err := o.tree.UpdateWithTx(wTx, KeyAggregates, aggregates); err != nil {
		return fmt.Errorf("update aggregates leaf: %w", err)
	}
	return wTx.Commit()
}

// SetAggregates replaces the aggregates leaf without touching nullifiers.
// Used when a fold has to be recomputed against a fresher vector.
func (o *State) SetAggregates(aggregates []byte) error {
	return o.tree.Update(KeyAggregates, aggregates)
}

// Aggregates returns the serialized encrypted aggregates leaf.
func (o *State) Aggregates() ([]byte, error) {
	_, value, err := o.tree.Get(KeyAggregates)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// HasNullifier reports whether a vote nullifier was already folded.
func (o *State) HasNullifier(nullifier []byte) bool {
	_, _, err := o.tree.Get(NullifierKey(nullifier))
	return err == nil
}

// Root returns the current tree root.
func (o *State) Root() ([]byte, error) {
	return o.tree.Root()
}

// RootAsBigInt returns the current tree root as a field element.
func (o *State) RootAsBigInt() (*big.Int, error) {
	root, err := o.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Nullifier derives the fold nullifier of a vote from its identifying
// triple. It does not reveal voter or nonce and is unique per (market,
// voter, nonce).
func Nullifier(marketID uint64, voter, nonce []byte) []byte {
	data := marketIDBytes(marketID)
	data = append(data, voter...)
	data = append(data, nonce...)
	return ethcrypto.Keccak256(data)
}

// NullifierKey maps a nullifier onto its tree key: a reserved first byte
// plus the truncated nullifier, filling the full key length.
func NullifierKey(nullifier []byte) []byte {
	key := make([]byte, 0, MaxKeyLen)
	key = append(key, nullifierKeyByte)
	if len(nullifier) > MaxKeyLen-1 {
		nullifier = nullifier[:MaxKeyLen-1]
	}
	return append(key, nullifier...)
}

func marketIDBytes(marketID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, marketID)
	return buf
}
