package marketstate

import (
	"github.com/vocdoni/arbo"

	"github.com/cipherbet/engine/types"
)

// Proof is a merkle proof against a market state root. For an existence
// proof, Key and Value are the leaf under the requested key. For an
// exclusion proof they belong to the conflicting leaf on the requested
// path, and Existence is false.
type Proof struct {
	Root      types.HexBytes `json:"root"`
	Key       types.HexBytes `json:"key"`
	Value     types.HexBytes `json:"value"`
	Siblings  types.HexBytes `json:"siblings"`
	Existence bool           `json:"existence"`
}

// GenProof generates a merkle proof for the given tree key against the
// current root.
func (o *State) GenProof(key []byte) (*Proof, error) {
	root, err := o.tree.Root()
	if err != nil {
		return nil, err
	}
	leafKey, leafValue, siblings, existence, err := o.tree.GenProof(key)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Root:      root,
		Key:       leafKey,
		Value:     leafValue,
		Siblings:  siblings,
		Existence: existence,
	}, nil
}

// GenNullifierProof generates the inclusion proof of a folded vote
// nullifier.
func (o *State) GenNullifierProof(nullifier []byte) (*Proof, error) {
	return o.GenProof(NullifierKey(nullifier))
}

// VerifyProof checks a merkle proof against its own root.
func VerifyProof(p *Proof) (bool, error) {
	return arbo.CheckProof(HashFunc, p.Key, p.Value, p.Root, p.Siblings)
}
