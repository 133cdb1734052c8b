package storage

import (
	"fmt"
	"math/big"

	"github.com/cipherbet/engine/crypto/ecc"
	"github.com/cipherbet/engine/crypto/ecc/curves"
	"github.com/cipherbet/engine/types"
)

// SetEncryptionKeys stores the ElGamal key pair of a market.
func (s *Storage) SetEncryptionKeys(marketID uint64, publicKey ecc.Point, privateKey *big.Int) error {
	x, y := publicKey.Point()
	eks := &EncryptionKeys{
		X:          x,
		Y:          y,
		PrivateKey: privateKey,
	}
	return s.setArtifact(encryptionKeyPrefix, marketKey(marketID), eks)
}

// EncryptionKeys loads the ElGamal key pair of a market. Returns
// ErrNotFound if the keys do not exist.
func (s *Storage) EncryptionKeys(marketID uint64) (ecc.Point, *big.Int, error) {
	eks := &EncryptionKeys{}
	if err := s.getArtifact(encryptionKeyPrefix, marketKey(marketID), eks); err != nil {
		return nil, nil, err
	}
	curve, err := curves.New(curves.CurveTypeBN254)
	if err != nil {
		return nil, nil, fmt.Errorf("could not build curve point: %w", err)
	}
	return curve.SetPoint(eks.X, eks.Y), eks.PrivateKey, nil
}

// clusterIdentityKey is the fixed key of the cluster sealing identity.
var clusterIdentityKey = []byte("identity")

// SetClusterIdentity persists the private sealing identity of the engine
// cluster.
func (s *Storage) SetClusterIdentity(priv types.HexBytes) error {
	return s.setArtifact(clusterKeyPrefix, clusterIdentityKey, &priv)
}

// ClusterIdentity loads the private sealing identity of the engine
// cluster. Returns ErrNotFound on first boot.
func (s *Storage) ClusterIdentity() (types.HexBytes, error) {
	var priv types.HexBytes
	if err := s.getArtifact(clusterKeyPrefix, clusterIdentityKey, &priv); err != nil {
		return nil, err
	}
	return priv, nil
}
