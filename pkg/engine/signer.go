package engine

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/multihubswap/engine/pkg/solana"
)

// Signer authorizes transactions on behalf of a wallet. The set of
// signers an engine can use is fixed at construction.
type Signer interface {
	Public() ed25519.PublicKey
	SignTransaction(txn *solana.Transaction) error
}

// LocalSigner signs with an in-memory ed25519 private key.
type LocalSigner struct {
	key ed25519.PrivateKey
}

func NewLocalSigner(key ed25519.PrivateKey) (*LocalSigner, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key length: %d", len(key))
	}

	return &LocalSigner{key: key}, nil
}

func (s *LocalSigner) Public() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *LocalSigner) SignTransaction(txn *solana.Transaction) error {
	return txn.Sign(s.key)
}
