package signer

import (
	"crypto/ed25519"
	"fmt"
)

// Ed25519Signer signs with a local Ed25519 private key.
type Ed25519Signer struct {
	priv  ed25519.PrivateKey
	did   string
	keyID string
}

// NewEd25519Signer creates a signer for did, using keyID as the header kid.
func NewEd25519Signer(priv ed25519.PrivateKey, did, keyID string) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(priv))
	}

	return &Ed25519Signer{priv: priv, did: did, keyID: keyID}, nil
}

// Sign returns the 64 byte Ed25519 signature over payload.
func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, payload), nil
}

// Identifier returns the signer DID.
func (s *Ed25519Signer) Identifier() string {
	return s.did
}

// KeyID returns the verification method id.
func (s *Ed25519Signer) KeyID() string {
	return s.keyID
}

// Algorithm returns EdDSA.
func (s *Ed25519Signer) Algorithm() string {
	return AlgEdDSA
}

// PublicKey returns the raw 32 byte public key.
func (s *Ed25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}
