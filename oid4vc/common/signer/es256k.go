package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ES256KSigner signs with a local secp256k1 private key.
type ES256KSigner struct {
	priv  *ecdsa.PrivateKey
	did   string
	keyID string
}

// NewES256KSigner creates a signer from a hex encoded private key and the DID
// that controls it. The key identifier defaults to "<did>#key-1".
func NewES256KSigner(privKeyHex, did string) (*ES256KSigner, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &ES256KSigner{
		priv:  priv,
		did:   did,
		keyID: fmt.Sprintf("%s#%s", did, "key-1"),
	}, nil
}

// NewES256KSignerFromKey creates a signer from an already parsed key.
func NewES256KSignerFromKey(priv *ecdsa.PrivateKey, did, keyID string) *ES256KSigner {
	if keyID == "" {
		keyID = fmt.Sprintf("%s#%s", did, "key-1")
	}

	return &ES256KSigner{priv: priv, did: did, keyID: keyID}
}

// Sign hashes payload with SHA-256 and returns the 64 byte R||S signature.
func (s *ES256KSigner) Sign(payload []byte) ([]byte, error) {
	hash := sha256.Sum256(payload)

	sig, err := crypto.Sign(hash[:], s.priv)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return sig[:64], nil // drop recovery id
}

// Identifier returns the controlling DID.
func (s *ES256KSigner) Identifier() string {
	return s.did
}

// KeyID returns the verification method id.
func (s *ES256KSigner) KeyID() string {
	return s.keyID
}

// Algorithm returns ES256K.
func (s *ES256KSigner) Algorithm() string {
	return AlgES256K
}

// PublicKey returns the compressed 33 byte public key.
func (s *ES256KSigner) PublicKey() []byte {
	return crypto.CompressPubkey(&s.priv.PublicKey)
}
