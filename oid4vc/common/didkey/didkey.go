// Package didkey implements the did:key method for Ed25519 and secp256k1 keys.
//
// A did:key identifier is the multibase (base58-btc) encoding of the
// multicodec-prefixed public key:
//
//	did:key:z6Mk...            Ed25519 (0xed)
//	did:key:zQ3s...            secp256k1, compressed (0xe7)
//
// The key identifier of the single verification method is "<did>#<fingerprint>".
package didkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// Multicodec codes of supported public keys.
const (
	Ed25519PubKeyMultiCodec   = 0xed
	Secp256k1PubKeyMultiCodec = 0xe7
)

const (
	prefix             = "did:key:"
	maxMulticodecBytes = 9
)

// Fingerprint returns the multibase encoded, multicodec prefixed key.
func Fingerprint(code uint64, pubKey []byte) (string, error) {
	mc := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(mc, code)

	buf := make([]byte, 0, n+len(pubKey))
	buf = append(buf, mc[:n]...)
	buf = append(buf, pubKey...)

	return multibase.Encode(multibase.Base58BTC, buf)
}

// New creates the did:key DID and key identifier of a public key. Ed25519 keys
// are 32 bytes; secp256k1 keys may be compressed or uncompressed and are
// encoded compressed.
func New(code uint64, pubKey []byte) (string, string, error) {
	key, err := normalize(code, pubKey)
	if err != nil {
		return "", "", err
	}

	fp, err := Fingerprint(code, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode fingerprint: %w", err)
	}

	did := prefix + fp

	return did, did + "#" + fp, nil
}

// PublicKey extracts the public key and its multicodec code from a did:key
// DID or key identifier.
func PublicKey(keyID string) ([]byte, uint64, error) {
	did := signer.DIDFromKeyID(keyID)
	if !strings.HasPrefix(did, prefix) {
		return nil, 0, fmt.Errorf("not a did:key: %s", keyID)
	}

	encoding, mc, err := multibase.Decode(strings.TrimPrefix(did, prefix))
	if err != nil {
		return nil, 0, fmt.Errorf("invalid multibase fingerprint: %w", err)
	}

	if encoding != multibase.Base58BTC {
		return nil, 0, errors.New("fingerprint must be base58-btc encoded")
	}

	code, n := binary.Uvarint(mc)
	if n <= 0 {
		return nil, 0, errors.New("unknown key encoding")
	}

	if n > maxMulticodecBytes {
		return nil, 0, errors.New("code exceeds maximum size")
	}

	key, err := normalize(code, mc[n:])
	if err != nil {
		return nil, 0, err
	}

	return key, code, nil
}

func normalize(code uint64, pubKey []byte) ([]byte, error) {
	switch code {
	case Ed25519PubKeyMultiCodec:
		if len(pubKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid ed25519 public key length %d", len(pubKey))
		}

		return pubKey, nil
	case Secp256k1PubKeyMultiCodec:
		key, err := secp256k1.ParsePubKey(pubKey)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
		}

		return key.SerializeCompressed(), nil
	default:
		return nil, fmt.Errorf("unsupported multicodec 0x%x", code)
	}
}

// Resolver is a signer.KeyResolver for did:key identifiers. Resolution is
// local and never blocks.
type Resolver struct{}

// NewResolver creates a new did:key Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the public key encoded in keyID.
func (r *Resolver) Resolve(_ context.Context, keyID string) ([]byte, error) {
	key, _, err := PublicKey(keyID)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "resolve did:key", err, "%q", keyID)
	}

	return key, nil
}

// NewEd25519Signer creates a signer whose identifier is the did:key of priv.
func NewEd25519Signer(priv ed25519.PrivateKey) (*signer.Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(priv))
	}

	did, keyID, err := New(Ed25519PubKeyMultiCodec, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	return signer.NewEd25519Signer(priv, did, keyID)
}

// NewES256KSigner creates a signer whose identifier is the did:key of priv.
func NewES256KSigner(priv *ecdsa.PrivateKey) (*signer.ES256KSigner, error) {
	if priv == nil {
		return nil, errors.New("private key is required")
	}

	did, keyID, err := New(Secp256k1PubKeyMultiCodec, crypto.CompressPubkey(&priv.PublicKey))
	if err != nil {
		return nil, err
	}

	return signer.NewES256KSignerFromKey(priv, did, keyID), nil
}

