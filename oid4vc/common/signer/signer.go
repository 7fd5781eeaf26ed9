// Package signer defines the two capabilities that decouple the protocol
// engines from key material: a Signer produces signatures for the agent's own
// identifier, and a KeyResolver maps a key identifier to public key bytes.
package signer

import (
	"context"
	"strings"
)

// Supported JWS algorithms.
const (
	AlgES256K = "ES256K"
	AlgEdDSA  = "EdDSA"
)

// Signer signs payloads on behalf of a decentralized identifier.
type Signer interface {
	// Sign returns the raw signature over payload.
	Sign(payload []byte) ([]byte, error)
	// Identifier returns the DID of the signing agent.
	Identifier() string
	// KeyID returns the key identifier embedded in envelope headers.
	KeyID() string
	// Algorithm returns the JWS algorithm name of the produced signatures.
	Algorithm() string
}

// KeyResolver resolves a key identifier (a DID URL or a bare DID) to public
// key bytes: 32 raw bytes for Ed25519, a 33 or 65 byte SEC1 point for secp256k1.
type KeyResolver interface {
	Resolve(ctx context.Context, keyID string) ([]byte, error)
}

// KeyResolverFunc adapts a function to the KeyResolver interface.
type KeyResolverFunc func(ctx context.Context, keyID string) ([]byte, error)

// Resolve calls f.
func (f KeyResolverFunc) Resolve(ctx context.Context, keyID string) ([]byte, error) {
	return f(ctx, keyID)
}

// DIDFromKeyID strips the fragment of a DID URL.
func DIDFromKeyID(keyID string) string {
	did, _, _ := strings.Cut(keyID, "#")
	return did
}

// MethodOf returns the DID method of a DID or DID URL ("key" for
// "did:key:z6Mk..."), or "" if keyID is not a DID.
func MethodOf(keyID string) string {
	parts := strings.SplitN(DIDFromKeyID(keyID), ":", 3)
	if len(parts) < 3 || parts[0] != "did" {
		return ""
	}

	return parts[1]
}
