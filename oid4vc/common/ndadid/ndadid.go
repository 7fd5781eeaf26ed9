// Package ndadid derives did:nda identifiers from secp256k1 keys and builds the
// DID documents the NDA resolver serves for them.
//
// A did:nda identifier is "<method>:<address>", where method is "did:nda" or a
// network qualified form such as "did:nda:testnet" and address is the
// lowercase Ethereum address of the key.
package ndadid

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
	verificationmethod "github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/verification-method"
)

// DefaultMethod is the DID method prefix used when none is given.
const DefaultMethod = "did:nda"

// VerificationMethodType is the type of the generated verification method.
const VerificationMethodType = "EcdsaSecp256k1VerificationKey2019"

// KeyPair is a secp256k1 key and the DID derived from it.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	DID        string
}

// GenerateKeyPair creates a fresh key and its DID under method.
func GenerateKeyPair(method string) (*KeyPair, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	return FromPrivateKey(priv, method), nil
}

// FromPrivateKeyHex loads a hex encoded key, with or without 0x prefix.
func FromPrivateKeyHex(privKeyHex, method string) (*KeyPair, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return FromPrivateKey(priv, method), nil
}

// FromPrivateKey derives the DID of priv under method.
func FromPrivateKey(priv *ecdsa.PrivateKey, method string) *KeyPair {
	return &KeyPair{PrivateKey: priv, DID: DIDFromPublicKey(&priv.PublicKey, method)}
}

// DIDFromPublicKey returns "<method>:<address>".
func DIDFromPublicKey(pub *ecdsa.PublicKey, method string) string {
	if method == "" {
		method = DefaultMethod
	}

	return strings.ToLower(method + ":" + crypto.PubkeyToAddress(*pub).Hex())
}

// AddressFromPublicKeyHex converts a compressed or uncompressed public key to
// its lowercase Ethereum address.
func AddressFromPublicKeyHex(publicKeyHex string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("failed to decode public key hex: %w", err)
	}

	var pub *ecdsa.PublicKey

	switch {
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		pub, err = crypto.DecompressPubkey(b)
	case len(b) == 65 && b[0] == 0x04:
		pub, err = crypto.UnmarshalPubkey(b)
	default:
		return "", fmt.Errorf("unsupported public key format: expected 33 or 65 bytes, got %d", len(b))
	}

	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// KeyID returns the id of the key's verification method.
func (kp *KeyPair) KeyID() string {
	return kp.DID + "#key-1"
}

// PublicKeyHex returns the 0x prefixed compressed public key.
func (kp *KeyPair) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.CompressPubkey(&kp.PrivateKey.PublicKey))
}

// Signer returns an ES256K signer for the key pair.
func (kp *KeyPair) Signer() *signer.ES256KSigner {
	return signer.NewES256KSignerFromKey(kp.PrivateKey, kp.DID, kp.KeyID())
}

// Document builds the DID document of the key pair. controller defaults to
// the DID itself.
func (kp *KeyPair) Document(controller string) *verificationmethod.DIDDocument {
	if controller == "" {
		controller = kp.DID
	}

	return &verificationmethod.DIDDocument{
		Context: []string{
			"https://w3id.org/security/v1",
			"https://www.w3.org/ns/did/v1",
		},
		ID:         kp.DID,
		Controller: controller,
		VerificationMethod: []verificationmethod.VerificationMethodEntry{{
			ID:           kp.KeyID(),
			Type:         VerificationMethodType,
			Controller:   kp.DID,
			PublicKeyHex: kp.PublicKeyHex(),
		}},
		Authentication:  []interface{}{kp.KeyID()},
		AssertionMethod: []interface{}{kp.KeyID()},
	}
}
