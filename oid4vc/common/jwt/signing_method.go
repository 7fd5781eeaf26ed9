package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// SigningMethodES256K implements ES256K signing
type SigningMethodES256K struct{}

// Alg returns the algorithm name
func (m *SigningMethodES256K) Alg() string {
	return signer.AlgES256K
}

// Sign signs with a secp256k1 private key, so tokens built directly with
// golang-jwt verify like the ones Encode produces. Keys held elsewhere go
// through Encode and a signer.Signer.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	privKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("invalid key type %T, use Encode with a signer.Signer", key)
	}

	hash := sha256.Sum256([]byte(signingString))
	sig, err := crypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return sig[:64], nil // Return R and S, excluding recovery ID
}

// Verify verifies a 64 byte R||S signature.
func (m *SigningMethodES256K) Verify(signingString string, signature []byte, key interface{}) error {
	publicKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("invalid key type %T", key)
	}

	if len(signature) != 64 {
		return fmt.Errorf("invalid signature length")
	}

	hash := sha256.Sum256([]byte(signingString))
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), hash[:], signature) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// ES256K is the ES256K signing method instance
var ES256K = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(ES256K.Alg(), func() jwt.SigningMethod {
		return ES256K
	})
}

// signerMethod hands the signing input to a signer.Signer, so private keys
// never reach this package.
type signerMethod struct {
	alg string
}

func (m *signerMethod) Alg() string {
	return m.alg
}

func (m *signerMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	s, ok := key.(signer.Signer)
	if !ok {
		return nil, fmt.Errorf("invalid key type %T", key)
	}

	return s.Sign([]byte(signingString))
}

func (m *signerMethod) Verify(signingString string, sig []byte, key interface{}) error {
	method, err := verificationMethod(m.alg)
	if err != nil {
		return err
	}

	return method.Verify(signingString, sig, key)
}

func verificationMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case signer.AlgES256K:
		return ES256K, nil
	case signer.AlgEdDSA:
		return jwt.SigningMethodEdDSA, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
}

// publicKeyFor converts resolved key bytes into the key type expected by the
// verification method of alg.
func publicKeyFor(alg string, raw []byte) (interface{}, error) {
	switch alg {
	case signer.AlgEdDSA:
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid ed25519 public key length %d", len(raw))
		}

		return ed25519.PublicKey(raw), nil
	case signer.AlgES256K:
		return secp256k1PublicKey(raw)
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
}

func secp256k1PublicKey(publicKeyBytes []byte) (*ecdsa.PublicKey, error) {
	// Handle compressed public keys (33 bytes)
	if len(publicKeyBytes) == 33 && (publicKeyBytes[0] == 0x02 || publicKeyBytes[0] == 0x03) {
		return crypto.DecompressPubkey(publicKeyBytes)
	}

	// Handle uncompressed public keys (65 bytes)
	if len(publicKeyBytes) == 65 && publicKeyBytes[0] == 0x04 {
		return crypto.UnmarshalPubkey(publicKeyBytes)
	}

	return nil, fmt.Errorf("unsupported public key format")
}
