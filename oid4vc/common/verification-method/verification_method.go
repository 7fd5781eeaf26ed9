package verificationmethod

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/bluele/gcache"
	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/didkey"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/provider"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

var logger = log.New("oid4vc/verification-method")

// VerificationMethodEntry represents a single verification method in a DID Document.
type VerificationMethodEntry struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller"`
	PublicKeyHex       string          `json:"publicKeyHex,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
}

// DIDDocument represents the structure of a resolved DID Document.
type DIDDocument struct {
	Context            interface{}               `json:"@context,omitempty"`
	ID                 string                    `json:"id"`
	VerificationMethod []VerificationMethodEntry `json:"verificationMethod"`
	Authentication     []interface{}             `json:"authentication,omitempty"`
	AssertionMethod    []interface{}             `json:"assertionMethod,omitempty"`
	Controller         interface{}               `json:"controller,omitempty"`
}

// resolutionResult is the universal resolver envelope. Some resolvers answer
// with the bare document instead.
type resolutionResult struct {
	DIDDocument *DIDDocument `json:"didDocument"`
}

// Resolver is a signer.KeyResolver that fetches DID documents from a
// universal resolver endpoint and caches them.
type Resolver struct {
	baseURL   string
	transport provider.Transport
	cache     gcache.Cache
}

// Opt configures a Resolver.
type Opt func(*Resolver)

// WithTransport sets the transport used to fetch DID documents.
func WithTransport(transport provider.Transport) Opt {
	return func(r *Resolver) {
		r.transport = transport
	}
}

// NewResolver creates a new DID resolver. Documents are fetched from
// cfg.ResolverURL + "/" + did and cached per cfg.CacheSize and cfg.CacheTTL.
func NewResolver(cfg *config.Config, opts ...Opt) *Resolver {
	if cfg == nil {
		cfg = config.New(config.Config{})
	}

	r := &Resolver{
		baseURL: strings.TrimRight(cfg.ResolverURL, "/"),
		cache:   gcache.New(cfg.CacheSize).LRU().Expiration(cfg.CacheTTL).Build(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.transport == nil {
		r.transport = provider.NewDefaultProvider(cfg)
	}

	return r
}

// Resolve returns the public key bytes of the verification method keyID. A
// bare DID resolves to the first verification method of its document.
func (r *Resolver) Resolve(ctx context.Context, keyID string) ([]byte, error) {
	did := signer.DIDFromKeyID(keyID)
	if !strings.HasPrefix(did, "did:") {
		return nil, oid4vcerr.New(oid4vcerr.KindResolution, "resolve key", "invalid verification method URL: %s", keyID)
	}

	doc, err := r.ResolveToDoc(ctx, did)
	if err != nil {
		return nil, err
	}

	vm, err := findVerificationMethod(doc, keyID)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "resolve key", err, "%q", keyID)
	}

	key, err := PublicKeyBytes(vm)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "resolve key", err, "%q", keyID)
	}

	return key, nil
}

// ResolveToDoc fetches and parses a DID document, serving it from the cache
// when possible.
func (r *Resolver) ResolveToDoc(ctx context.Context, did string) (*DIDDocument, error) {
	if cached, err := r.cache.Get(did); err == nil {
		return cached.(*DIDDocument), nil
	}

	body, err := r.transport.Get(ctx, r.baseURL+"/"+url.PathEscape(did))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "resolve did", err, "failed to resolve DID '%s'", did)
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "resolve did", err, "failed to unmarshal DID document JSON")
	}

	if doc.ID != "" && doc.ID != did {
		return nil, oid4vcerr.New(oid4vcerr.KindResolution, "resolve did", "resolver returned document for %q", doc.ID)
	}

	if err := r.cache.Set(did, doc); err != nil {
		logger.Warnf("failed to cache DID document for %s: %v", did, err)
	}

	return doc, nil
}

func parseDocument(body []byte) (*DIDDocument, error) {
	var result resolutionResult
	if err := json.Unmarshal(body, &result); err == nil && result.DIDDocument != nil {
		return result.DIDDocument, nil
	}

	var doc DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func findVerificationMethod(doc *DIDDocument, keyID string) (*VerificationMethodEntry, error) {
	if len(doc.VerificationMethod) == 0 {
		return nil, fmt.Errorf("verification method not found in DID document")
	}

	if !strings.Contains(keyID, "#") {
		return &doc.VerificationMethod[0], nil
	}

	_, fragment, _ := strings.Cut(keyID, "#")

	for i, vm := range doc.VerificationMethod {
		if vm.ID == keyID || vm.ID == "#"+fragment {
			return &doc.VerificationMethod[i], nil
		}
	}

	return nil, fmt.Errorf("verification method '%s' not found in DID document", keyID)
}

// PublicKeyBytes extracts the raw public key of a verification method from
// publicKeyHex, publicKeyJwk or publicKeyMultibase.
func PublicKeyBytes(vm *VerificationMethodEntry) ([]byte, error) {
	switch {
	case vm.PublicKeyHex != "":
		return hex.DecodeString(strings.TrimPrefix(vm.PublicKeyHex, "0x"))
	case len(vm.PublicKeyJwk) > 0:
		return jwkBytes(vm.PublicKeyJwk)
	case vm.PublicKeyMultibase != "":
		// Multikey values carry the same multicodec prefix as did:key.
		key, _, err := didkey.PublicKey("did:key:" + vm.PublicKeyMultibase)
		return key, err
	default:
		return nil, fmt.Errorf("verification method %q has no supported key material", vm.ID)
	}
}

type ecJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func jwkBytes(raw json.RawMessage) ([]byte, error) {
	var probe ecJWK
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid publicKeyJwk: %w", err)
	}

	// go-jose does not know secp256k1, so its points are assembled here.
	if probe.Kty == "EC" && probe.Crv == "secp256k1" {
		x, err := base64.RawURLEncoding.DecodeString(probe.X)
		if err != nil {
			return nil, fmt.Errorf("invalid jwk x: %w", err)
		}

		y, err := base64.RawURLEncoding.DecodeString(probe.Y)
		if err != nil {
			return nil, fmt.Errorf("invalid jwk y: %w", err)
		}

		if len(x) != 32 || len(y) != 32 {
			return nil, fmt.Errorf("invalid secp256k1 jwk coordinates")
		}

		return append(append([]byte{0x04}, x...), y...), nil
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("invalid publicKeyJwk: %w", err)
	}

	switch key := jwk.Key.(type) {
	case ed25519.PublicKey:
		return key, nil
	case *ecdsa.PublicKey:
		return elliptic.Marshal(key.Curve, key.X, key.Y), nil //nolint:staticcheck
	default:
		return nil, fmt.Errorf("unsupported jwk key type %T", jwk.Key)
	}
}
