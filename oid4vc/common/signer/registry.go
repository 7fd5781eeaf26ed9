package signer

import (
	"context"
	"sync"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// Registry routes key resolution to a KeyResolver registered for the DID
// method of the key identifier.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]KeyResolver
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]KeyResolver)}
}

// Register binds resolver to a DID method name, e.g. "key" or "nda".
func (r *Registry) Register(method string, resolver KeyResolver) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolvers[method] = resolver

	return r
}

// Methods returns the registered DID methods.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.resolvers))
	for m := range r.resolvers {
		methods = append(methods, m)
	}

	return methods
}

// Resolve dispatches to the resolver registered for keyID's DID method.
func (r *Registry) Resolve(ctx context.Context, keyID string) ([]byte, error) {
	method := MethodOf(keyID)
	if method == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindResolution, "resolve key", "%q is not a DID URL", keyID)
	}

	r.mu.RLock()
	resolver, ok := r.resolvers[method]
	r.mu.RUnlock()

	if !ok {
		return nil, oid4vcerr.New(oid4vcerr.KindResolution, "resolve key", "no resolver for did:%s", method)
	}

	return resolver.Resolve(ctx, keyID)
}

// StaticResolver resolves from a fixed set of keys. Lookups try the full key
// identifier first and then its DID.
type StaticResolver map[string][]byte

// Resolve returns the key registered for keyID or its DID.
func (s StaticResolver) Resolve(_ context.Context, keyID string) ([]byte, error) {
	if key, ok := s[keyID]; ok {
		return key, nil
	}

	if key, ok := s[DIDFromKeyID(keyID)]; ok {
		return key, nil
	}

	return nil, oid4vcerr.New(oid4vcerr.KindResolution, "resolve key", "unknown key %q", keyID)
}
