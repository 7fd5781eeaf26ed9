package jwt

import (
	"context"
	"errors"
	"strings"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// Verifier checks envelope signatures against keys from a KeyResolver.
type Verifier struct {
	resolver signer.KeyResolver
}

// NewVerifier creates a new Verifier backed by resolver.
func NewVerifier(resolver signer.KeyResolver) *Verifier {
	return &Verifier{resolver: resolver}
}

type verifyOptions struct {
	owner string
}

// VerifyOpt customizes verification.
type VerifyOpt func(*verifyOptions)

// WithKeyOwner requires the kid to belong to did. An envelope without a kid is
// verified with did itself as the key identifier.
func WithKeyOwner(did string) VerifyOpt {
	return func(o *verifyOptions) {
		o.owner = did
	}
}

// Verify parses token and checks its signature. No claim is decoded before the
// signature has been verified.
func (v *Verifier) Verify(ctx context.Context, token string, opts ...VerifyOpt) (*Envelope, error) {
	options := &verifyOptions{}
	for _, opt := range opts {
		opt(options)
	}

	envelope, err := Parse(token)
	if err != nil {
		return nil, err
	}

	keyID := envelope.Header.KeyID
	if options.owner != "" {
		if keyID == "" {
			keyID = options.owner
		}

		if signer.DIDFromKeyID(keyID) != options.owner {
			return nil, oid4vcerr.New(oid4vcerr.KindInvalidSignature, "verify jws",
				"key %q is not controlled by %q", keyID, options.owner)
		}
	}

	if keyID == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "verify jws", "kid not found in header")
	}

	method, err := verificationMethod(envelope.Header.Algorithm)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindUnsupported, "verify jws", err, "alg %q", envelope.Header.Algorithm)
	}

	if v.resolver == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindResolution, "verify jws", "no key resolver configured")
	}

	keyBytes, err := v.resolver.Resolve(ctx, keyID)
	if err != nil {
		var classified *oid4vcerr.Error
		if errors.As(err, &classified) {
			return nil, err
		}

		return nil, oid4vcerr.Wrap(oid4vcerr.KindResolution, "verify jws", err, "failed to resolve %q", keyID)
	}

	publicKey, err := publicKeyFor(envelope.Header.Algorithm, keyBytes)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, "verify jws", err, "unusable key for %q", keyID)
	}

	signingString := envelope.Raw[:strings.LastIndex(envelope.Raw, ".")]
	if err := method.Verify(signingString, envelope.Signature, publicKey); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, "verify jws", err, "signature check failed")
	}

	return envelope, nil
}
