package request

import (
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// Sign returns req as a request object signed by s. iss defaults to the
// signer's DID and aud to the self-issued audience.
func Sign(s signer.Signer, req *AuthorizationRequest) (string, error) {
	const op = "sign request object"

	if req == nil {
		return "", oid4vcerr.New(oid4vcerr.KindParse, op, "request is nil")
	}

	if req.IsByReference() || req.IsByValue() {
		return "", oid4vcerr.New(oid4vcerr.KindParse, op, "cannot sign a request that is itself a reference")
	}

	claims := *req
	if claims.Issuer == "" {
		claims.Issuer = s.Identifier()
	}

	if claims.Audience == "" {
		claims.Audience = SelfIssuedAudience
	}

	token, err := jwt.Encode(s, &claims, jwt.WithType(jwt.TypeRequestObject))
	if err != nil {
		return "", oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, op, err, "failed to sign")
	}

	return token, nil
}

// FromEnvelope decodes the claims of a verified request object.
func FromEnvelope(envelope *jwt.Envelope) (*AuthorizationRequest, error) {
	req := &AuthorizationRequest{}
	if err := envelope.DecodeClaims(req); err != nil {
		return nil, err
	}

	if req.IsByReference() || req.IsByValue() {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "decode request object", "request object must not nest another reference")
	}

	return req, nil
}
