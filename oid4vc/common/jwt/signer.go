package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// Header types used by the engines.
const (
	TypeJWT           = "JWT"
	TypeRequestObject = "oauth-authz-req+jwt"
	TypeProof         = "openid4vci-proof+jwt"
)

type encodeOptions struct {
	typ     string
	headers map[string]interface{}
}

// EncodeOpt customizes the protected header of an encoded envelope.
type EncodeOpt func(*encodeOptions)

// WithType sets the typ header. Defaults to JWT.
func WithType(typ string) EncodeOpt {
	return func(o *encodeOptions) {
		o.typ = typ
	}
}

// WithHeader adds an extra protected header parameter.
func WithHeader(name string, value interface{}) EncodeOpt {
	return func(o *encodeOptions) {
		o.headers[name] = value
	}
}

// Encode serializes claims into a compact JWS signed by s. The kid header is
// s.KeyID() and alg is s.Algorithm().
func Encode(s signer.Signer, claims interface{}, opts ...EncodeOpt) (string, error) {
	if s == nil {
		return "", fmt.Errorf("signer is required")
	}

	options := &encodeOptions{typ: TypeJWT, headers: map[string]interface{}{}}
	for _, opt := range opts {
		opt(options)
	}

	mapClaims, err := toMapClaims(claims)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(&signerMethod{alg: s.Algorithm()}, mapClaims)
	for name, value := range options.headers {
		token.Header[name] = value
	}
	token.Header["typ"] = options.typ
	token.Header["kid"] = s.KeyID()

	signedString, err := token.SignedString(s)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedString, nil
}

// toMapClaims passes claims through JSON so struct tags apply and numbers keep
// their precision.
func toMapClaims(claims interface{}) (jwt.MapClaims, error) {
	if m, ok := claims.(jwt.MapClaims); ok {
		return m, nil
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claims: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var mapClaims jwt.MapClaims
	if err := decoder.Decode(&mapClaims); err != nil {
		return nil, fmt.Errorf("claims must be a JSON object: %w", err)
	}

	return mapClaims, nil
}
