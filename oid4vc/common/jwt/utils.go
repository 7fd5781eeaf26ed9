package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

var compactJWS = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)

// IsJWT reports whether s has the shape of a compact JWS.
func IsJWT(s string) bool {
	return compactJWS.MatchString(strings.TrimSpace(s))
}

// Header is the protected header of an envelope.
type Header struct {
	KeyID     string `json:"kid,omitempty"`
	Algorithm string `json:"alg"`
	Type      string `json:"typ,omitempty"`
}

// Envelope is a decoded compact JWS.
type Envelope struct {
	Header    Header
	Payload   []byte
	Signature []byte
	// Raw is the original compact serialization.
	Raw string
}

// DecodeClaims unmarshals the payload into v. Numbers decode as json.Number
// when v is a map.
func (e *Envelope) DecodeClaims(v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(e.Payload))
	decoder.UseNumber()

	if err := decoder.Decode(v); err != nil {
		return oid4vcerr.Wrap(oid4vcerr.KindParse, "decode claims", err, "invalid payload")
	}

	return nil
}

// Parse splits and decodes a compact JWS without verifying its signature.
func Parse(token string) (*Envelope, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "parse jws", "expected 3 segments, got %d", len(parts))
	}

	headerBytes, err := DecodeSegment(parts[0])
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "parse jws", err, "invalid header")
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "parse jws", err, "invalid header")
	}

	payload, err := DecodeSegment(parts[1])
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "parse jws", err, "invalid payload")
	}

	signature, err := DecodeSegment(parts[2])
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "parse jws", err, "invalid signature encoding")
	}

	return &Envelope{
		Header:    header,
		Payload:   payload,
		Signature: signature,
		Raw:       strings.TrimSpace(token),
	}, nil
}

// DecodePayload returns the unverified claims of a compact JWS.
func DecodePayload(token string) (map[string]interface{}, error) {
	envelope, err := Parse(token)
	if err != nil {
		return nil, err
	}

	var claims map[string]interface{}
	if err := envelope.DecodeClaims(&claims); err != nil {
		return nil, err
	}

	if claims == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}

	return claims, nil
}

// DecodeSegment decodes a base64url segment, tolerating padding.
func DecodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(seg, "="))
}

// EncodeSegment base64url encodes b without padding.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
