package presexch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
)

// Claim format designations.
const (
	FormatJWTVC = "jwt_vc_json"
	FormatJWTVP = "jwt_vp_json"
	FormatLDPVC = "ldp_vc"
	FormatLDPVP = "ldp_vp"
)

// Credential is a format-tagged credential. Value holds either the compact
// JWT (jwt_vc_json) or a decoded JSON document: one of nil, bool, float64,
// string, []interface{} or map[string]interface{}.
type Credential struct {
	Format string
	Value  interface{}
}

// ParseCredential detects the format of raw: a compact JWT becomes a
// jwt_vc_json credential, a JSON object an ldp_vc credential.
func ParseCredential(raw []byte) (*Credential, error) {
	trimmed := strings.TrimSpace(string(raw))

	if jwt.IsJWT(trimmed) {
		return &Credential{Format: FormatJWTVC, Value: trimmed}, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("credential is neither a JWT nor a JSON object")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &Credential{Format: FormatLDPVC, Value: doc}, nil
}

// Document returns the JSON document constraints are evaluated against. JWT
// credentials are matched against their decoded payload.
func (c *Credential) Document() (interface{}, error) {
	return decodeEmbedded(c.Value)
}

// MarshalJSON writes the credential the way it is embedded in a presentation.
func (c *Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a JWT string or a JSON object.
func (c *Credential) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		data = []byte(s)
	}

	parsed, err := ParseCredential(data)
	if err != nil {
		return err
	}

	*c = *parsed

	return nil
}

// decodeEmbedded turns a compact JWT into its payload and passes any other
// value through, normalizing numbers to float64.
func decodeEmbedded(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok || !jwt.IsJWT(s) {
		return v, nil
	}

	envelope, err := jwt.Parse(s)
	if err != nil {
		return nil, err
	}

	var payload interface{}
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWT payload: %w", err)
	}

	return payload, nil
}
