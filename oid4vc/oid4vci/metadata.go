package oid4vci

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// WellKnownPath is where an issuer publishes its metadata, relative to the
// credential issuer identifier.
const WellKnownPath = "/.well-known/openid-credential-issuer"

// CredentialDefinition describes a W3C credential type.
type CredentialDefinition struct {
	Type              []string               `json:"type"`
	CredentialSubject map[string]interface{} `json:"credentialSubject,omitempty"`
}

// CredentialsSupported is one credential an issuer can issue.
type CredentialsSupported struct {
	ID                                   string                   `json:"id,omitempty"`
	Format                               string                   `json:"format"`
	Scope                                string                   `json:"scope,omitempty"`
	CryptographicBindingMethodsSupported []string                 `json:"cryptographic_binding_methods_supported,omitempty"`
	CryptographicSuitesSupported         []string                 `json:"cryptographic_suites_supported,omitempty"`
	ProofTypesSupported                  []string                 `json:"proof_types_supported,omitempty"`
	Display                              []map[string]interface{} `json:"display,omitempty"`
	CredentialDefinition                 *CredentialDefinition    `json:"credential_definition,omitempty"`
	Order                                []string                 `json:"order,omitempty"`
}

// CredentialIssuerMetadata is the issuer's published metadata.
type CredentialIssuerMetadata struct {
	CredentialIssuer           string                   `json:"credential_issuer"`
	AuthorizationServer        string                   `json:"authorization_server,omitempty"`
	CredentialEndpoint         string                   `json:"credential_endpoint"`
	BatchCredentialEndpoint    string                   `json:"batch_credential_endpoint,omitempty"`
	DeferredCredentialEndpoint string                   `json:"deferred_credential_endpoint,omitempty"`
	CredentialsSupported       []*CredentialsSupported  `json:"credentials_supported"`
	Display                    []map[string]interface{} `json:"display,omitempty"`
}

// Supported returns the supported credential with the given id.
func (m *CredentialIssuerMetadata) Supported(id string) (*CredentialsSupported, bool) {
	for _, c := range m.CredentialsSupported {
		if c != nil && c.ID == id {
			return c, true
		}
	}

	return nil, false
}

// TokenEndpoint returns the token endpoint of the issuer's authorization
// server, which defaults to the issuer itself.
func (m *CredentialIssuerMetadata) TokenEndpoint() string {
	base := m.AuthorizationServer
	if base == "" {
		base = m.CredentialIssuer
	}

	return strings.TrimRight(base, "/") + "/token"
}

const issuerMetadataSchema = `{
  "type": "object",
  "required": ["credential_issuer", "credential_endpoint", "credentials_supported"],
  "properties": {
    "credential_issuer": {"type": "string", "pattern": "^https?://"},
    "authorization_server": {"type": "string"},
    "credential_endpoint": {"type": "string", "pattern": "^https?://"},
    "batch_credential_endpoint": {"type": "string"},
    "deferred_credential_endpoint": {"type": "string"},
    "credentials_supported": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["format"],
        "properties": {
          "format": {"type": "string"},
          "credential_definition": {
            "type": "object",
            "required": ["type"],
            "properties": {"type": {"type": "array", "items": {"type": "string"}}}
          }
        }
      }
    },
    "display": {"type": "array"}
  }
}`

var issuerMetadataLoader = gojsonschema.NewStringLoader(issuerMetadataSchema)

// ParseIssuerMetadata validates raw against the issuer metadata schema and
// decodes it.
func ParseIssuerMetadata(raw []byte) (*CredentialIssuerMetadata, error) {
	const op = "parse issuer metadata"

	result, err := gojsonschema.Validate(issuerMetadataLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "invalid document")
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}

		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "%s", strings.Join(errs, "; "))
	}

	md := &CredentialIssuerMetadata{}
	if err := json.Unmarshal(raw, md); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "invalid document")
	}

	return md, nil
}
