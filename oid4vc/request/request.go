// Package request implements the OpenID authorization request: its data model,
// the compact URL codec, the builder used by relying parties and the signed
// request object.
package request

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
)

// Response types.
const (
	ResponseTypeIDToken = "id_token"
	ResponseTypeVPToken = "vp_token"
)

// Response modes.
const (
	ResponseModeDirectPost = "direct_post"
	// ResponseModePost is the pre-final name of direct_post.
	ResponseModePost     = "post"
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
)

// ScopeOpenID is the scope every self-issued request carries.
const ScopeOpenID = "openid"

// SelfIssuedAudience is the audience of request objects addressed to any
// self-issued provider.
const SelfIssuedAudience = "https://self-issued.me/v2"

// ClientMetadata carries relying party capabilities, sent as client_metadata
// or, in older drafts, registration.
type ClientMetadata struct {
	// SubjectSyntaxTypesSupported lists DID methods as "did:<method>" or
	// "urn:ietf:params:oauth:jwk-thumbprint".
	SubjectSyntaxTypesSupported      []string             `json:"subject_syntax_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string             `json:"id_token_signing_alg_values_supported,omitempty"`
	VPFormats                        presexch.ClaimFormat `json:"vp_formats,omitempty"`
	ClientName                       string               `json:"client_name,omitempty"`
	LogoURI                          string               `json:"logo_uri,omitempty"`
}

// IndividualClaimRequest refines a requested claim. A nil request asks for the
// claim with default options.
type IndividualClaimRequest struct {
	Essential bool          `json:"essential,omitempty"`
	Value     interface{}   `json:"value,omitempty"`
	Values    []interface{} `json:"values,omitempty"`
}

// ClaimRequests is the claims request parameter.
type ClaimRequests struct {
	IDToken  map[string]*IndividualClaimRequest `json:"id_token,omitempty"`
	UserInfo map[string]*IndividualClaimRequest `json:"userinfo,omitempty"`
}

// AuthorizationRequest is a SIOPv2 / OpenID4VP authorization request. Inline
// requests carry every parameter; by-reference requests only client_id and
// request_uri; by-value requests only client_id and request.
type AuthorizationRequest struct {
	ResponseType           string                           `json:"response_type,omitempty"`
	ClientID               string                           `json:"client_id"`
	RedirectURI            string                           `json:"redirect_uri,omitempty"`
	ResponseURI            string                           `json:"response_uri,omitempty"`
	ResponseMode           string                           `json:"response_mode,omitempty"`
	Scope                  string                           `json:"scope,omitempty"`
	State                  string                           `json:"state,omitempty"`
	Nonce                  string                           `json:"nonce,omitempty"`
	Claims                 *ClaimRequests                   `json:"claims,omitempty"`
	PresentationDefinition *presexch.PresentationDefinition `json:"presentation_definition,omitempty"`
	ClientMetadata         *ClientMetadata                  `json:"client_metadata,omitempty"`
	Registration           *ClientMetadata                  `json:"registration,omitempty"`

	// Request object claims.
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud,omitempty"`
	IssuedAt int64  `json:"iat,omitempty"`
	Expiry   int64  `json:"exp,omitempty"`

	Request    string `json:"request,omitempty"`
	RequestURI string `json:"request_uri,omitempty"`
}

// IsByReference reports whether the request points at a request object.
func (r *AuthorizationRequest) IsByReference() bool {
	return r.RequestURI != ""
}

// IsByValue reports whether the request embeds a request object.
func (r *AuthorizationRequest) IsByValue() bool {
	return r.Request != ""
}

// Metadata returns client_metadata, falling back to registration.
func (r *AuthorizationRequest) Metadata() *ClientMetadata {
	if r.ClientMetadata != nil {
		return r.ClientMetadata
	}

	return r.Registration
}

// ResponseTypes returns the space separated response_type values.
func (r *AuthorizationRequest) ResponseTypes() []string {
	return strings.Fields(r.ResponseType)
}

// RequiresIDToken reports whether an id_token is requested.
func (r *AuthorizationRequest) RequiresIDToken() bool {
	return slices.Contains(r.ResponseTypes(), ResponseTypeIDToken)
}

// RequiresVPToken reports whether a vp_token is requested.
func (r *AuthorizationRequest) RequiresVPToken() bool {
	return slices.Contains(r.ResponseTypes(), ResponseTypeVPToken)
}

// ResponseTarget returns where the response goes: response_uri for direct
// posts when present, redirect_uri otherwise.
func (r *AuthorizationRequest) ResponseTarget() string {
	if r.IsDirectPost() && r.ResponseURI != "" {
		return r.ResponseURI
	}

	if r.RedirectURI != "" {
		return r.RedirectURI
	}

	return r.ResponseURI
}

// IsDirectPost reports whether the response is delivered by form POST.
func (r *AuthorizationRequest) IsDirectPost() bool {
	return r.ResponseMode == ResponseModeDirectPost || r.ResponseMode == ResponseModePost
}

// Validate checks that an inline request carries the parameters every flow
// depends on and that it has not expired.
func (r *AuthorizationRequest) Validate(now time.Time) error {
	const op = "validate request"

	switch {
	case r.ClientID == "":
		return oid4vcerr.New(oid4vcerr.KindParse, op, "client_id parameter is required")
	case r.ResponseType == "":
		return oid4vcerr.New(oid4vcerr.KindParse, op, "response_type parameter is required")
	case r.Nonce == "":
		return oid4vcerr.New(oid4vcerr.KindParse, op, "nonce parameter is required")
	case r.RedirectURI == "" && r.ResponseURI == "":
		return oid4vcerr.New(oid4vcerr.KindParse, op, "redirect_uri or response_uri is required")
	}

	for _, rt := range r.ResponseTypes() {
		if rt != ResponseTypeIDToken && rt != ResponseTypeVPToken {
			return oid4vcerr.New(oid4vcerr.KindUnsupported, op, "response_type %q", rt)
		}
	}

	if r.RequiresVPToken() && r.PresentationDefinition == nil {
		return oid4vcerr.New(oid4vcerr.KindParse, op, "vp_token requested without presentation_definition")
	}

	switch r.ResponseMode {
	case "", ResponseModeDirectPost, ResponseModePost, ResponseModeQuery, ResponseModeFragment:
	default:
		return oid4vcerr.New(oid4vcerr.KindUnsupported, op, "response_mode %q", r.ResponseMode)
	}

	if r.Expiry != 0 && !time.Unix(r.Expiry, 0).After(now) {
		return oid4vcerr.New(oid4vcerr.KindExpired, op, "request expired at %d", r.Expiry)
	}

	return nil
}
