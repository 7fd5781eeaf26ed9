package request

import (
	"time"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
)

// Opt sets a request parameter.
type Opt func(*AuthorizationRequest)

// WithResponseType sets response_type, e.g. "id_token" or "vp_token id_token".
func WithResponseType(rt string) Opt {
	return func(r *AuthorizationRequest) {
		r.ResponseType = rt
	}
}

// WithRedirectURI sets redirect_uri.
func WithRedirectURI(uri string) Opt {
	return func(r *AuthorizationRequest) {
		r.RedirectURI = uri
	}
}

// WithResponseURI sets response_uri.
func WithResponseURI(uri string) Opt {
	return func(r *AuthorizationRequest) {
		r.ResponseURI = uri
	}
}

// WithResponseMode sets response_mode.
func WithResponseMode(mode string) Opt {
	return func(r *AuthorizationRequest) {
		r.ResponseMode = mode
	}
}

// WithScope sets scope.
func WithScope(scope string) Opt {
	return func(r *AuthorizationRequest) {
		r.Scope = scope
	}
}

// WithState sets state.
func WithState(state string) Opt {
	return func(r *AuthorizationRequest) {
		r.State = state
	}
}

// WithNonce sets nonce.
func WithNonce(nonce string) Opt {
	return func(r *AuthorizationRequest) {
		r.Nonce = nonce
	}
}

// WithClaims sets the claims parameter.
func WithClaims(claims *ClaimRequests) Opt {
	return func(r *AuthorizationRequest) {
		r.Claims = claims
	}
}

// WithPresentationDefinition sets presentation_definition.
func WithPresentationDefinition(pd *presexch.PresentationDefinition) Opt {
	return func(r *AuthorizationRequest) {
		r.PresentationDefinition = pd
	}
}

// WithClientMetadata sets client_metadata.
func WithClientMetadata(md *ClientMetadata) Opt {
	return func(r *AuthorizationRequest) {
		r.ClientMetadata = md
	}
}

// WithRegistration sets the legacy registration parameter.
func WithRegistration(md *ClientMetadata) Opt {
	return func(r *AuthorizationRequest) {
		r.Registration = md
	}
}

// WithValidity sets iat to now and exp to now+lifetime.
func WithValidity(now time.Time, lifetime time.Duration) Opt {
	return func(r *AuthorizationRequest) {
		r.IssuedAt = now.Unix()
		r.Expiry = now.Add(lifetime).Unix()
	}
}

// WithRequestURI makes the request a by-reference request.
func WithRequestURI(uri string) Opt {
	return func(r *AuthorizationRequest) {
		r.RequestURI = uri
	}
}

// WithRequestObject makes the request a by-value request.
func WithRequestObject(object string) Opt {
	return func(r *AuthorizationRequest) {
		r.Request = object
	}
}

// New builds a request for clientID. An inline request is checked with
// Validate; a by-reference or by-value request may carry nothing besides
// client_id and the reference.
func New(clientID string, opts ...Opt) (*AuthorizationRequest, error) {
	r := &AuthorizationRequest{ClientID: clientID, Scope: ScopeOpenID}
	for _, opt := range opts {
		opt(r)
	}

	if r.IsByReference() || r.IsByValue() {
		return r.referenceOnly()
	}

	if err := r.Validate(time.Now()); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *AuthorizationRequest) referenceOnly() (*AuthorizationRequest, error) {
	const op = "build request"

	if r.ClientID == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "client_id parameter is required")
	}

	if r.IsByReference() && r.IsByValue() {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "request and request_uri are mutually exclusive")
	}

	return &AuthorizationRequest{
		ClientID:   r.ClientID,
		Request:    r.Request,
		RequestURI: r.RequestURI,
	}, nil
}
