// Package provider implements the self-issued OpenID provider: it validates
// authorization requests, matches the holder's credentials against requested
// presentation definitions, signs the ID and VP tokens and delivers them.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	transport "github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/provider"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/response"
)

var logger = log.New("oid4vc/provider")

// Provider is the holder side engine. It keeps no per-request state and may be
// shared between goroutines; see Flow for the stateful exchange.
type Provider struct {
	signer    signer.Signer
	verifier  *jwt.Verifier
	transport transport.Transport
	lifetime  time.Duration
	now       func() time.Time
}

// Opt configures a Provider.
type Opt func(*Provider)

// WithTransport sets the transport used to fetch by-reference requests and
// deliver responses.
func WithTransport(t transport.Transport) Opt {
	return func(p *Provider) {
		p.transport = t
	}
}

// WithLifetime sets the validity window of issued tokens.
func WithLifetime(d time.Duration) Opt {
	return func(p *Provider) {
		p.lifetime = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Opt {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates a provider that signs with s and verifies signed requests with
// keys from resolver.
func New(cfg *config.Config, s signer.Signer, resolver signer.KeyResolver, opts ...Opt) *Provider {
	if cfg == nil {
		cfg = config.New(config.Config{})
	}

	p := &Provider{
		signer:   s,
		verifier: jwt.NewVerifier(resolver),
		lifetime: cfg.AssertionLifetime,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.transport == nil {
		p.transport = transport.NewDefaultProvider(cfg)
	}

	return p
}

// ValidateRequest decodes raw, fetches and verifies its request object when
// the request is passed by reference or by value, and checks the result. No
// claim of a request object is read before its signature has been verified
// against client_id.
func (p *Provider) ValidateRequest(ctx context.Context, raw string) (*request.AuthorizationRequest, error) {
	const op = "validate request"

	req, err := request.Decode(raw)
	if err != nil {
		return nil, err
	}

	object := req.Request

	if req.IsByReference() {
		if req.IsByValue() {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "request and request_uri are mutually exclusive")
		}

		body, err := p.transport.Get(ctx, req.RequestURI)
		if err != nil {
			return nil, err
		}

		object = strings.TrimSpace(string(body))
	}

	if object != "" {
		req, err = p.verifyObject(ctx, req.ClientID, object)
		if err != nil {
			return nil, err
		}
	}

	if err := req.Validate(p.now()); err != nil {
		return nil, err
	}

	if err := p.negotiate(req); err != nil {
		return nil, err
	}

	logger.Debugf("accepted request from %s", req.ClientID)

	return req, nil
}

func (p *Provider) verifyObject(ctx context.Context, clientID, object string) (*request.AuthorizationRequest, error) {
	const op = "verify request object"

	if clientID == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "client_id parameter is required")
	}

	if signer.MethodOf(clientID) == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindUnsupported, op, "client_id %q is not a DID", clientID)
	}

	envelope, err := p.verifier.Verify(ctx, object, jwt.WithKeyOwner(clientID))
	if err != nil {
		return nil, err
	}

	req, err := request.FromEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	if req.ClientID != clientID {
		return nil, oid4vcerr.New(oid4vcerr.KindInvalidSignature, op,
			"request object client_id %q does not match %q", req.ClientID, clientID)
	}

	if req.Issuer != "" && req.Issuer != clientID {
		return nil, oid4vcerr.New(oid4vcerr.KindInvalidSignature, op,
			"request object iss %q does not match %q", req.Issuer, clientID)
	}

	return req, nil
}

// negotiate refuses requests whose client metadata rules out this provider's
// DID method or signing algorithm.
func (p *Provider) negotiate(req *request.AuthorizationRequest) error {
	const op = "negotiate metadata"

	md := req.Metadata()
	if md == nil {
		return nil
	}

	method := signer.MethodOf(p.signer.Identifier())
	if len(md.SubjectSyntaxTypesSupported) > 0 && !slices.ContainsFunc(md.SubjectSyntaxTypesSupported, func(t string) bool {
		return t == "did" || t == "did:"+method
	}) {
		return oid4vcerr.New(oid4vcerr.KindUnsupported, op,
			"subject syntax did:%s not in %v", method, md.SubjectSyntaxTypesSupported)
	}

	alg := p.signer.Algorithm()
	if req.RequiresIDToken() && len(md.IDTokenSigningAlgValuesSupported) > 0 &&
		!slices.Contains(md.IDTokenSigningAlgValuesSupported, alg) {
		return oid4vcerr.New(oid4vcerr.KindUnsupported, op,
			"id_token alg %s not in %v", alg, md.IDTokenSigningAlgValuesSupported)
	}

	if req.RequiresVPToken() && len(md.VPFormats) > 0 {
		props, ok := md.VPFormats[presexch.FormatJWTVP]
		if !ok {
			return oid4vcerr.New(oid4vcerr.KindUnsupported, op, "verifier does not accept %s", presexch.FormatJWTVP)
		}

		if props != nil && len(props.Alg) > 0 && !slices.Contains(props.Alg, alg) {
			return oid4vcerr.New(oid4vcerr.KindUnsupported, op, "%s alg %s not in %v", presexch.FormatJWTVP, alg, props.Alg)
		}
	}

	return nil
}

// GenerateResponse builds and signs the tokens req asks for. When req carries
// a presentation definition, credentials are matched against it first and
// nothing is signed if the match fails. claims are released in the ID token,
// restricted to the ones req names when it names any.
func (p *Provider) GenerateResponse(_ context.Context, req *request.AuthorizationRequest,
	credentials []*presexch.Credential, claims *response.StandardClaims,
) (*response.AuthorizationResponse, error) {
	const op = "generate response"

	if req == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "request is nil")
	}

	now := p.now()
	did := p.signer.Identifier()
	resp := &response.AuthorizationResponse{
		State:  req.State,
		Target: req.ResponseTarget(),
		Mode:   req.ResponseMode,
	}

	var matched *presexch.MatchResult

	if req.PresentationDefinition != nil {
		result, err := req.PresentationDefinition.Match(credentials)
		if err != nil {
			return nil, err
		}

		matched = result
	}

	if req.RequiresVPToken() {
		if matched == nil {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "vp_token requested without presentation_definition")
		}

		vp := &response.VPTokenClaims{
			Assertion: response.NewAssertion(did, req.ClientID, req.Nonce, now, p.lifetime),
			VP:        response.NewPresentation(did, matched.Credentials),
		}

		token, err := jwt.Encode(p.signer, vp)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, op, err, "failed to sign vp_token")
		}

		resp.VPToken = token
		resp.PresentationSubmission = response.NestSubmission(matched.Submission)
	}

	if req.RequiresIDToken() {
		idToken, err := releasedClaims(response.NewAssertion(did, req.ClientID, req.Nonce, now, p.lifetime), claims, req.Claims)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "failed to build id_token")
		}

		resp.IDToken, err = jwt.Encode(p.signer, idToken)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, op, err, "failed to sign id_token")
		}
	}

	logger.Infof("generated response for %s", req.ClientID)

	return resp, nil
}

// SendResponse delivers resp by form POST for direct_post, otherwise by
// redirect with the parameters in the query, the default, or the fragment.
// Fragment responses are only returned as Location. A failed delivery is
// never retried.
func (p *Provider) SendResponse(ctx context.Context, resp *response.AuthorizationResponse) (*transport.DeliveryResult, error) {
	const op = "send response"

	if resp == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "response is nil")
	}

	if resp.Target == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindDelivery, op, "response has no target")
	}

	if resp.Mode == request.ResponseModeDirectPost || resp.Mode == request.ResponseModePost {
		form, err := resp.Values()
		if err != nil {
			return nil, err
		}

		return p.transport.PostForm(ctx, resp.Target, form)
	}

	redirect := *resp
	if redirect.Mode == "" {
		redirect.Mode = request.ResponseModeQuery
	}

	target, err := redirect.URL()
	if err != nil {
		return nil, err
	}

	// A fragment never reaches the server; the caller's user agent follows Location.
	if redirect.Mode == request.ResponseModeFragment {
		return &transport.DeliveryResult{Location: target}, nil
	}

	return p.transport.Redirect(ctx, target)
}
