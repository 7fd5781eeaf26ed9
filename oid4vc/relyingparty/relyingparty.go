// Package relyingparty implements the verifier side of SIOPv2 and OpenID4VP:
// it issues authorization requests, remembers them by state and validates the
// responses that come back.
package relyingparty

import (
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
)

var logger = log.New("oid4vc/relyingparty")

// RelyingParty is the verifier engine. It is safe for concurrent use.
type RelyingParty struct {
	clientID string
	scheme   string
	mode     string
	lifetime time.Duration
	signer   signer.Signer
	metadata *request.ClientMetadata
	verifier *jwt.Verifier
	sessions gcache.Cache
	now      func() time.Time
}

// Opt configures a RelyingParty.
type Opt func(*RelyingParty)

// WithSigner enables signed request objects. The signer's DID should be the
// client_id.
func WithSigner(s signer.Signer) Opt {
	return func(rp *RelyingParty) {
		rp.signer = s
	}
}

// WithClientMetadata sets the client_metadata sent with every request.
func WithClientMetadata(md *request.ClientMetadata) Opt {
	return func(rp *RelyingParty) {
		rp.metadata = md
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Opt {
	return func(rp *RelyingParty) {
		rp.now = now
	}
}

// New creates a relying party identified by clientID that verifies responses
// with keys from resolver. Sessions live for cfg.SessionTTL; at most
// cfg.MaxSessions are kept open, the least recently used going first.
func New(cfg *config.Config, clientID string, resolver signer.KeyResolver, opts ...Opt) *RelyingParty {
	if cfg == nil {
		cfg = config.New(config.Config{})
	}

	rp := &RelyingParty{
		clientID: clientID,
		scheme:   cfg.RequestScheme,
		mode:     cfg.ResponseMode,
		lifetime: cfg.SessionTTL,
		verifier: jwt.NewVerifier(resolver),
		sessions: gcache.New(cfg.MaxSessions).LRU().Expiration(cfg.SessionTTL).Build(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(rp)
	}

	return rp
}

// ClientID returns the relying party's client_id.
func (rp *RelyingParty) ClientID() string {
	return rp.clientID
}

// CreateRequest builds a request with a fresh nonce and state and opens a
// session for it. opts are applied after the defaults and may override them.
func (rp *RelyingParty) CreateRequest(opts ...request.Opt) (*request.AuthorizationRequest, error) {
	defaults := []request.Opt{
		request.WithResponseType(request.ResponseTypeIDToken),
		request.WithResponseMode(rp.mode),
		request.WithNonce(uuid.NewString()),
		request.WithState(uuid.NewString()),
		request.WithValidity(rp.now(), rp.lifetime),
	}

	if rp.metadata != nil {
		defaults = append(defaults, request.WithClientMetadata(rp.metadata))
	}

	req, err := request.New(rp.clientID, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}

	if req.State == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "create request", "state is required to track the session")
	}

	if err := rp.sessions.Set(req.State, req); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidState, "create request", err, "failed to store session")
	}

	logger.Debugf("opened session %s", req.State)

	return req, nil
}

// Session returns the open request for state.
func (rp *RelyingParty) Session(state string) (*request.AuthorizationRequest, error) {
	v, err := rp.sessions.Get(state)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidState, "lookup session", err, "unknown or expired state %q", state)
	}

	return v.(*request.AuthorizationRequest), nil
}

// CloseSession forgets state. It reports whether a session was open.
func (rp *RelyingParty) CloseSession(state string) bool {
	return rp.sessions.Remove(state)
}

// EncodeRequest returns req as an inline request URL.
func (rp *RelyingParty) EncodeRequest(req *request.AuthorizationRequest) (string, error) {
	return request.Encode(req, rp.scheme)
}

// SignRequest returns req as a signed request object.
func (rp *RelyingParty) SignRequest(req *request.AuthorizationRequest) (string, error) {
	if rp.signer == nil {
		return "", oid4vcerr.New(oid4vcerr.KindUnsupported, "sign request", "no signer configured")
	}

	return request.Sign(rp.signer, req)
}

// RequestByValue returns a request URL embedding req as a signed object.
func (rp *RelyingParty) RequestByValue(req *request.AuthorizationRequest) (string, error) {
	object, err := rp.SignRequest(req)
	if err != nil {
		return "", err
	}

	return rp.EncodeRequest(&request.AuthorizationRequest{ClientID: rp.clientID, Request: object})
}

// RequestByReference signs req and returns the object, to be served at
// requestURI, along with the request URL pointing at it.
func (rp *RelyingParty) RequestByReference(req *request.AuthorizationRequest, requestURI string) (string, string, error) {
	object, err := rp.SignRequest(req)
	if err != nil {
		return "", "", err
	}

	uri, err := rp.EncodeRequest(&request.AuthorizationRequest{ClientID: rp.clientID, RequestURI: requestURI})
	if err != nil {
		return "", "", err
	}

	return object, uri, nil
}
