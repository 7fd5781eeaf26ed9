package provider

import (
	"context"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	transport "github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/provider"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/response"
)

// State is the position of a Flow.
type State int

// Flow states.
const (
	StateIdle State = iota
	StateRequestReceived
	StateResponseGenerated
	StateResponseSent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestReceived:
		return "request_received"
	case StateResponseGenerated:
		return "response_generated"
	case StateResponseSent:
		return "response_sent"
	default:
		return "unknown"
	}
}

// Flow drives one exchange through Idle, RequestReceived, ResponseGenerated
// and ResponseSent. A failed step leaves the state unchanged. A Flow must not
// be used from several goroutines at once.
type Flow struct {
	provider *Provider
	state    State
	request  *request.AuthorizationRequest
	response *response.AuthorizationResponse
}

// NewFlow starts an idle exchange.
func (p *Provider) NewFlow() *Flow {
	return &Flow{provider: p}
}

// State returns the current state.
func (f *Flow) State() State {
	return f.state
}

// Request returns the validated request, or nil before ReceiveRequest succeeded.
func (f *Flow) Request() *request.AuthorizationRequest {
	return f.request
}

// Response returns the generated response, or nil before GenerateResponse
// succeeded.
func (f *Flow) Response() *response.AuthorizationResponse {
	return f.response
}

func (f *Flow) expect(op string, s State) error {
	if f.state != s {
		return oid4vcerr.New(oid4vcerr.KindInvalidState, op, "flow is %s, expected %s", f.state, s)
	}

	return nil
}

// ReceiveRequest validates raw and moves the flow to RequestReceived.
func (f *Flow) ReceiveRequest(ctx context.Context, raw string) error {
	if err := f.expect("receive request", StateIdle); err != nil {
		return err
	}

	req, err := f.provider.ValidateRequest(ctx, raw)
	if err != nil {
		return err
	}

	f.request = req
	f.state = StateRequestReceived

	return nil
}

// GenerateResponse builds the response and moves the flow to
// ResponseGenerated. After NoMatchingCredentials the flow stays in
// RequestReceived and may be retried with other credentials.
func (f *Flow) GenerateResponse(ctx context.Context, credentials []*presexch.Credential,
	claims *response.StandardClaims,
) (*response.AuthorizationResponse, error) {
	if err := f.expect("generate response", StateRequestReceived); err != nil {
		return nil, err
	}

	resp, err := f.provider.GenerateResponse(ctx, f.request, credentials, claims)
	if err != nil {
		return nil, err
	}

	f.response = resp
	f.state = StateResponseGenerated

	return resp, nil
}

// SendResponse delivers the response and moves the flow to ResponseSent. A
// failed delivery leaves the flow in ResponseGenerated; sending again is the
// caller's decision.
func (f *Flow) SendResponse(ctx context.Context) (*transport.DeliveryResult, error) {
	if err := f.expect("send response", StateResponseGenerated); err != nil {
		return nil, err
	}

	result, err := f.provider.SendResponse(ctx, f.response)
	if err != nil {
		return nil, err
	}

	f.state = StateResponseSent

	return result, nil
}
