package provider

import (
	"context"
	"net/url"
)

// Transport defines the network collaborator of the engines. It fetches
// by-reference requests and DID documents and delivers authorization
// responses. Implementations own retry policy: the engines never retry.
type Transport interface {
	// Get fetches the body at rawURL. Failures are reported as fetch errors.
	Get(ctx context.Context, rawURL string) ([]byte, error)

	// PostForm submits form to rawURL as application/x-www-form-urlencoded.
	// Failures are reported as delivery errors.
	PostForm(ctx context.Context, rawURL string, form url.Values) (*DeliveryResult, error)

	// Redirect navigates the user agent to rawURL, which carries the response
	// in its query or fragment. Failures are reported as delivery errors.
	Redirect(ctx context.Context, rawURL string) (*DeliveryResult, error)
}

// DeliveryResult describes what the verifier answered to a delivered response.
type DeliveryResult struct {
	StatusCode int
	Body       []byte
	// Location is the URL the user agent is sent to next, if any.
	Location string
}
