package oid4vci

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/provider"
)

var logger = log.New("oid4vc/oid4vci")

// Client performs the wallet side calls of the pre-authorized code flow.
type Client struct {
	transport provider.Transport
}

// ClientOpt configures a Client.
type ClientOpt func(*Client)

// WithTransport sets the transport used to reach the issuer.
func WithTransport(t provider.Transport) ClientOpt {
	return func(c *Client) {
		c.transport = t
	}
}

// NewClient creates a Client.
func NewClient(cfg *config.Config, opts ...ClientOpt) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = provider.NewDefaultProvider(cfg)
	}

	return c
}

// ResolveOffer returns the offer of q, fetching it when passed by reference.
func (c *Client) ResolveOffer(ctx context.Context, q *CredentialOfferQuery) (*CredentialOffer, error) {
	if q.Offer != nil {
		return q.Offer, nil
	}

	body, err := c.transport.Get(ctx, q.OfferURI)
	if err != nil {
		return nil, err
	}

	return ParseOffer(body)
}

// FetchIssuerMetadata reads the metadata published by issuer.
func (c *Client) FetchIssuerMetadata(ctx context.Context, issuer string) (*CredentialIssuerMetadata, error) {
	body, err := c.transport.Get(ctx, strings.TrimRight(issuer, "/")+WellKnownPath)
	if err != nil {
		return nil, err
	}

	md, err := ParseIssuerMetadata(body)
	if err != nil {
		return nil, err
	}

	if strings.TrimRight(md.CredentialIssuer, "/") != strings.TrimRight(issuer, "/") {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "fetch issuer metadata",
			"metadata names issuer %q, expected %q", md.CredentialIssuer, issuer)
	}

	logger.Debugf("issuer %s supports %d credentials", issuer, len(md.CredentialsSupported))

	return md, nil
}

// RequestToken posts req to the token endpoint.
func (c *Client) RequestToken(ctx context.Context, endpoint string, req *TokenRequest) (*TokenResponse, error) {
	result, err := c.transport.PostForm(ctx, endpoint, req.Values())
	if err != nil {
		return nil, err
	}

	token := &TokenResponse{}
	if err := json.Unmarshal(result.Body, token); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "request token", err, "invalid token response")
	}

	if token.AccessToken == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "request token", "access_token is missing")
	}

	return token, nil
}
