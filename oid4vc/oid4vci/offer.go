// Package oid4vci holds the OpenID for Verifiable Credential Issuance wire
// types a wallet needs: credential offers, issuer metadata, token and
// credential requests, and proof of possession JWTs.
package oid4vci

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// OfferScheme is the scheme of credential offer links.
const OfferScheme = "openid-credential-offer://"

// Grant types.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"
)

// DefaultPollingInterval is the interval, in seconds, assumed when a
// pre-authorized code grant does not name one.
const DefaultPollingInterval = 5

// AuthorizationCodeGrant is the authorization_code grant of an offer.
type AuthorizationCodeGrant struct {
	IssuerState string `json:"issuer_state,omitempty"`
}

// PreAuthorizedCodeGrant is the pre-authorized code grant of an offer.
type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode string `json:"pre-authorized_code"`
	UserPinRequired   bool   `json:"user_pin_required"`
	Interval          int64  `json:"interval"`
}

// UnmarshalJSON applies the default polling interval.
func (g *PreAuthorizedCodeGrant) UnmarshalJSON(data []byte) error {
	type grant PreAuthorizedCodeGrant

	out := grant{Interval: DefaultPollingInterval}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}

	*g = PreAuthorizedCodeGrant(out)

	return nil
}

// Grants lists the grants an issuer is prepared to process for an offer.
type Grants struct {
	AuthorizationCode *AuthorizationCodeGrant `json:"authorization_code,omitempty"`
	PreAuthorizedCode *PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code,omitempty"`
}

// CredentialOffer is an issuer's offer. Credentials entries are either ids of
// supported credentials or inline credential objects.
type CredentialOffer struct {
	CredentialIssuer string        `json:"credential_issuer"`
	Credentials      []interface{} `json:"credentials"`
	Grants           *Grants       `json:"grants,omitempty"`
}

// CredentialOfferQuery is a credential offer link: it carries the offer either
// by value or by reference.
type CredentialOfferQuery struct {
	Offer    *CredentialOffer
	OfferURI string
}

// ParseOfferQuery parses an openid-credential-offer:// link.
func ParseOfferQuery(raw string) (*CredentialOfferQuery, error) {
	const op = "parse credential offer"

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "malformed url")
	}

	query := u.Query()

	if uri := query.Get("credential_offer_uri"); uri != "" {
		return &CredentialOfferQuery{OfferURI: uri}, nil
	}

	value := query.Get("credential_offer")
	if value == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "neither credential_offer nor credential_offer_uri present")
	}

	offer, err := ParseOffer([]byte(value))
	if err != nil {
		return nil, err
	}

	return &CredentialOfferQuery{Offer: offer}, nil
}

// ParseOffer decodes and checks a credential offer object.
func ParseOffer(raw []byte) (*CredentialOffer, error) {
	const op = "parse credential offer"

	offer := &CredentialOffer{}
	if err := json.Unmarshal(raw, offer); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "invalid credential_offer")
	}

	if _, err := url.ParseRequestURI(offer.CredentialIssuer); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "invalid credential_issuer")
	}

	if len(offer.Credentials) == 0 {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "offer has no credentials")
	}

	return offer, nil
}

// String returns the offer link: the offer URI itself, or an
// openid-credential-offer:// link embedding the offer.
func (q *CredentialOfferQuery) String() string {
	if q.Offer == nil {
		return q.OfferURI
	}

	b, err := json.Marshal(q.Offer)
	if err != nil {
		return ""
	}

	return OfferScheme + "?" + url.Values{"credential_offer": {string(b)}}.Encode()
}
