package oid4vci

import (
	"net/url"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// TokenRequest exchanges a pre-authorized code for an access token.
type TokenRequest struct {
	GrantType         string `json:"grant_type"`
	PreAuthorizedCode string `json:"pre-authorized_code"`
	UserPin           string `json:"user_pin,omitempty"`
}

// NewTokenRequest builds a pre-authorized code token request from an offer.
func NewTokenRequest(offer *CredentialOffer, userPin string) (*TokenRequest, error) {
	const op = "build token request"

	if offer == nil || offer.Grants == nil || offer.Grants.PreAuthorizedCode == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindUnsupported, op, "offer has no pre-authorized code grant")
	}

	grant := offer.Grants.PreAuthorizedCode
	if grant.UserPinRequired && userPin == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "the issuer requires a user pin")
	}

	return &TokenRequest{
		GrantType:         GrantTypePreAuthorizedCode,
		PreAuthorizedCode: grant.PreAuthorizedCode,
		UserPin:           userPin,
	}, nil
}

// Values returns the request as form parameters.
func (r *TokenRequest) Values() url.Values {
	values := url.Values{
		"grant_type":          {r.GrantType},
		"pre-authorized_code": {r.PreAuthorizedCode},
	}

	if r.UserPin != "" {
		values.Set("user_pin", r.UserPin)
	}

	return values
}

// TokenResponse is the token endpoint's answer.
type TokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       uint64 `json:"expires_in,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	Scope           string `json:"scope,omitempty"`
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn uint64 `json:"c_nonce_expires_in,omitempty"`
}
