package response

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
)

// AuthorizationResponse is what a provider returns to a relying party.
type AuthorizationResponse struct {
	IDToken                string                           `json:"id_token,omitempty"`
	VPToken                string                           `json:"vp_token,omitempty"`
	PresentationSubmission *presexch.PresentationSubmission `json:"presentation_submission,omitempty"`
	State                  string                           `json:"state,omitempty"`

	// Target and Mode describe delivery and are not part of the wire form.
	Target string `json:"-"`
	Mode   string `json:"-"`
}

// Values returns the response parameters, with presentation_submission JSON
// encoded.
func (r *AuthorizationResponse) Values() (url.Values, error) {
	values := url.Values{}

	if r.IDToken != "" {
		values.Set("id_token", r.IDToken)
	}

	if r.VPToken != "" {
		values.Set("vp_token", r.VPToken)
	}

	if r.PresentationSubmission != nil {
		b, err := json.Marshal(r.PresentationSubmission)
		if err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "encode response", err, "failed to marshal presentation_submission")
		}

		values.Set("presentation_submission", string(b))
	}

	if r.State != "" {
		values.Set("state", r.State)
	}

	return values, nil
}

// URL returns Target with the parameters in its query, or in its fragment for
// the fragment response mode.
func (r *AuthorizationResponse) URL() (string, error) {
	const op = "encode response"

	values, err := r.Values()
	if err != nil {
		return "", err
	}

	u, err := url.Parse(r.Target)
	if err != nil || r.Target == "" {
		return "", oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "invalid response target %q", r.Target)
	}

	if r.Mode == request.ResponseModeFragment {
		u.Fragment = ""
		u.RawFragment = ""

		return u.String() + "#" + values.Encode(), nil
	}

	query := u.Query()
	for k, vs := range values {
		query[k] = vs
	}

	u.RawQuery = query.Encode()

	return u.String(), nil
}

// ParseValues reads a response from form or query parameters.
func ParseValues(values url.Values) (*AuthorizationResponse, error) {
	r := &AuthorizationResponse{
		IDToken: values.Get("id_token"),
		VPToken: values.Get("vp_token"),
		State:   values.Get("state"),
	}

	if raw := values.Get("presentation_submission"); raw != "" {
		r.PresentationSubmission = &presexch.PresentationSubmission{}
		if err := json.Unmarshal([]byte(raw), r.PresentationSubmission); err != nil {
			return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode response", err, "invalid presentation_submission")
		}
	}

	if r.IDToken == "" && r.VPToken == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "decode response", "neither id_token nor vp_token present")
	}

	return r, nil
}

// ParseURL reads a response delivered by redirect, from the fragment when
// present and from the query otherwise.
func ParseURL(raw string) (*AuthorizationResponse, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode response", err, "malformed url")
	}

	params := u.RawQuery
	if u.Fragment != "" {
		params = u.EscapedFragment()
	}

	values, err := url.ParseQuery(params)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode response", err, "malformed parameters")
	}

	return ParseValues(values)
}
