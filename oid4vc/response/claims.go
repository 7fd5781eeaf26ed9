// Package response defines the self-issued assertions a provider signs, the
// ID token and the VP token, and the authorization response that carries them
// back to the relying party.
package response

import (
	"time"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
)

// Assertion holds the registered claims shared by ID and VP tokens.
type Assertion struct {
	Issuer   string `json:"iss"`
	Subject  string `json:"sub"`
	Audience string `json:"aud"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
}

// NewAssertion returns a self-issued assertion: iss and sub are both did.
func NewAssertion(did, audience, nonce string, now time.Time, lifetime time.Duration) Assertion {
	return Assertion{
		Issuer:   did,
		Subject:  did,
		Audience: audience,
		Nonce:    nonce,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(lifetime).Unix(),
	}
}

// Check verifies, in order, that the assertion is self-issued, addressed to
// audience, unexpired at now and bound to nonce. It must only be called on
// claims whose signature has been verified.
func (a *Assertion) Check(now time.Time, audience, nonce string) error {
	const op = "validate response"

	if a.Issuer == "" || a.Issuer != a.Subject {
		return oid4vcerr.New(oid4vcerr.KindIssuerSubjectMismatch, op, "iss %q does not match sub %q", a.Issuer, a.Subject)
	}

	if a.Audience != audience {
		return oid4vcerr.New(oid4vcerr.KindAudienceMismatch, op, "aud %q, expected %q", a.Audience, audience)
	}

	if !time.Unix(a.Expiry, 0).After(now) {
		return oid4vcerr.New(oid4vcerr.KindExpired, op, "token expired at %d", a.Expiry)
	}

	if a.Nonce != nonce {
		return oid4vcerr.New(oid4vcerr.KindNonceMismatch, op, "nonce does not match the request")
	}

	return nil
}

// StandardClaims are the OpenID Connect standard claims a holder may release
// in its ID token.
type StandardClaims struct {
	Name              string   `json:"name,omitempty"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	MiddleName        string   `json:"middle_name,omitempty"`
	Nickname          string   `json:"nickname,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Profile           string   `json:"profile,omitempty"`
	Picture           string   `json:"picture,omitempty"`
	Website           string   `json:"website,omitempty"`
	Email             string   `json:"email,omitempty"`
	EmailVerified     bool     `json:"email_verified,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Birthdate         string   `json:"birthdate,omitempty"`
	ZoneInfo          string   `json:"zoneinfo,omitempty"`
	Locale            string   `json:"locale,omitempty"`
	PhoneNumber       string   `json:"phone_number,omitempty"`
	Address           *Address `json:"address,omitempty"`
	UpdatedAt         int64    `json:"updated_at,omitempty"`
}

// Address is the address standard claim.
type Address struct {
	Formatted     string `json:"formatted,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
}

// IDTokenClaims is the payload of a self-issued ID token.
type IDTokenClaims struct {
	Assertion
	StandardClaims
}

// Presentation is the vp claim of a VP token.
type Presentation struct {
	Context              []string               `json:"@context"`
	Type                 []string               `json:"type"`
	Holder               string                 `json:"holder"`
	VerifiableCredential []*presexch.Credential `json:"verifiableCredential"`
}

// VPTokenClaims is the payload of a JWT VP token.
type VPTokenClaims struct {
	Assertion
	VP *Presentation `json:"vp"`
}

// Presentation defaults.
var (
	DefaultPresentationContext = []string{"https://www.w3.org/2018/credentials/v1"}
	DefaultPresentationType    = []string{"VerifiablePresentation"}
)

// NewPresentation wraps credentials in a presentation held by holder.
func NewPresentation(holder string, credentials []*presexch.Credential) *Presentation {
	return &Presentation{
		Context:              DefaultPresentationContext,
		Type:                 DefaultPresentationType,
		Holder:               holder,
		VerifiableCredential: credentials,
	}
}

// NestSubmission rewrites a submission produced against a bare credential list
// for a JWT VP token: each entry points at the token itself and nests the
// credential under $.vp.
func NestSubmission(submission *presexch.PresentationSubmission) *presexch.PresentationSubmission {
	nested := &presexch.PresentationSubmission{
		ID:            submission.ID,
		DefinitionID:  submission.DefinitionID,
		DescriptorMap: make([]*presexch.InputDescriptorMapping, 0, len(submission.DescriptorMap)),
	}

	for _, m := range submission.DescriptorMap {
		nested.DescriptorMap = append(nested.DescriptorMap, &presexch.InputDescriptorMapping{
			ID:     m.ID,
			Format: presexch.FormatJWTVP,
			Path:   "$",
			PathNested: &presexch.InputDescriptorMapping{
				ID:     m.ID,
				Format: m.Format,
				Path:   "$.vp" + m.Path[1:],
			},
		})
	}

	return nested
}
