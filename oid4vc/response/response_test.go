package response

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
)

const holderDID = "did:key:z6MkiTBz1ymuepAQ4HEHYSF1H8quG5GLVVQR3djdX3mDooWp"

func TestAssertionCheck(t *testing.T) {
	now := time.Now()
	valid := NewAssertion(holderDID, "https://rp.example.com", "n-1", now, time.Minute)

	require.NoError(t, valid.Check(now, "https://rp.example.com", "n-1"))

	tests := []struct {
		name   string
		mutate func(a *Assertion)
		target error
	}{
		{"issuer differs from subject", func(a *Assertion) { a.Subject = "did:key:other" }, oid4vcerr.ErrIssuerSubjectMismatch},
		{"empty issuer", func(a *Assertion) { a.Issuer, a.Subject = "", "" }, oid4vcerr.ErrIssuerSubjectMismatch},
		{"wrong audience", func(a *Assertion) { a.Audience = "https://evil.example.com" }, oid4vcerr.ErrAudienceMismatch},
		{"expired", func(a *Assertion) { a.Expiry = now.Add(-time.Second).Unix() }, oid4vcerr.ErrExpired},
		{"expires now", func(a *Assertion) { a.Expiry = now.Unix() }, oid4vcerr.ErrExpired},
		{"wrong nonce", func(a *Assertion) { a.Nonce = "n-2" }, oid4vcerr.ErrNonceMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := valid
			tc.mutate(&a)
			require.True(t, errors.Is(a.Check(now, "https://rp.example.com", "n-1"), tc.target))
		})
	}
}

func TestIDTokenClaimsJSON(t *testing.T) {
	claims := IDTokenClaims{
		Assertion:      NewAssertion(holderDID, "rp", "n", time.Unix(1700000000, 0), time.Minute),
		StandardClaims: StandardClaims{Name: "Alice", Email: "alice@example.com"},
	}

	b, err := json.Marshal(claims)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &flat))
	assert.Equal(t, holderDID, flat["iss"])
	assert.Equal(t, holderDID, flat["sub"])
	assert.Equal(t, "Alice", flat["name"])
	assert.Equal(t, float64(1700000060), flat["exp"])
	assert.NotContains(t, flat, "birthdate")
}

func TestNestSubmission(t *testing.T) {
	nested := NestSubmission(&presexch.PresentationSubmission{
		ID:           "sub",
		DefinitionID: "degree",
		DescriptorMap: []*presexch.InputDescriptorMapping{
			{ID: "bachelor", Format: presexch.FormatJWTVC, Path: "$.verifiableCredential[0]"},
		},
	})

	require.Len(t, nested.DescriptorMap, 1)
	m := nested.DescriptorMap[0]
	assert.Equal(t, presexch.FormatJWTVP, m.Format)
	assert.Equal(t, "$", m.Path)
	assert.Equal(t, "$.vp.verifiableCredential[0]", m.PathNested.Path)
	assert.Equal(t, presexch.FormatJWTVC, m.PathNested.Format)
}

func TestAuthorizationResponseURL(t *testing.T) {
	submission := &presexch.PresentationSubmission{ID: "s", DefinitionID: "d", DescriptorMap: []*presexch.InputDescriptorMapping{}}

	t.Run("query", func(t *testing.T) {
		r := &AuthorizationResponse{
			IDToken:                "a.b.c",
			PresentationSubmission: submission,
			State:                  "xyz",
			Target:                 "https://rp.example.com/cb?session=1",
			Mode:                   request.ResponseModeQuery,
		}

		raw, err := r.URL()
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "1", u.Query().Get("session"))
		assert.Equal(t, "a.b.c", u.Query().Get("id_token"))

		parsed, err := ParseURL(raw)
		require.NoError(t, err)
		assert.Equal(t, "xyz", parsed.State)
		assert.Equal(t, submission, parsed.PresentationSubmission)
	})

	t.Run("fragment", func(t *testing.T) {
		r := &AuthorizationResponse{IDToken: "a.b.c", State: "xyz", Target: "https://rp.example.com/cb", Mode: request.ResponseModeFragment}

		raw, err := r.URL()
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Empty(t, u.RawQuery)
		assert.Contains(t, u.Fragment, "id_token=a.b.c")

		parsed, err := ParseURL(raw)
		require.NoError(t, err)
		assert.Equal(t, "a.b.c", parsed.IDToken)
	})

	t.Run("no target", func(t *testing.T) {
		_, err := (&AuthorizationResponse{IDToken: "a.b.c"}).URL()
		require.True(t, errors.Is(err, oid4vcerr.ErrParse))
	})
}

func TestParseValues(t *testing.T) {
	_, err := ParseValues(url.Values{"state": {"x"}})
	require.True(t, errors.Is(err, oid4vcerr.ErrParse))

	_, err = ParseValues(url.Values{"vp_token": {"a.b.c"}, "presentation_submission": {"{"}})
	require.True(t, errors.Is(err, oid4vcerr.ErrParse))
}
