package provider

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/didkey"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/response"
)

type fixture struct {
	holder   signer.Signer
	verifier signer.Signer
	issuer   signer.Signer
	provider *Provider
}

func newFixture(t *testing.T, opts ...Opt) *fixture {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	holder, err := didkey.NewEd25519Signer(priv)
	require.NoError(t, err)

	rpKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	rp, err := didkey.NewES256KSigner(rpKey)
	require.NoError(t, err)

	_, issuerPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	issuer, err := didkey.NewEd25519Signer(issuerPriv)
	require.NoError(t, err)

	return &fixture{
		holder:   holder,
		verifier: rp,
		issuer:   issuer,
		provider: New(nil, holder, didkey.NewResolver(), opts...),
	}
}

func (f *fixture) degree(t *testing.T, degreeType string) *presexch.Credential {
	t.Helper()

	token, err := jwt.Encode(f.issuer, map[string]interface{}{
		"iss": f.issuer.Identifier(),
		"sub": f.holder.Identifier(),
		"vc": map[string]interface{}{
			"type":              []string{"VerifiableCredential", "UniversityDegreeCredential"},
			"credentialSubject": map[string]interface{}{"degree": map[string]interface{}{"type": degreeType}},
		},
	})
	require.NoError(t, err)

	return &presexch.Credential{Format: presexch.FormatJWTVC, Value: token}
}

func degreeDefinition() *presexch.PresentationDefinition {
	return &presexch.PresentationDefinition{
		ID: "degree",
		InputDescriptors: []*presexch.InputDescriptor{{
			ID: "bachelor",
			Constraints: &presexch.Constraints{
				Fields: []*presexch.Field{{
					Path:   []string{"$.vc.credentialSubject.degree.type"},
					Filter: map[string]interface{}{"type": "string", "const": "BachelorDegree"},
				}},
			},
		}},
	}
}

func (f *fixture) inlineRequest(t *testing.T, opts ...request.Opt) string {
	t.Helper()

	base := []request.Opt{
		request.WithResponseType(request.ResponseTypeIDToken),
		request.WithRedirectURI("https://rp.example.com/cb"),
		request.WithNonce("n-0S6_WzA2Mj"),
		request.WithState("af0ifjsldkj"),
	}

	req, err := request.New(f.verifier.Identifier(), append(base, opts...)...)
	require.NoError(t, err)

	raw, err := request.Encode(req, "")
	require.NoError(t, err)

	return raw
}

func TestValidateRequestInline(t *testing.T) {
	f := newFixture(t)

	req, err := f.provider.ValidateRequest(context.Background(), f.inlineRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "n-0S6_WzA2Mj", req.Nonce)
	assert.Equal(t, f.verifier.Identifier(), req.ClientID)

	_, err = f.provider.ValidateRequest(context.Background(), "siopv2://idtoken?client_id=rp")
	require.True(t, errors.Is(err, oid4vcerr.ErrParse))
}

func TestValidateRequestByReference(t *testing.T) {
	f := newFixture(t)

	req, err := request.New(f.verifier.Identifier(),
		request.WithResponseType(request.ResponseTypeIDToken),
		request.WithRedirectURI("https://rp.example.com/cb"),
		request.WithNonce("by-ref"),
	)
	require.NoError(t, err)

	object, err := request.Sign(f.verifier, req)
	require.NoError(t, err)

	// A request object signed by someone other than the client.
	forged, err := request.Sign(f.issuer, req)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/request":
			_, _ = io.WriteString(w, object)
		case "/forged":
			_, _ = io.WriteString(w, forged)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	byRef := func(path string) string {
		raw, err := request.Encode(&request.AuthorizationRequest{
			ClientID:   f.verifier.Identifier(),
			RequestURI: server.URL + path,
		}, "openid://")
		require.NoError(t, err)

		return raw
	}

	got, err := f.provider.ValidateRequest(context.Background(), byRef("/request"))
	require.NoError(t, err)
	assert.Equal(t, "by-ref", got.Nonce)
	assert.Equal(t, f.verifier.Identifier(), got.Issuer)

	_, err = f.provider.ValidateRequest(context.Background(), byRef("/forged"))
	require.True(t, errors.Is(err, oid4vcerr.ErrInvalidSignature))

	_, err = f.provider.ValidateRequest(context.Background(), byRef("/missing"))
	require.True(t, errors.Is(err, oid4vcerr.ErrFetch))
}

func TestValidateRequestByValue(t *testing.T) {
	f := newFixture(t)

	// The object names a different client than the outer request.
	inner, err := request.New("did:key:z6MkOther",
		request.WithResponseType(request.ResponseTypeIDToken),
		request.WithRedirectURI("https://rp.example.com/cb"),
		request.WithNonce("n"),
	)
	require.NoError(t, err)

	object, err := request.Sign(f.verifier, inner)
	require.NoError(t, err)

	raw, err := request.Encode(&request.AuthorizationRequest{ClientID: f.verifier.Identifier(), Request: object}, "")
	require.NoError(t, err)

	_, err = f.provider.ValidateRequest(context.Background(), raw)
	require.True(t, errors.Is(err, oid4vcerr.ErrInvalidSignature))

	raw, err = request.Encode(&request.AuthorizationRequest{ClientID: "https://rp.example.com", Request: object}, "")
	require.NoError(t, err)

	_, err = f.provider.ValidateRequest(context.Background(), raw)
	require.True(t, errors.Is(err, oid4vcerr.ErrUnsupported))
}

func TestValidateRequestExpired(t *testing.T) {
	f := newFixture(t)

	raw, err := request.Encode(&request.AuthorizationRequest{
		ClientID:     f.verifier.Identifier(),
		ResponseType: request.ResponseTypeIDToken,
		RedirectURI:  "https://rp.example.com/cb",
		Nonce:        "n",
		Expiry:       time.Now().Add(-time.Minute).Unix(),
	}, "")
	require.NoError(t, err)

	_, err = f.provider.ValidateRequest(context.Background(), raw)
	require.True(t, errors.Is(err, oid4vcerr.ErrExpired))
}

func TestNegotiation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		md   *request.ClientMetadata
		err  error
	}{
		{"did:key accepted", &request.ClientMetadata{SubjectSyntaxTypesSupported: []string{"did:nda", "did:key"}}, nil},
		{"any did accepted", &request.ClientMetadata{SubjectSyntaxTypesSupported: []string{"did"}}, nil},
		{"did:key refused", &request.ClientMetadata{SubjectSyntaxTypesSupported: []string{"did:nda"}}, oid4vcerr.ErrUnsupported},
		{"alg refused", &request.ClientMetadata{IDTokenSigningAlgValuesSupported: []string{"ES256K"}}, oid4vcerr.ErrUnsupported},
		{"alg accepted", &request.ClientMetadata{IDTokenSigningAlgValuesSupported: []string{"ES256K", "EdDSA"}}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.provider.ValidateRequest(context.Background(), f.inlineRequest(t, request.WithRegistration(tc.md)))
			if tc.err == nil {
				require.NoError(t, err)
				return
			}

			require.True(t, errors.Is(err, tc.err))
		})
	}
}

func TestGenerateIDToken(t *testing.T) {
	f := newFixture(t)

	req, err := f.provider.ValidateRequest(context.Background(), f.inlineRequest(t))
	require.NoError(t, err)

	resp, err := f.provider.GenerateResponse(context.Background(), req, nil, &response.StandardClaims{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "af0ifjsldkj", resp.State)
	assert.Empty(t, resp.VPToken)

	envelope, err := jwt.NewVerifier(didkey.NewResolver()).Verify(context.Background(), resp.IDToken)
	require.NoError(t, err)

	var claims response.IDTokenClaims
	require.NoError(t, envelope.DecodeClaims(&claims))
	assert.Equal(t, f.holder.Identifier(), claims.Issuer)
	assert.Equal(t, f.holder.Identifier(), claims.Subject)
	assert.Equal(t, f.verifier.Identifier(), claims.Audience)
	assert.Equal(t, "n-0S6_WzA2Mj", claims.Nonce)
	assert.Equal(t, "Alice", claims.Name)
}

func TestGenerateVPToken(t *testing.T) {
	f := newFixture(t)

	req, err := f.provider.ValidateRequest(context.Background(), f.inlineRequest(t,
		request.WithResponseType("vp_token"),
		request.WithPresentationDefinition(degreeDefinition()),
	))
	require.NoError(t, err)

	master := f.degree(t, "MasterDegree")
	bachelor := f.degree(t, "BachelorDegree")

	resp, err := f.provider.GenerateResponse(context.Background(), req, []*presexch.Credential{master, bachelor}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.IDToken)
	require.NotNil(t, resp.PresentationSubmission)

	m := resp.PresentationSubmission.DescriptorMap[0]
	assert.Equal(t, "$", m.Path)
	assert.Equal(t, "$.vp.verifiableCredential[0]", m.PathNested.Path)

	submitted, err := req.PresentationDefinition.Evaluate(resp.VPToken, resp.PresentationSubmission)
	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, bachelor.Value, submitted[0].Value)
}

func TestGenerateIDTokenMatchesDefinition(t *testing.T) {
	f := newFixture(t)

	req, err := f.provider.ValidateRequest(context.Background(), f.inlineRequest(t,
		request.WithPresentationDefinition(degreeDefinition()),
	))
	require.NoError(t, err)
	require.False(t, req.RequiresVPToken())

	resp, err := f.provider.GenerateResponse(context.Background(), req, nil, nil)
	require.True(t, errors.Is(err, oid4vcerr.ErrNoMatchingCredentials))
	assert.Nil(t, resp)

	resp, err = f.provider.GenerateResponse(context.Background(), req,
		[]*presexch.Credential{f.degree(t, "MasterDegree")}, nil)
	require.True(t, errors.Is(err, oid4vcerr.ErrNoMatchingCredentials))
	assert.Nil(t, resp)

	resp, err = f.provider.GenerateResponse(context.Background(), req,
		[]*presexch.Credential{f.degree(t, "BachelorDegree")}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.IDToken)
	assert.Empty(t, resp.VPToken)
	assert.Nil(t, resp.PresentationSubmission)
}

func TestFlow(t *testing.T) {
	var form url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"redirect_uri":"https://rp.example.com/done"}`)
	}))
	defer server.Close()

	f := newFixture(t)
	flow := f.provider.NewFlow()
	assert.Equal(t, StateIdle, flow.State())

	_, err := flow.GenerateResponse(context.Background(), nil, nil)
	require.True(t, errors.Is(err, oid4vcerr.ErrInvalidState))

	raw := f.inlineRequest(t,
		request.WithResponseType("vp_token id_token"),
		request.WithPresentationDefinition(degreeDefinition()),
		request.WithResponseMode(request.ResponseModeDirectPost),
		request.WithResponseURI(server.URL),
	)
	require.NoError(t, flow.ReceiveRequest(context.Background(), raw))
	assert.Equal(t, StateRequestReceived, flow.State())

	require.True(t, errors.Is(flow.ReceiveRequest(context.Background(), raw), oid4vcerr.ErrInvalidState))

	// No credential matches: nothing is signed and the flow can be retried.
	_, err = flow.GenerateResponse(context.Background(), []*presexch.Credential{f.degree(t, "MasterDegree")}, nil)
	require.True(t, errors.Is(err, oid4vcerr.ErrNoMatchingCredentials))
	assert.Equal(t, StateRequestReceived, flow.State())
	assert.Nil(t, flow.Response())

	_, err = flow.GenerateResponse(context.Background(), []*presexch.Credential{f.degree(t, "BachelorDegree")}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateResponseGenerated, flow.State())

	result, err := flow.SendResponse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateResponseSent, flow.State())
	assert.Equal(t, "https://rp.example.com/done", result.Location)

	parsed, err := response.ParseValues(form)
	require.NoError(t, err)
	assert.Equal(t, flow.Response().IDToken, parsed.IDToken)
	assert.Equal(t, flow.Response().VPToken, parsed.VPToken)
	assert.Equal(t, "af0ifjsldkj", parsed.State)
}

func TestSendResponseRedirect(t *testing.T) {
	var received *url.URL

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL
		http.Redirect(w, r, "https://rp.example.com/next", http.StatusFound)
	}))
	defer server.Close()

	f := newFixture(t)
	resp := &response.AuthorizationResponse{IDToken: "a.b.c", State: "s", Target: server.URL + "/cb", Mode: request.ResponseModeQuery}

	result, err := f.provider.SendResponse(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/next", result.Location)
	assert.Equal(t, "a.b.c", received.Query().Get("id_token"))
}

func TestSendResponseRedirectModes(t *testing.T) {
	var hits int

	var received *url.URL

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		received = r.URL
	}))
	defer server.Close()

	f := newFixture(t)

	result, err := f.provider.SendResponse(context.Background(),
		&response.AuthorizationResponse{IDToken: "a.b.c", State: "s", Target: server.URL + "/cb"})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, "a.b.c", received.Query().Get("id_token"))
	assert.Equal(t, http.StatusOK, result.StatusCode)

	result, err = f.provider.SendResponse(context.Background(),
		&response.AuthorizationResponse{IDToken: "a.b.c", State: "s", Target: server.URL + "/cb", Mode: request.ResponseModeFragment})
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "fragment responses are not sent to the server")

	location, err := url.Parse(result.Location)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(location.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", fragment.Get("id_token"))
	assert.Equal(t, "s", fragment.Get("state"))
}

func TestSendResponseDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	f := newFixture(t)
	resp := &response.AuthorizationResponse{IDToken: "a.b.c", Target: server.URL, Mode: request.ResponseModeDirectPost}

	_, err := f.provider.SendResponse(context.Background(), resp)
	require.True(t, errors.Is(err, oid4vcerr.ErrDelivery))
	assert.True(t, oid4vcerr.IsTransient(err))

	_, err = f.provider.SendResponse(context.Background(), &response.AuthorizationResponse{IDToken: "a.b.c"})
	require.True(t, errors.Is(err, oid4vcerr.ErrDelivery))
}

func TestReleasedClaims(t *testing.T) {
	assertion := response.NewAssertion("did:key:z6Mk", "rp", "n", time.Unix(1700000000, 0), time.Minute)
	claims := &response.StandardClaims{Name: "Alice", Email: "alice@example.com"}

	all, err := releasedClaims(assertion, claims, nil)
	require.NoError(t, err)
	assert.Contains(t, all, "name")
	assert.Contains(t, all, "email")

	some, err := releasedClaims(assertion, claims, &request.ClaimRequests{
		IDToken: map[string]*request.IndividualClaimRequest{"email": nil, "birthdate": {Essential: true}},
	})
	require.NoError(t, err)
	assert.NotContains(t, some, "name")
	assert.Equal(t, "alice@example.com", some["email"])
	assert.Equal(t, "did:key:z6Mk", some["iss"])
}
