package relyingparty

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/response"
)

// Result is a validated response.
type Result struct {
	Request *request.AuthorizationRequest
	IDToken *response.IDTokenClaims
	VPToken *response.VPTokenClaims
	// Credentials are the submitted credentials, one per descriptor map entry.
	Credentials []*presexch.SubmittedCredential
}

// ValidateResponse validates resp against the session opened for its state.
// The session is closed once the response is accepted, so a response is
// accepted at most once.
func (rp *RelyingParty) ValidateResponse(ctx context.Context, resp *response.AuthorizationResponse) (*Result, error) {
	const op = "validate response"

	if resp == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "response is nil")
	}

	req, err := rp.Session(resp.State)
	if err != nil {
		return nil, err
	}

	result := &Result{Request: req}

	if req.RequiresIDToken() {
		if resp.IDToken == "" {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "id_token is missing")
		}

		result.IDToken, err = rp.ValidateIDToken(ctx, resp.IDToken, req.Nonce)
		if err != nil {
			return nil, err
		}
	}

	if req.RequiresVPToken() {
		if resp.VPToken == "" {
			return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "vp_token is missing")
		}

		result.VPToken, result.Credentials, err = rp.ValidateVPToken(ctx, resp.VPToken, req.Nonce,
			req.PresentationDefinition, resp.PresentationSubmission)
		if err != nil {
			return nil, err
		}
	}

	if result.IDToken != nil && result.VPToken != nil && result.IDToken.Subject != result.VPToken.Subject {
		return nil, oid4vcerr.New(oid4vcerr.KindIssuerSubjectMismatch, op, "id_token and vp_token have different subjects")
	}

	rp.CloseSession(resp.State)
	logger.Infof("accepted response for session %s", resp.State)

	return result, nil
}

// ValidateIDToken verifies a self-issued ID token: its signature first, then
// issuer and subject, audience, expiry and nonce.
func (rp *RelyingParty) ValidateIDToken(ctx context.Context, token, nonce string) (*response.IDTokenClaims, error) {
	claims := &response.IDTokenClaims{}

	if err := rp.verifyAssertion(ctx, token, nonce, claims, &claims.Assertion); err != nil {
		return nil, err
	}

	return claims, nil
}

// ValidateVPToken verifies a JWT VP token like an ID token, then verifies the
// embedded JWT credentials concurrently and evaluates the submission against
// pd.
func (rp *RelyingParty) ValidateVPToken(ctx context.Context, token, nonce string, pd *presexch.PresentationDefinition,
	submission *presexch.PresentationSubmission,
) (*response.VPTokenClaims, []*presexch.SubmittedCredential, error) {
	const op = "validate vp_token"

	claims := &response.VPTokenClaims{}

	if err := rp.verifyAssertion(ctx, token, nonce, claims, &claims.Assertion); err != nil {
		return nil, nil, err
	}

	if claims.VP == nil {
		return nil, nil, oid4vcerr.New(oid4vcerr.KindParse, op, "vp claim is missing")
	}

	if claims.VP.Holder != "" && claims.VP.Holder != claims.Issuer {
		return nil, nil, oid4vcerr.New(oid4vcerr.KindIssuerSubjectMismatch, op,
			"holder %q is not the issuer %q", claims.VP.Holder, claims.Issuer)
	}

	if err := rp.verifyCredentials(ctx, claims.VP.VerifiableCredential); err != nil {
		return nil, nil, err
	}

	submitted, err := pd.Evaluate(token, submission)
	if err != nil {
		return nil, nil, err
	}

	return claims, submitted, nil
}

// verifyAssertion checks the signature of token, decodes it into claims and
// checks the registered claims. The signing key must belong to the issuer.
func (rp *RelyingParty) verifyAssertion(ctx context.Context, token, nonce string, claims interface{},
	assertion *response.Assertion,
) error {
	envelope, err := rp.verifier.Verify(ctx, token)
	if err != nil {
		return err
	}

	if err := envelope.DecodeClaims(claims); err != nil {
		return err
	}

	if err := assertion.Check(rp.now(), rp.clientID, nonce); err != nil {
		return err
	}

	if signer.DIDFromKeyID(envelope.Header.KeyID) != assertion.Issuer {
		return oid4vcerr.New(oid4vcerr.KindInvalidSignature, "validate response",
			"key %q is not controlled by %q", envelope.Header.KeyID, assertion.Issuer)
	}

	return nil
}

// verifyCredentials checks the signatures of embedded JWT credentials. Other
// formats are opaque and pass through.
func (rp *RelyingParty) verifyCredentials(ctx context.Context, credentials []*presexch.Credential) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range credentials {
		if c == nil {
			continue
		}

		token, ok := c.Value.(string)
		if !ok || !jwt.IsJWT(token) {
			continue
		}

		g.Go(func() error {
			if _, err := rp.verifier.Verify(gctx, token); err != nil {
				logger.Warnf("embedded credential %d failed verification: %v", i, err)
				return err
			}

			return nil
		})
	}

	return g.Wait()
}
