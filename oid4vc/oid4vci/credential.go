package oid4vci

import (
	"time"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/signer"
)

// ProofTypeJWT is the only supported proof type.
const ProofTypeJWT = "jwt"

// Proof binds a credential request to the wallet's key.
type Proof struct {
	ProofType string `json:"proof_type"`
	JWT       string `json:"jwt"`
}

// ProofClaims is the payload of a proof of possession JWT.
type ProofClaims struct {
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp,omitempty"`
	Nonce    string `json:"nonce"`
}

// NewProof signs a proof of possession for the issuer at audience, bound to
// the c_nonce the issuer handed out.
func NewProof(s signer.Signer, audience, nonce string, now time.Time) (*Proof, error) {
	const op = "build proof"

	if audience == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "aud claim is required")
	}

	if nonce == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "nonce claim is required")
	}

	token, err := jwt.Encode(s, &ProofClaims{
		Issuer:   s.Identifier(),
		Audience: audience,
		IssuedAt: now.Unix(),
		Nonce:    nonce,
	}, jwt.WithType(jwt.TypeProof))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindInvalidSignature, op, err, "failed to sign proof")
	}

	return &Proof{ProofType: ProofTypeJWT, JWT: token}, nil
}

// CredentialRequest asks the credential endpoint for one credential.
type CredentialRequest struct {
	Format               string                `json:"format"`
	CredentialDefinition *CredentialDefinition `json:"credential_definition"`
	Proof                *Proof                `json:"proof,omitempty"`
}

// CredentialResponse is the credential endpoint's answer: a credential, or a
// transaction id for deferred issuance.
type CredentialResponse struct {
	Format          string      `json:"format,omitempty"`
	Credential      interface{} `json:"credential,omitempty"`
	TransactionID   string      `json:"transaction_id,omitempty"`
	CNonce          string      `json:"c_nonce,omitempty"`
	CNonceExpiresIn uint64      `json:"c_nonce_expires_in,omitempty"`
}

// IsDeferred reports whether issuance was deferred.
func (r *CredentialResponse) IsDeferred() bool {
	return r.Credential == nil && r.TransactionID != ""
}
