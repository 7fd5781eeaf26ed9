package signer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RemoteSigner is an ES256K signer whose private key lives behind a remote
// signing API. The API receives the SHA-256 digest of the signing input.
type RemoteSigner struct {
	endpoint string
	apiKey   string
	did      string
	keyID    string
	client   *http.Client
}

// NewRemoteSigner creates a new RemoteSigner for did.
func NewRemoteSigner(endpoint, apiKey, did string) (*RemoteSigner, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if did == "" {
		return nil, fmt.Errorf("did required")
	}

	return &RemoteSigner{
		endpoint: endpoint,
		apiKey:   apiKey,
		did:      did,
		keyID:    fmt.Sprintf("%s#%s", did, "key-1"),
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Sign signs the SHA-256 digest of payload using the remote API
func (s *RemoteSigner) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)

	reqBody, err := json.Marshal(map[string]any{
		"payload_hex": hex.EncodeToString(digest[:]),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		s.endpoint,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call remote signer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out struct {
		SignatureHex string `json:"signature_hex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode remote signer response: %w", err)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, err
	}

	switch len(sig) {
	case 65:
		return sig[:64], nil
	case 64:
		return sig, nil
	default:
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
}

// Identifier returns the controlling DID.
func (s *RemoteSigner) Identifier() string {
	return s.did
}

// KeyID returns the verification method id.
func (s *RemoteSigner) KeyID() string {
	return s.keyID
}

// Algorithm returns ES256K.
func (s *RemoteSigner) Algorithm() string {
	return AlgES256K
}
