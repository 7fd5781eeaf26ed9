package ndadid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	verificationmethod "github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/verification-method"
)

const (
	testPrivKeyHex = "c6f8cf675b77523c3d3157d322b3c7c4cc14874f290407398361be1a4c1ed7d0"
	testDID        = "did:nda:testnet:0xb64b2b1168047d1745492c7025c5edba69e4f4f0"
)

func TestFromPrivateKeyHex(t *testing.T) {
	kp, err := FromPrivateKeyHex("0x"+testPrivKeyHex, "did:nda:testnet")
	require.NoError(t, err)
	assert.Equal(t, testDID, kp.DID)
	assert.Equal(t, testDID+"#key-1", kp.Signer().KeyID())

	address, err := AddressFromPublicKeyHex(kp.PublicKeyHex())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(testDID, address))

	_, err = FromPrivateKeyHex("zz", "")
	require.Error(t, err)

	_, err = AddressFromPublicKeyHex("0x0102")
	require.Error(t, err)
}

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kp.DID, DefaultMethod+":0x"))
	assert.Len(t, strings.TrimPrefix(kp.DID, DefaultMethod+":0x"), 40)
}

func TestDocumentResolves(t *testing.T) {
	kp, err := GenerateKeyPair("did:nda:testnet")
	require.NoError(t, err)

	doc := kp.Document("")
	assert.Equal(t, kp.DID, doc.Controller)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") != kp.DID {
			http.NotFound(w, r)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"didDocument": doc})
	}))
	defer server.Close()

	resolver := verificationmethod.NewResolver(config.New(config.Config{ResolverURL: server.URL}))

	token, err := jwt.Encode(kp.Signer(), map[string]interface{}{"iss": kp.DID})
	require.NoError(t, err)

	envelope, err := jwt.NewVerifier(resolver).Verify(context.Background(), token, jwt.WithKeyOwner(kp.DID))
	require.NoError(t, err)
	assert.Equal(t, kp.KeyID(), envelope.Header.KeyID)
}
