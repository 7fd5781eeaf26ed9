package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/didkey"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/jwt"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
)

func TestCredentialStore(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	issuer, err := didkey.NewEd25519Signer(priv)
	require.NoError(t, err)

	token, err := jwt.Encode(issuer, map[string]interface{}{
		"iss": issuer.Identifier(),
		"vc":  map[string]interface{}{"type": []string{"VerifiableCredential"}},
	})
	require.NoError(t, err)

	store := NewCredentialStore()

	cred, err := store.Import("b-jwt", []byte(token))
	require.NoError(t, err)
	assert.Equal(t, presexch.FormatJWTVC, cred.Format)

	cred, err = store.Import("a-ldp", []byte(`{"type": ["VerifiableCredential"], "credentialSubject": {"id": "did:example:1"}}`))
	require.NoError(t, err)
	assert.Equal(t, presexch.FormatLDPVC, cred.Format)

	_, err = store.Import("bad", []byte("not a credential"))
	require.Error(t, err)

	require.Error(t, store.AddCredential("", cred))
	require.Error(t, store.AddCredential("x", nil))

	assert.Equal(t, []string{"a-ldp", "b-jwt"}, store.IDs())

	creds := store.Credentials()
	require.Len(t, creds, 2)
	assert.Equal(t, presexch.FormatLDPVC, creds[0].Format)
	assert.Equal(t, token, creds[1].Value)

	got, err := store.GetCredential("b-jwt")
	require.NoError(t, err)
	assert.Equal(t, token, got.Value)

	require.NoError(t, store.DeleteCredential("b-jwt"))

	_, err = store.GetCredential("b-jwt")
	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, errors.Is(store.DeleteCredential("b-jwt"), ErrNotFound))
}

func TestCredentialStoreConcurrent(t *testing.T) {
	store := NewCredentialStore()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := fmt.Sprintf("cred-%02d", i)
			cred := &presexch.Credential{Format: presexch.FormatLDPVC, Value: map[string]interface{}{"id": id}}

			assert.NoError(t, store.AddCredential(id, cred))
			_ = store.Credentials()
		}()
	}

	wg.Wait()

	assert.Len(t, store.IDs(), 50)
}
