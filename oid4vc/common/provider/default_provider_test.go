package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte("eyJhbGciOiJFUzI1NksifQ.e30.c2ln"))
	}))
	defer server.Close()

	transport := NewDefaultProvider(config.New(config.Config{}), WithBackOff(zeroBackOff))

	body, err := transport.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJFUzI1NksifQ.e30.c2ln", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := NewDefaultProvider(nil, WithBackOff(zeroBackOff))

	_, err := transport.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oid4vcerr.ErrFetch))
	assert.True(t, oid4vcerr.IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetInvalidURL(t *testing.T) {
	_, err := NewDefaultProvider(nil).Get(context.Background(), "::not a url")
	assert.True(t, errors.Is(err, oid4vcerr.ErrFetch))
}

func TestPostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "token", r.PostForm.Get("id_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"redirect_uri":"https://client.example.org/done"}`))
	}))
	defer server.Close()

	result, err := NewDefaultProvider(nil).PostForm(context.Background(), server.URL, url.Values{"id_token": {"token"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "https://client.example.org/done", result.Location)
}

func TestPostFormIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewDefaultProvider(nil, WithBackOff(zeroBackOff)).PostForm(context.Background(), server.URL, url.Values{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, oid4vcerr.ErrDelivery))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRedirectStopsAtFirstHop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xyz", r.URL.Query().Get("state"))
		http.Redirect(w, r, "https://client.example.org/welcome", http.StatusFound)
	}))
	defer server.Close()

	result, err := NewDefaultProvider(nil).Redirect(context.Background(), server.URL+"/cb?state=xyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Equal(t, "https://client.example.org/welcome", result.Location)
}

func TestCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultProvider(nil).PostForm(ctx, server.URL, url.Values{})
	assert.True(t, errors.Is(err, oid4vcerr.ErrDelivery))
	assert.True(t, errors.Is(err, context.Canceled))
}
