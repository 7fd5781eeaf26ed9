package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

const maxBodySize = 1 << 20

type httpTransport struct {
	client     *http.Client
	maxRetries int
	backOff    func() backoff.BackOff
}

// Opt configures the default HTTP transport.
type Opt func(*httpTransport)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) Opt {
	return func(t *httpTransport) {
		t.client = client
	}
}

// WithBackOff sets the retry schedule of Get requests.
func WithBackOff(newBackOff func() backoff.BackOff) Opt {
	return func(t *httpTransport) {
		t.backOff = newBackOff
	}
}

// NewDefaultProvider creates an HTTP Transport. Outgoing requests are traced
// with OpenTelemetry. Get requests are retried with exponential backoff on
// network errors and 5xx answers; deliveries are attempted exactly once.
func NewDefaultProvider(cfg *config.Config, opts ...Opt) Transport {
	if cfg == nil {
		cfg = config.New(config.Config{})
	}

	t := &httpTransport{
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: cfg.MaxRetries,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = cfg.HTTPTimeout

			return b
		},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *httpTransport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindFetch, "fetch", err, "invalid url")
	}

	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make HTTP request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server returned non-200 status: %s", resp.Status)
		}

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("server returned non-200 status: %s", resp.Status))
		}

		body = data

		return nil
	}

	schedule := backoff.WithContext(backoff.WithMaxRetries(t.backOff(), uint64(t.maxRetries)), ctx)
	if err := backoff.Retry(operation, schedule); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindFetch, "fetch", err, "GET %s", rawURL)
	}

	return body, nil
}

func (t *httpTransport) PostForm(ctx context.Context, rawURL string, form url.Values) (*DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindDelivery, "deliver response", err, "invalid url")
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	result, err := doRequest(t.client, req)
	if err != nil {
		return nil, err
	}

	// A verifier may answer a direct post with the next redirect target.
	var answer struct {
		RedirectURI string `json:"redirect_uri"`
	}
	if json.Unmarshal(result.Body, &answer) == nil && answer.RedirectURI != "" {
		result.Location = answer.RedirectURI
	}

	return result, nil
}

func (t *httpTransport) Redirect(ctx context.Context, rawURL string) (*DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindDelivery, "deliver response", err, "invalid url")
	}

	// Navigation stops at the first hop, like a user agent handing off to the verifier.
	client := *t.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	result, err := doRequest(&client, req)
	if err != nil {
		return nil, err
	}

	if result.Location == "" {
		result.Location = rawURL
	}

	return result, nil
}

func doRequest(client *http.Client, req *http.Request) (*DeliveryResult, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindDelivery, "deliver response", err, "failed to make HTTP request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindDelivery, "deliver response", err, "failed to read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, oid4vcerr.New(oid4vcerr.KindDelivery, "deliver response", "verifier returned %s", resp.Status)
	}

	return &DeliveryResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Location:   resp.Header.Get("Location"),
	}, nil
}
