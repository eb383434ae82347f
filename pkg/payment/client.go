package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultHTTPClientType is injected into HTTP client descriptors that name no type.
const DefaultHTTPClientType = "default"

// HTTPClient is the transport a gateway uses to reach its provider.
type HTTPClient interface {
	BaseURL() string
	SetBaseURL(baseURL string)
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig is decoded from the HTTP client descriptor.
type ClientConfig struct {
	Timeout             time.Duration     `mapstructure:"timeout"`
	BreakerMaxRequests  uint32            `mapstructure:"breaker_max_requests"`
	BreakerInterval     time.Duration     `mapstructure:"breaker_interval"`
	BreakerTimeout      time.Duration     `mapstructure:"breaker_timeout"`
	BreakerMinRequests  uint32            `mapstructure:"breaker_min_requests"`
	BreakerFailureRatio float64           `mapstructure:"breaker_failure_ratio"`
	DisableTracing      bool              `mapstructure:"disable_tracing"`
	Headers             map[string]string `mapstructure:"headers"`

	// OnStateChange is called on every breaker transition.
	OnStateChange func(name string, from, to gobreaker.State) `mapstructure:"-"`
}

// DefaultClientConfig returns the settings used for omitted fields.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		BreakerMaxRequests:  10,
		BreakerInterval:     60 * time.Second,
		BreakerTimeout:      30 * time.Second,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.6,
	}
}

// Client is the default HTTPClient. Requests go through an otelhttp
// transport and a circuit breaker that counts transport errors and 5xx
// responses as failures.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a client for name (used as the breaker name).
func NewClient(name string, cfg ClientConfig) *Client {
	transport := http.DefaultTransport
	if !cfg.DisableTracing {
		transport = otelhttp.NewTransport(transport)
	}

	return &Client{
		headers: cfg.Headers,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cfg.BreakerMinRequests && failureRatio >= cfg.BreakerFailureRatio
			},
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

// NewClientFromAttributes decodes attrs over DefaultClientConfig.
func NewClientFromAttributes(attrs Attributes) (*Client, error) {
	return NewClientFromAttributesWith(attrs, DefaultClientConfig())
}

// NewClientFromAttributesWith decodes attrs over base.
func NewClientFromAttributesWith(attrs Attributes, base ClientConfig) (*Client, error) {
	cfg := base
	if err := attrs.Decode(&cfg); err != nil {
		return nil, err
	}
	name := "payment-http"
	if g := attrs.Gateway(); g != nil {
		name = g.Name()
	}
	return NewClient(name, cfg), nil
}

// NewHTTPClientFactory returns a factory with the default client type registered.
func NewHTTPClientFactory() *Factory[HTTPClient] {
	return NewFactory[HTTPClient]("http client").
		Register(DefaultHTTPClientType, func(attrs Attributes) (HTTPClient, error) {
			return NewClientFromAttributes(attrs)
		})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetBaseURL(baseURL string) { c.baseURL = baseURL }

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, req.URL.Path, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return resp, nil
}

// NewRequest builds a request for path relative to the client's base URL.
// A non-nil body is encoded as JSON.
func NewRequest(ctx context.Context, c HTTPClient, method, path string, body any) (*http.Request, error) {
	target, err := resolveURL(c.BaseURL(), path)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// DoJSON sends body as JSON to path and decodes a 2xx response into out.
// Non-2xx responses are reported as ErrProviderRejected.
func DoJSON(ctx context.Context, c HTTPClient, method, path string, body, out any) error {
	req, err := NewRequest(ctx, c, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NewDomainError("provider_error",
			fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))),
			ErrProviderRejected)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func resolveURL(baseURL, path string) (string, error) {
	if baseURL == "" {
		return path, nil
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
