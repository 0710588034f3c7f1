// Package client implements every remote portal operation over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/publicsuffix"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/tracing"
)

// DefaultTimeout bounds every remote call unless overridden.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// TokenSource yields the bearer credential attached to protected calls.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to the portal service. It is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	jar            http.CookieJar
	timeout        time.Duration
	tokens         TokenSource
	logger         log.Logger
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar, if nil, is
// replaced by the client's cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTokenSource sets where bearer credentials come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithOnUnauthorized registers a hook run when a bearer call gets a 401.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for the service rooted at baseURL
// (for example http://localhost:8080/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute: %q", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: u,
		jar:     jar,
		timeout: DefaultTimeout,
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	} else {
		c.jar = c.httpClient.Jar
	}

	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetTokenSource replaces the bearer credential source.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SetOnUnauthorized replaces the 401 hook.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

// request describes one remote operation.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	bearer      bool
	out         interface{}
	sink        io.Writer
}

func jsonBody(v interface{}) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}

func (c *Client) do(ctx context.Context, r request) (err error) {
	ctx, span := tracing.Start(ctx, "portal."+r.op,
		attribute.String("http.request.method", r.method),
		attribute.String("url.path", r.path),
	)
	start := time.Now()
	defer func() {
		metrics.RemoteCallDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
		metrics.RemoteCallsTotal.WithLabelValues(r.op, outcome(err)).Inc()
		tracing.End(span, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query).String(), r.body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.bearer {
		token, ok := "", false
		if c.tokens != nil {
			token, ok = c.tokens.Token()
		}
		if !ok {
			return perrors.NewAuth("You are not signed in.", nil)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	tracing.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, r.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := c.statusError(resp, r)
		c.logger.Debug(ctx, "remote call failed", map[string]interface{}{
			"operation": r.op,
			"status":    resp.StatusCode,
			"kind":      string(perr.Kind),
		})
		if perr.Kind == perrors.KindAuth && r.bearer && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return perr
	}

	switch {
	case r.sink != nil:
		if _, err := io.Copy(r.sink, resp.Body); err != nil {
			return c.transportError(ctx, r.op, err)
		}
	case r.out != nil:
		if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
			if ctx.Err() != nil {
				return c.transportError(ctx, r.op, err)
			}
			return perrors.NewServer(resp.StatusCode, "invalid_response", "", r.path)
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return perrors.NewTimeout(op, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return perrors.NewTimeout(op, err)
	}
	return perrors.NewNetwork(op, err)
}

func (c *Client) statusError(resp *http.Response, r request) *perrors.PortalError {
	var body domain.APIErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)

	path := body.Path
	if path == "" {
		path = r.path
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		msg := body.Message
		if msg == "" {
			msg = "Your session has expired. Please sign in again."
		}
		e := perrors.NewAuth(msg, nil)
		e.Path = path
		return e
	case http.StatusForbidden, http.StatusNotFound:
		return perrors.NewNotFoundOrForbidden(resp.StatusCode, path, body.Message)
	}

	code := body.Code
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	}
	return perrors.NewServer(resp.StatusCode, code, body.Message, path)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := perrors.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
