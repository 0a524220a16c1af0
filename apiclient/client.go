// Package apiclient is the HTTP client for the finance backend.
//
// Every request runs through a Pipeline of named stages. With a token store
// configured the pipeline attaches the bearer token to outgoing requests and
// removes it when the backend answers 401. Failures come back as one of
// *NetworkError, *AuthError or *ValidationError; nothing is retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds every request, including reading the response body.
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// TokenStore is what the credential stages need from the credential store.
type TokenStore interface {
	TokenSource
	TokenSink
}

// Client talks to the finance backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	pipeline  *Pipeline
	logger    *slog.Logger
	userAgent string

	hooksMu sync.RWMutex
	hooks   []func(context.Context)

	Categories   *CategoryService
	Transactions *TransactionService
}

type options struct {
	timeout    time.Duration
	httpClient *http.Client
	tokens     TokenStore
	stages     []Stage
	logger     *slog.Logger
	userAgent  string
	hooks      []func(context.Context)
}

// Option configures a Client.
type Option func(*options)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHTTPClient uses hc's transport and jar. Its Transport becomes the
// base of the pipeline; its Timeout is replaced by the client timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTokenStore installs the attach-credentials and handle-unauthorized stages over ts.
func WithTokenStore(ts TokenStore) Option {
	return func(o *options) {
		o.tokens = ts
	}
}

// WithStages appends custom stages after the built-in ones.
func WithStages(stages ...Stage) Option {
	return func(o *options) {
		o.stages = append(o.stages, stages...)
	}
}

// WithLogger sets the logger used by the log stage.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithUnauthorizedHook registers fn to run after a 401 removed the token.
func WithUnauthorizedHook(fn func(context.Context)) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, fn)
	}
}

// New returns a Client for the backend at baseURL, e.g. "http://localhost:3000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	o := options{timeout: DefaultTimeout, userAgent: "pocketledger"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", o.timeout)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		baseURL:   u,
		logger:    o.logger,
		userAgent: o.userAgent,
		hooks:     o.hooks,
	}

	var hc http.Client
	if o.httpClient != nil {
		hc = *o.httpClient
	}
	stages := []Stage{RequestID()}
	if o.tokens != nil {
		stages = append(stages,
			AttachCredentials(o.tokens),
			HandleUnauthorized(o.tokens, c.notifyUnauthorized),
		)
	}
	stages = append(stages, Logging(o.logger))
	stages = append(stages, o.stages...)
	c.pipeline = NewPipeline(hc.Transport, stages...)
	hc.Transport = c.pipeline
	hc.Timeout = o.timeout
	c.http = &hc

	c.Categories = &CategoryService{c: c}
	c.Transactions = &TransactionService{c: c}
	return c, nil
}

// Pipeline exposes the request pipeline so callers can add, reorder or drop stages.
func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

// OnUnauthorized registers fn to run after a 401 removed the stored token.
func (c *Client) OnUnauthorized(fn func(context.Context)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func (c *Client) notifyUnauthorized(ctx context.Context) {
	c.hooksMu.RLock()
	hooks := append([]func(context.Context)(nil), c.hooks...)
	c.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one JSON request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ValidationError{Message: "encoding request body", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Message: errorMessage(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &ValidationError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

// errorMessage pulls the human-readable message out of an error body, or
// returns "" when there is none. The backend uses "erro"; "error",
// "message" and "mensagem" are accepted as well.
func errorMessage(data []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, k := range []string{"erro", "error", "message", "mensagem"} {
		raw, ok := body[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

// IsUnauthorized reports whether err is, or wraps, an *AuthError.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
