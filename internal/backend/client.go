// Package backend is the single choke point for calls to the REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	csrfPath    = "/api/csrf/"
	maxBodySize = 8 << 20
)

// Factory holds everything shared by all sessions: base URL, transport and
// the interceptor chain. Each portal session gets its own Client via ForJar.
type Factory struct {
	baseURL      *url.URL
	timeout      time.Duration
	transport    http.RoundTripper
	csrfCookie   string
	csrfHeader   string
	interceptors []ResponseInterceptor
}

type Option func(*Factory)

func WithTimeout(d time.Duration) Option {
	return func(f *Factory) { f.timeout = d }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(f *Factory) { f.transport = rt }
}

// WithCSRFNames overrides the cookie the token is read from and the header it is sent in
func WithCSRFNames(cookie, header string) Option {
	return func(f *Factory) {
		if cookie != "" {
			f.csrfCookie = cookie
		}
		if header != "" {
			f.csrfHeader = header
		}
	}
}

// WithInterceptors installs response interceptors, run in order for every response
func WithInterceptors(interceptors ...ResponseInterceptor) Option {
	return func(f *Factory) { f.interceptors = append(f.interceptors, interceptors...) }
}

func NewFactory(baseURL string, opts ...Option) (*Factory, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host are required", baseURL)
	}
	f := &Factory{
		baseURL:    u,
		timeout:    15 * time.Second,
		transport:  http.DefaultTransport,
		csrfCookie: "csrftoken",
		csrfHeader: "X-CSRFToken",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// BaseURL returns the backend root without a trailing slash
func (f *Factory) BaseURL() string {
	return f.baseURL.String()
}

// NewJar creates an empty backend cookie jar for a new session
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// ForJar returns a client whose credentials live in jar
func (f *Factory) ForJar(jar http.CookieJar) *Client {
	return &Client{
		factory: f,
		jar:     jar,
		http: &http.Client{
			Timeout:   f.timeout,
			Transport: f.transport,
			Jar:       jar,
		},
	}
}

// Client issues credentialed requests on behalf of one portal session
type Client struct {
	factory *Factory
	jar     http.CookieJar
	http    *http.Client
}

type requestOptions struct {
	csrf bool
}

type RequestOption func(*requestOptions)

// WithCSRF performs the CSRF handshake before the request
func WithCSRF() RequestOption {
	return func(o *requestOptions) { o.csrf = true }
}

func (c *Client) GetJSON(ctx context.Context, path string, dest any) error {
	return c.Do(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, dest any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, dest, opts...)
}

// EnsureCSRF asks the backend to (re)issue the CSRF cookie and returns its value.
// The token is read fresh on every call and never cached.
func (c *Client) EnsureCSRF(ctx context.Context) (string, error) {
	if err := c.send(ctx, http.MethodGet, csrfPath, nil, nil, nil); err != nil {
		return "", err
	}
	token := c.Cookie(c.factory.csrfCookie)
	if token == "" {
		return "", ErrNoCSRFToken
	}
	return token, nil
}

// Cookie returns the value of a backend cookie held for this session
func (c *Client) Cookie(name string) string {
	if c.jar == nil {
		return ""
	}
	for _, cookie := range c.jar.Cookies(c.factory.baseURL) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// Do sends body as JSON and decodes a 2xx response into dest (when non-nil).
// Non-2xx answers come back as *APIError, network failures as *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, body, dest any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	headers := make(map[string]string, 2)
	if o.csrf {
		token, err := c.EnsureCSRF(ctx)
		if err != nil {
			return fmt.Errorf("csrf handshake: %w", err)
		}
		headers[c.factory.csrfHeader] = token
		// Django checks the referer on secure origins
		headers["Referer"] = c.factory.baseURL.String() + "/"
	}
	return c.send(ctx, method, path, body, dest, headers)
}

func (c *Client) send(ctx context.Context, method, path string, body, dest any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("❌ backend %s %s failed: %v", method, path, err)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	var apiErr *APIError
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr = newAPIError(resp.StatusCode, raw)
	}
	for _, intercept := range c.factory.interceptors {
		intercept(ctx, resp, apiErr)
	}
	if apiErr != nil {
		return apiErr
	}

	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// resolve accepts absolute URLs unchanged and joins relative paths to the base
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.factory.baseURL.String() + path
}

// PathWithQuery appends non-empty query values to path
func PathWithQuery(path string, query url.Values) string {
	clean := url.Values{}
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				clean.Add(key, v)
			}
		}
	}
	if len(clean) == 0 {
		return path
	}
	return path + "?" + clean.Encode()
}
