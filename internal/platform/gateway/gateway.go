package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/platform/fhir"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
)

// RequestHook mutates an outbound request before it is sent. Hooks run in
// registration order; each sees the effects of the previous one.
type RequestHook func(*http.Request)

// ResponseHook observes a response after its body has been read. The body
// is rewound before and after each hook.
type ResponseHook func(*http.Response)

// Descriptor describes one logical request. A descriptor instance carries
// its own retried flag and must not be shared between concurrent calls.
type Descriptor struct {
	Method       string
	Path         string
	Query        url.Values
	Body         interface{}
	RequiresAuth bool

	// retried flips to true at most once; a descriptor is never replayed
	// more than once no matter how many 401s come back.
	retried bool
}

// NewDescriptor creates a descriptor. Requests require auth unless the
// caller opts out.
func NewDescriptor(method, path string) *Descriptor {
	return &Descriptor{Method: method, Path: path, RequiresAuth: true}
}

func (d *Descriptor) WithQuery(q url.Values) *Descriptor {
	d.Query = q
	return d
}

func (d *Descriptor) WithBody(body interface{}) *Descriptor {
	d.Body = body
	return d
}

func (d *Descriptor) Anonymous() *Descriptor {
	d.RequiresAuth = false
	return d
}

// Result is a successful (non-4xx/5xx) response.
type Result struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Result) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// List normalizes the response body into the canonical list shape.
func (r *Result) List() fhir.List {
	return fhir.NormalizeListJSON(r.Body)
}

// Config assembles a gateway Client.
type Config struct {
	// BaseURL is the platform API root, e.g. https://api.example.org.
	BaseURL string
	// Session owns the bearer and refresh tokens.
	Session *session.Manager
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// OnAuthExpired is invoked when a refresh fails and the session has
	// been cleared; the UI layer uses it to redirect to login. Optional.
	OnAuthExpired func()
}

// Client executes logical requests against the platform API: it attaches
// the bearer token, resolves an expired token with at most one refresh and
// one replay, and never loops.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   *session.Manager
	log       zerolog.Logger
	onExpired func()
	reqHooks  []RequestHook
	respHooks []ResponseHook
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base:      base,
		http:      hc,
		session:   cfg.Session,
		log:       cfg.Logger,
		onExpired: cfg.OnAuthExpired,
	}, nil
}

// UseRequest appends a request hook to the pipeline.
func (c *Client) UseRequest(h RequestHook) {
	c.reqHooks = append(c.reqHooks, h)
}

// UseResponse appends a response hook to the pipeline.
func (c *Client) UseResponse(h ResponseHook) {
	c.respHooks = append(c.respHooks, h)
}

// Session exposes the session manager backing this client.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Do executes the descriptor. 401 handling: one refresh, one replay, then
// the session is cleared and ErrAuthenticationExpired surfaces. All other
// 4xx/5xx map to *RemoteError, transport failures to *NetworkError.
func (c *Client) Do(ctx context.Context, d *Descriptor) (*Result, error) {
	for {
		status, body, err := c.send(ctx, d)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}

		if status == http.StatusUnauthorized {
			if !d.retried && c.session.HasRefreshToken(ctx) {
				d.retried = true
				if _, err := c.session.Refresh(ctx); err != nil {
					_ = c.session.Clear(ctx)
					c.notifyExpired()
					return nil, ErrAuthenticationExpired
				}
				c.log.Debug().Str("path", d.Path).Msg("token refreshed, replaying request")
				continue
			}
			_ = c.session.Clear(ctx)
			return nil, ErrAuthenticationExpired
		}

		if status >= 400 {
			return nil, &RemoteError{Status: status, Body: body, Message: ExtractMessage(body)}
		}
		return &Result{Status: status, Body: body}, nil
	}
}

func (c *Client) send(ctx context.Context, d *Descriptor) (int, []byte, error) {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + d.Path
	if d.Query != nil {
		u.RawQuery = d.Query.Encode()
	}

	var reqBody io.Reader
	if d.Body != nil {
		data, err := json.Marshal(d.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, u.String(), reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if d.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if d.RequiresAuth {
		if token := c.session.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, hook := range c.reqHooks {
		hook(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}

	for _, hook := range c.respHooks {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		hook(resp)
	}

	c.log.Debug().
		Str("method", d.Method).
		Str("path", d.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	return resp.StatusCode, body, nil
}

func (c *Client) notifyExpired() {
	if c.onExpired != nil {
		c.onExpired()
	}
}
